// Package store keeps solved problems in a SQLite database, so that parameter sweeps can be resumed and gathered.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const (
	tableRuns          = "runs"
	tableLevels        = "levels"
	tableWavefunctions = "wavefunctions"

	queryTimeout = 3 * time.Second
	writeTimeout = 5 * time.Minute
)

// Run is one solved problem.
type Run struct {
	ID int64
	// Key identifies the problem, so that a sweep can skip the points it has already solved.
	Key       string
	Potential string
	Params    map[string]float64
	N         int
	XMin      float64
	XMax      float64
	Hbar      float64
	Mass      float64
	// Value is the swept parameter.
	Value   float64
	Created time.Time

	Energies []float64
	// States holds the wavefunctions of the lowest levels, each normalized so that the sum of squares is one.
	States [][]float64
}

// Key builds the identifier of a problem from its potential, parameters and grid size.
func Key(potential string, params map[string]float64, n int) string {
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := []string{potential, fmt.Sprintf("n=%d", n)}
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%g", name, params[name]))
	}
	return strings.Join(parts, ",")
}

type Store struct {
	Path string

	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on", dbPath))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := prepareDB(db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "")
	}

	return &Store{Path: dbPath, db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores r, replacing any previous run with the same key.
func (s *Store) SaveRun(ctx context.Context, r Run) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	params, err := json.Marshal(r.Params)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	if r.Created.IsZero() {
		r.Created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	defer tx.Rollback()

	sqlStr := fmt.Sprintf(`DELETE FROM %s WHERE key=?`, tableRuns)
	if _, err := tx.ExecContext(ctx, sqlStr, r.Key); err != nil {
		return -1, errors.Wrap(err, r.Key)
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (key, potential, params, n, xmin, xmax, hbar, mass, value, created) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, tableRuns)
	res, err := tx.ExecContext(ctx, sqlStr, r.Key, r.Potential, string(params), r.N, r.XMin, r.XMax, r.Hbar, r.Mass, r.Value, r.Created.UnixNano())
	if err != nil {
		return -1, errors.Wrap(err, r.Key)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return -1, errors.Wrap(err, "")
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (run_id, k, energy) VALUES (?, ?, ?)`, tableLevels)
	levelStmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	defer levelStmt.Close()
	for k, e := range r.Energies {
		if _, err := levelStmt.ExecContext(ctx, id, k, e); err != nil {
			return -1, errors.Wrap(err, fmt.Sprintf("%d %f", k, e))
		}
	}

	sqlStr = fmt.Sprintf(`INSERT INTO %s (run_id, k, i, psi) VALUES (?, ?, ?, ?)`, tableWavefunctions)
	psiStmt, err := tx.PrepareContext(ctx, sqlStr)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	defer psiStmt.Close()
	for k, psi := range r.States {
		for i, v := range psi {
			if v == 0 {
				continue
			}
			if _, err := psiStmt.ExecContext(ctx, id, k, i, v); err != nil {
				return -1, errors.Wrap(err, fmt.Sprintf("%d %d", k, i))
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return -1, errors.Wrap(err, "")
	}
	return id, nil
}

// Done reports whether a run with key has been stored.
func (s *Store) Done(ctx context.Context, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT count(1) FROM %s WHERE key=?`, tableRuns)
	var n int
	if err := s.db.QueryRowContext(ctx, sqlStr, key).Scan(&n); err != nil {
		return false, errors.Wrap(err, key)
	}
	return n > 0, nil
}

// Runs returns the runs of a potential ordered by the swept value, with their energies but without wavefunctions.
// An empty potential returns every run.
func (s *Store) Runs(ctx context.Context, potential string) ([]Run, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT id, key, potential, params, n, xmin, xmax, hbar, mass, value, created FROM %s WHERE ?='' OR potential=? ORDER BY potential, value, id`, tableRuns)
	rows, err := s.db.QueryContext(ctx, sqlStr, potential, potential)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var r Run
		var params string
		var created int64
		if err := rows.Scan(&r.ID, &r.Key, &r.Potential, &params, &r.N, &r.XMin, &r.XMax, &r.Hbar, &r.Mass, &r.Value, &created); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if err := json.Unmarshal([]byte(params), &r.Params); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d %s", r.ID, params))
		}
		r.Created = time.Unix(0, created)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	rows.Close()

	for i := range runs {
		runs[i].Energies, err = s.Levels(ctx, runs[i].ID)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%d", runs[i].ID))
		}
	}
	return runs, nil
}

// Levels returns the ascending energies of a run.
func (s *Store) Levels(ctx context.Context, runID int64) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	sqlStr := fmt.Sprintf(`SELECT energy FROM %s WHERE run_id=? ORDER BY k`, tableLevels)
	rows, err := s.db.QueryContext(ctx, sqlStr, runID)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	energies := make([]float64, 0)
	for rows.Next() {
		var e float64
		if err := rows.Scan(&e); err != nil {
			return nil, errors.Wrap(err, "")
		}
		energies = append(energies, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return energies, nil
}

// Wavefunction returns the k-th stored wavefunction of a run.
func (s *Store) Wavefunction(ctx context.Context, runID int64, k int) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	sqlStr := fmt.Sprintf(`SELECT n FROM %s WHERE id=?`, tableRuns)
	err := s.db.QueryRowContext(ctx, sqlStr, runID).Scan(&n)
	switch {
	case err == sql.ErrNoRows:
		return nil, errors.Errorf("no run %d", runID)
	case err != nil:
		return nil, errors.Wrap(err, "")
	}

	sqlStr = fmt.Sprintf(`SELECT i, psi FROM %s WHERE run_id=? AND k=? ORDER BY i`, tableWavefunctions)
	rows, err := s.db.QueryContext(ctx, sqlStr, runID, k)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	defer rows.Close()

	psi := make([]float64, n)
	var found bool
	for rows.Next() {
		var i int
		var v float64
		if err := rows.Scan(&i, &v); err != nil {
			return nil, errors.Wrap(err, "")
		}
		if i < 0 || i >= n {
			return nil, errors.Errorf("%d out of %d", i, n)
		}
		psi[i] = v
		found = true
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	if !found {
		return nil, errors.Errorf("no wavefunction %d for run %d", k, runID)
	}
	return psi, nil
}

func prepareDB(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, key TEXT NOT NULL UNIQUE, potential TEXT NOT NULL, params TEXT NOT NULL, n INTEGER NOT NULL, xmin REAL NOT NULL, xmax REAL NOT NULL, hbar REAL NOT NULL, mass REAL NOT NULL, value REAL NOT NULL, created INTEGER NOT NULL) STRICT`, tableRuns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE, k INTEGER NOT NULL, energy REAL NOT NULL, PRIMARY KEY (run_id, k)) STRICT`, tableLevels, tableRuns),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (run_id INTEGER NOT NULL REFERENCES %s(id) ON DELETE CASCADE, k INTEGER NOT NULL, i INTEGER NOT NULL, psi REAL NOT NULL, PRIMARY KEY (run_id, k, i)) STRICT`, tableWavefunctions, tableRuns),
	}
	for _, sqlStr := range stmts {
		if _, err := db.ExecContext(ctx, sqlStr); err != nil {
			return errors.Wrap(err, sqlStr)
		}
	}
	return nil
}
