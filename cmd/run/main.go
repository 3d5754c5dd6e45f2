package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fumin/schrodinger"
	"github.com/fumin/schrodinger/analytic"
	"github.com/fumin/schrodinger/config"
	"github.com/fumin/schrodinger/mat"
	"github.com/fumin/schrodinger/mat/util"
	"github.com/fumin/schrodinger/plot"
	"github.com/fumin/schrodinger/store"
)

const (
	fnameEigen = "eig.csv"
)

var (
	configFile string
	preset     string
	runDir     string
	numPoints  int
	numLevels  int

	plotPath string
	dumpDir  string
	terminal bool

	hbar  float64
	mass  float64
	width float64
	depth float64

	potential string

	tol     float64
	maxIter int
)

func main() {
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	rootCmd := &cobra.Command{
		Use:           "schrodinger",
		Short:         "finite difference solutions of the 1D Schrodinger equation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "infinite_well", "preset configuration, see the presets command")
	rootCmd.PersistentFlags().StringVarP(&runDir, "dir", "d", "", "run directory, overrides the config")
	rootCmd.PersistentFlags().IntVar(&numPoints, "n", 0, "number of grid points, overrides the config")
	rootCmd.PersistentFlags().IntVar(&numLevels, "levels", 0, "number of reported levels, overrides the config")

	solveCmd := &cobra.Command{
		Use:   "solve [preset]",
		Short: "solve one problem and print its energy levels",
		Args:  cobra.MaximumNArgs(1),
		RunE:  solve,
	}
	solveCmd.Flags().StringVar(&plotPath, "plot", "", "write the wavefunctions to this PNG file")
	solveCmd.Flags().StringVar(&dumpDir, "dump", "", "write the Hamiltonian and eigenpairs as CSV to this directory")
	solveCmd.Flags().BoolVar(&terminal, "terminal", false, "draw the lowest wavefunctions in the terminal")

	sweepCmd := &cobra.Command{
		Use:   "sweep [preset]",
		Short: "solve a problem over a range of one parameter, skipping values already stored",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweep,
	}
	sweepCmd.Flags().StringVar(&plotPath, "plot", "", "write the energies versus the parameter to this PNG file")

	groundCmd := &cobra.Command{
		Use:   "ground [preset]",
		Short: "find the ground state by sparse iteration, for grids too large to diagonalize",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ground,
	}
	groundCmd.Flags().Float64Var(&tol, "tol", 1e-9, "residual tolerance relative to the width of the spectrum")
	groundCmd.Flags().IntVar(&maxIter, "iter", 1000000, "maximum number of iterations")

	rootsCmd := &cobra.Command{
		Use:   "roots",
		Short: "exact bound state energies of a finite well",
		Args:  cobra.NoArgs,
		RunE:  roots,
	}
	rootsCmd.Flags().Float64Var(&hbar, "hbar", 1, "reduced Planck constant")
	rootsCmd.Flags().Float64Var(&mass, "mass", 1, "particle mass")
	rootsCmd.Flags().Float64Var(&width, "width", 2, "well width")
	rootsCmd.Flags().Float64Var(&depth, "depth", 6, "well depth")

	derivativeCmd := &cobra.Command{
		Use:   "derivative",
		Short: "finite difference derivatives of sin(x) on [0, 2pi]",
		Args:  cobra.NoArgs,
		RunE:  derivative,
	}

	gatherCmd := &cobra.Command{
		Use:   "gather",
		Short: "print stored runs as CSV",
		Args:  cobra.NoArgs,
		RunE:  gather,
	}
	gatherCmd.Flags().StringVar(&potential, "potential", "", "only print runs of this potential")

	presetsCmd := &cobra.Command{
		Use:   "presets [name]",
		Short: "list presets, or print one as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  presets,
	}

	rootCmd.AddCommand(solveCmd, groundCmd, sweepCmd, rootsCmd, derivativeCmd, gatherCmd, presetsCmd)
	if err := rootCmd.Execute(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func loadConfig(args []string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case configFile != "":
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	default:
		name := preset
		if len(args) > 0 {
			name = args[0]
		}
		cfg = config.GetPreset(name)
		if cfg == nil {
			return nil, errors.Errorf("unknown preset %q, expected one of %v", name, config.ListPresets())
		}
	}

	if runDir != "" {
		cfg.Output.Dir = runDir
	}
	if numPoints > 0 {
		cfg.Grid.N = numPoints
	}
	if numLevels > 0 {
		cfg.Levels = numLevels
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return cfg, nil
}

// exactLevels returns the known energies of the problem, or nil if there are none.
func exactLevels(p schrodinger.Problem, n int) ([]float64, error) {
	switch v := p.Potential.(type) {
	case schrodinger.InfiniteWell:
		return v.Levels(n, p.Hbar, p.Mass), nil
	case schrodinger.FiniteWell:
		return v.Levels(p.Hbar, p.Mass)
	case schrodinger.DoubleWell:
		if v.Separation != 0 {
			return nil, nil
		}
		// Touching wells form a single well of twice the width.
		return analytic.FiniteWell(v.Width, v.Depth, p.Hbar, p.Mass)
	case schrodinger.Harmonic:
		return v.Levels(n, p.Hbar), nil
	}
	return nil, nil
}

// reported returns the states worth printing: every bound state of a well, or else the lowest levels.
func reported(sol schrodinger.Solution, levels int) []schrodinger.State {
	switch sol.Potential.(type) {
	case schrodinger.FiniteWell, schrodinger.DoubleWell:
		return sol.Bound()
	}
	return sol.States[:min(levels, len(sol.States))]
}

func solve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return errors.Wrap(err, "")
	}
	p, err := cfg.Problem()
	if err != nil {
		return errors.Wrap(err, "")
	}

	start := time.Now()
	sol, err := schrodinger.Solve(p)
	if err != nil {
		return errors.Wrap(err, "")
	}
	stats, err := schrodinger.GetStatistics(sol, cfg.Levels)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("%s %v n=%d h=%g solved in %s, spectrum within [%g, %g]", p.Potential.Name(), p.Potential.Params(), p.Grid.Len(), p.Grid.H, time.Since(start).Round(time.Millisecond), stats.Spectrum[0], stats.Spectrum[1])

	states := reported(sol, cfg.Levels)
	exact, err := exactLevels(p, len(states))
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Println(plot.Table(states, exact))
	if stats.Bound > 0 {
		fmt.Printf("%d bound states\n", stats.Bound)
	}

	_, overlaps := schrodinger.Orthonormality(sol.States, cfg.Levels)
	fmt.Println(plot.Overlaps(overlaps))
	fmt.Printf("orthonormality threshold %g\n", stats.Orthonormality)

	if terminal {
		fmt.Println(plot.Terminal(sol, 2, 80, 15))
	}

	fpath := plotPath
	if fpath == "" && cfg.Output.Plot != "" {
		fpath = filepath.Join(cfg.Output.Dir, cfg.Output.Plot)
	}
	if fpath != "" {
		title := fmt.Sprintf("%s %s", p.Potential.Name(), formatParams(p.Potential.Params()))
		if err := writePNG(fpath, func(f *os.File) error {
			return plot.Wavefunctions(f, sol, min(cfg.Levels, 5), plot.Options{Title: title})
		}); err != nil {
			return errors.Wrap(err, "")
		}
		log.Printf("wavefunctions written to %s", fpath)
	}

	if dumpDir != "" {
		if err := dump(dumpDir, sol, cfg.Levels); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

func dump(dir string, sol schrodinger.Solution, levels int) error {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	if err := sol.Hamiltonian.WriteCOO(dir); err != nil {
		return errors.Wrap(err, "")
	}

	vvs := make([]mat.ValVec, 0, levels)
	for _, s := range sol.States[:min(levels, len(sol.States))] {
		vvs = append(vvs, mat.ValVec{Val: s.Energy, Vec: s.Psi})
	}
	if err := mat.WriteEigen(filepath.Join(dir, fnameEigen), vvs); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func ground(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return errors.Wrap(err, "")
	}
	p, err := cfg.Problem()
	if err != nil {
		return errors.Wrap(err, "")
	}

	start := time.Now()
	s, err := schrodinger.GroundState(p, tol, maxIter)
	if err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("%s %v n=%d h=%g ground state in %s", p.Potential.Name(), p.Potential.Params(), p.Grid.Len(), p.Grid.H, time.Since(start).Round(time.Millisecond))

	exact, err := exactLevels(p, 1)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Println(plot.Table([]schrodinger.State{s}, exact))
	return nil
}

func sweep(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg, err := loadConfig(args)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.MkdirAll(cfg.Output.Dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	st, err := store.Open(filepath.Join(cfg.Output.Dir, cfg.Output.DB))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer st.Close()

	xs, levels, _, err := sweepLevels(ctx, cfg, st)
	if err != nil {
		return errors.Wrap(err, "")
	}
	for i, x := range xs {
		es := make([]string, 0, len(levels))
		for j := range levels {
			es = append(es, fmt.Sprintf("E%d=%.4f", j, levels[j][i]))
		}
		fmt.Printf("%s=%.3f %s\n", cfg.Sweep.Param, x, strings.Join(es, " "))
	}

	if len(xs) < 2 {
		return nil
	}
	fpath := plotPath
	if fpath == "" {
		fpath = filepath.Join(cfg.Output.Dir, fmt.Sprintf("%s_versus_%s.png", cfg.Potential.Kind, cfg.Sweep.Param))
	}
	names := []string{"E1 Ground state", "E2 First excited state"}
	title := fmt.Sprintf("%s energy levels versus %s", cfg.Potential.Kind, cfg.Sweep.Param)
	if err := writePNG(fpath, func(f *os.File) error {
		return plot.EnergyVersus(f, xs, levels, names, plot.Options{Title: title, XName: cfg.Sweep.Param})
	}); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("energies written to %s", fpath)
	return nil
}

// sweepLevels solves the sweep values of cfg that st does not hold yet.
// It returns the stored values in ascending order, levels[j][i] being the j-th level at xs[i], and the number of values solved.
func sweepLevels(ctx context.Context, cfg *config.Config, st *store.Store) ([]float64, [][]float64, int, error) {
	if err := cfg.ValidateSweep(); err != nil {
		return nil, nil, 0, errors.Wrap(err, "")
	}
	p, err := cfg.Problem()
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "")
	}
	p.Levels = cfg.Levels

	// Skip the values solved by a previous sweep.
	values := cfg.SweepValues()
	keys := make(map[string]bool, len(values))
	todo := make([]float64, 0, len(values))
	for _, v := range values {
		key, err := runKey(cfg, v)
		if err != nil {
			return nil, nil, 0, errors.Wrap(err, "")
		}
		keys[key] = true
		done, err := st.Done(ctx, key)
		if err != nil {
			return nil, nil, 0, errors.Wrap(err, "")
		}
		if !done {
			todo = append(todo, v)
		}
	}
	log.Printf("%s sweep of %s over %d values, %d already solved", p.Potential.Name(), cfg.Sweep.Param, len(values), len(values)-len(todo))

	progress := util.NewProgress(len(todo), 5*time.Second)
	err = schrodinger.Sweep(p, todo, cfg.SetProblem, func(v float64, sol schrodinger.Solution) error {
		key, err := runKey(cfg, v)
		if err != nil {
			return errors.Wrap(err, "")
		}
		if _, err := st.SaveRun(ctx, newRun(cfg, key, v, sol)); err != nil {
			return errors.Wrap(err, "")
		}
		if msg, ok := progress.Step(); ok {
			log.Printf("%s %s=%g E0=%f", msg, cfg.Sweep.Param, v, sol.Energies[0])
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "")
	}

	runs, err := st.Runs(ctx, p.Potential.Name())
	if err != nil {
		return nil, nil, 0, errors.Wrap(err, "")
	}
	xs := make([]float64, 0, len(values))
	levels := make([][]float64, cfg.Levels)
	for _, r := range runs {
		if !keys[r.Key] {
			continue
		}
		if len(r.Energies) < cfg.Levels {
			return nil, nil, 0, errors.Errorf("run %d has %d levels, expected %d", r.ID, len(r.Energies), cfg.Levels)
		}
		xs = append(xs, r.Value)
		for j := range levels {
			levels[j] = append(levels[j], r.Energies[j])
		}
	}
	return xs, levels, len(todo), nil
}

// newRun records the lowest levels of sol, or all bound levels when there are more of them,
// and the wavefunctions of the lowest cfg.Levels states.
func newRun(cfg *config.Config, key string, v float64, sol schrodinger.Solution) store.Run {
	r := store.Run{
		Key:       key,
		Potential: sol.Potential.Name(),
		Params:    sol.Potential.Params(),
		N:         sol.Grid.Len(),
		XMin:      sol.Grid.X[0],
		XMax:      sol.Grid.X[sol.Grid.Len()-1],
		Hbar:      cfg.Hbar,
		Mass:      cfg.Mass,
		Value:     v,
	}
	var bound int
	for _, e := range sol.Energies {
		if e < 0 {
			bound++
		}
	}
	r.Energies = append(r.Energies, sol.Energies[:min(len(sol.Energies), max(cfg.Levels, bound))]...)

	probe := schrodinger.DefaultProbe(sol.Grid, sol.Potential)
	for _, s := range sol.States[:min(cfg.Levels, len(sol.States))] {
		r.States = append(r.States, s.Oriented(probe).Psi)
	}
	return r
}

// runKey identifies the problem solved at sweep value v.
// Every setting that changes the solution is part of it, so that a sweep never reuses levels of another problem.
func runKey(cfg *config.Config, v float64) (string, error) {
	d, err := cfg.Set(v)
	if err != nil {
		return "", errors.Wrap(err, "")
	}
	pot, err := d.BuildPotential()
	if err != nil {
		return "", errors.Wrap(err, "")
	}
	params := pot.Params()
	params["xmin"], params["xmax"] = d.Grid.XMin, d.Grid.XMax
	params["hbar"], params["mass"] = d.Hbar, d.Mass
	params["interior"] = 0
	if d.Grid.Interior {
		params["interior"] = 1
	}
	return store.Key(pot.Name(), params, d.Grid.N), nil
}

func roots(cmd *cobra.Command, args []string) error {
	halfWidth := width / 2
	energies, err := analytic.FiniteWell(halfWidth, depth, hbar, mass)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("Potential strength = %7.3f\n", depth)
	fmt.Printf("z0 = %7.3f\n", analytic.Z0(halfWidth, depth, hbar, mass))
	fmt.Printf("An excited state needs a depth of at least %7.3f\n", analytic.MinDepthForExcited(halfWidth, hbar, mass))
	for i, e := range energies {
		fmt.Printf("E[%d] = %7.4f\n", i, e)
	}
	return nil
}

func derivative(cmd *cobra.Command, args []string) error {
	n := numPoints
	if n == 0 {
		n = 128
	}
	grid, err := schrodinger.NewGrid(0, 2*math.Pi, n)
	if err != nil {
		return errors.Wrap(err, "")
	}
	y := make([]float64, 0, n)
	cos := make([]float64, 0, n)
	for _, x := range grid.X {
		y = append(y, math.Sin(x))
		cos = append(cos, math.Cos(x))
	}
	dy, err := schrodinger.Derivative(y, grid.H)
	if err != nil {
		return errors.Wrap(err, "")
	}
	d2y, err := schrodinger.SecondDerivative(y, grid.H)
	if err != nil {
		return errors.Wrap(err, "")
	}

	var dErr, d2Err float64
	for i := range n {
		dErr = max(dErr, math.Abs(dy[i]-cos[i]))
		// The end points of the second difference see zeros outside the grid.
		if i > 0 && i < n-1 {
			d2Err = max(d2Err, math.Abs(d2y[i]+y[i]))
		}
	}
	fmt.Println(plot.Curves([][]float64{y, dy, d2y[1 : n-1]}, "sin(x), its forward difference and central second difference", 80, 15))
	fmt.Printf("h = %g, max |D sin - cos| = %g, max |D2 sin + sin| = %g\n", grid.H, dErr, d2Err)
	return nil
}

func gather(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return errors.Wrap(err, "")
	}
	st, err := store.Open(filepath.Join(cfg.Output.Dir, cfg.Output.DB))
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer st.Close()

	runs, err := st.Runs(context.Background(), potential)
	if err != nil {
		return errors.Wrap(err, "")
	}
	var numE int
	for _, r := range runs {
		numE = max(numE, len(r.Energies))
	}
	header := []string{"potential", "params", "value", "n", "xmin", "xmax"}
	for i := range numE {
		header = append(header, fmt.Sprintf("e%d", i))
	}
	fmt.Println(strings.Join(header, ","))
	for _, r := range runs {
		row := []string{r.Potential, formatParams(r.Params), mat.FormatFloat(r.Value), fmt.Sprintf("%d", r.N), mat.FormatFloat(r.XMin), mat.FormatFloat(r.XMax)}
		for i := range numE {
			var e string
			if i < len(r.Energies) {
				e = mat.FormatFloat(r.Energies[i])
			}
			row = append(row, e)
		}
		fmt.Println(strings.Join(row, ","))
	}
	return nil
}

func presets(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		cfg := config.GetPreset(args[0])
		if cfg == nil {
			return errors.Errorf("unknown preset %q, expected one of %v", args[0], config.ListPresets())
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return errors.Wrap(err, "")
		}
		fmt.Print(string(b))
		return nil
	}

	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		var sweepDesc string
		if cfg.Sweep.Param != "" {
			sweepDesc = fmt.Sprintf(" sweep %s from %g to %g", cfg.Sweep.Param, cfg.Sweep.From, cfg.Sweep.To)
		}
		fmt.Printf("%-18s %s n=%d x in [%g, %g]%s\n", name, cfg.Potential.Kind, cfg.Grid.N, cfg.Grid.XMin, cfg.Grid.XMax, sweepDesc)
	}
	return nil
}

// formatParams joins parameters as name=value with a space, which keeps them in one CSV field.
func formatParams(params map[string]float64) string {
	key := store.Key("", params, 0)
	// Drop the empty potential and the grid size.
	_, rest, _ := strings.Cut(key, ",")
	_, rest, _ = strings.Cut(rest, ",")
	return strings.ReplaceAll(rest, ",", " ")
}

func writePNG(fpath string, draw func(*os.File) error) error {
	if dir := filepath.Dir(fpath); dir != "" {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return errors.Wrap(err, "")
		}
	}
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := draw(f); err != nil {
		f.Close()
		return errors.Wrap(err, fpath)
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
