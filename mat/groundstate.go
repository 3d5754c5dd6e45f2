package mat

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/fumin/schrodinger/mat/util"
)

var (
	ErrNoConvergence = errors.New("no convergence")
)

// GroundState returns the lowest eigenpair of the symmetric matrix m without diagonalizing it.
// It runs power iteration on hi*I - m, where hi is the Gerschgorin upper bound,
// stopping once the residual |m*v - val*v| drops below tol times the width of the spectrum.
// Only the nonzero elements of m are touched, so large grids fit in memory.
func GroundState(m *COO, tol float64, maxIter int) (ValVec, error) {
	if m.Rows() != m.Cols() {
		return ValVec{}, errors.Wrap(ErrNotSquare, fmt.Sprintf("%dx%d", m.Rows(), m.Cols()))
	}
	if !m.IsSymmetric(symmetryTol) {
		return ValVec{}, errors.Wrap(ErrNotSymmetric, "")
	}
	lo, hi := Gerschgorin(m)
	spread := max(hi-lo, math.SmallestNonzeroFloat64)

	// A random start overlaps the ground state almost surely.
	rnd := rand.New(rand.NewSource(0))
	vec := make([]float64, m.Cols())
	for i := range vec {
		vec[i] = rnd.Float64()
	}
	floats.Scale(1/floats.Norm(vec, 2), vec)
	mv := make([]float64, m.Rows())

	throttler := util.NewSkipThrottler(60 * time.Second)
	var val, residual float64
	for iter := 0; iter < maxIter; iter++ {
		mv = m.MulVec(mv, vec)
		val = floats.Dot(vec, mv)

		residual = 0
		for i, mvi := range mv {
			d := mvi - val*vec[i]
			residual += d * d
		}
		residual = math.Sqrt(residual)
		if residual < tol*spread {
			return ValVec{Val: val, Vec: fixSign(vec)}, nil
		}
		if throttler.Ok() {
			log.Printf("%d %g %f", iter, residual/spread, val)
		}

		// vec = (hi*vec - mv) / |hi*vec - mv|
		floats.AddScaledTo(vec, mv, -hi, vec)
		floats.Scale(-1, vec)
		norm := floats.Norm(vec, 2)
		if norm == 0 {
			return ValVec{}, errors.Errorf("iteration %d collapsed, every eigenvalue equals %f", iter, hi)
		}
		floats.Scale(1/norm, vec)
	}
	return ValVec{Val: val, Vec: fixSign(vec)}, errors.Wrap(ErrNoConvergence, fmt.Sprintf("%d iterations residual %g", maxIter, residual))
}

// fixSign makes the largest component positive.
func fixSign(vec []float64) []float64 {
	if len(vec) == 0 {
		return vec
	}
	i := floats.MaxIdx(vec)
	j := floats.MinIdx(vec)
	if math.Abs(vec[j]) > math.Abs(vec[i]) {
		floats.Scale(-1, vec)
	}
	return vec
}
