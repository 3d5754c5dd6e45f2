// Package analytic provides exact energy levels of textbook potentials, used to check the finite difference solutions.
//
// References:
//   - https://en.wikipedia.org/wiki/Finite_potential_well
package analytic

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

const (
	// bracketEpsilon keeps root brackets away from the poles of tan and cot.
	bracketEpsilon = 1e-4
	rootTol        = 1e-12
	rootMaxIter    = 200
)

// InfiniteWell returns the lowest n levels n^2 pi^2 hbar^2 / (2 m a^2) of an infinite square well of the given width.
func InfiniteWell(n int, width, hbar, mass float64) []float64 {
	energies := make([]float64, 0, n)
	for k := 1; k <= n; k++ {
		kf := float64(k)
		energies = append(energies, kf*kf*math.Pi*math.Pi*hbar*hbar/(2*mass*width*width))
	}
	return energies
}

// Harmonic returns the lowest n levels hbar omega (k + 1/2) of a harmonic oscillator.
func Harmonic(n int, omega, hbar float64) []float64 {
	energies := make([]float64, 0, n)
	for k := range n {
		energies = append(energies, hbar*omega*(float64(k)+0.5))
	}
	return energies
}

// FiniteWell returns the ascending bound state energies of the well V = -depth for |x| < halfWidth, and zero elsewhere.
//
// With z = (a/hbar) sqrt(2m(E+V0)) and z0 = (a/hbar) sqrt(2m V0), even states solve tan z = sqrt((z0/z)^2 - 1),
// and odd states solve -cot z = sqrt((z0/z)^2 - 1).
// The i-th state lies in [i pi/2, min((i+1) pi/2, z0)].
func FiniteWell(halfWidth, depth, hbar, mass float64) ([]float64, error) {
	if halfWidth <= 0 || depth <= 0 || hbar <= 0 || mass <= 0 {
		return nil, errors.Errorf("non positive parameter %f %f %f %f", halfWidth, depth, hbar, mass)
	}
	z0 := Z0(halfWidth, depth, hbar, mass)
	rhs := func(z float64) float64 {
		return math.Sqrt(math.Max((z0/z)*(z0/z)-1, 0))
	}
	even := func(z float64) float64 { return math.Tan(z) - rhs(z) }
	odd := func(z float64) float64 { return -1/math.Tan(z) - rhs(z) }

	energies := make([]float64, 0)
	for i := 0; float64(i)*math.Pi/2 < z0; i++ {
		lo := float64(i)*math.Pi/2 + bracketEpsilon
		hi := math.Min(float64(i+1)*math.Pi/2-bracketEpsilon, z0)
		if lo >= hi {
			break
		}

		f := even
		if i%2 == 1 {
			f = odd
		}
		z, err := Brent(f, lo, hi, rootTol, rootMaxIter)
		switch {
		// A state right at the top of the well is not bound.
		case errors.Is(err, ErrNoBracket):
			return energies, nil
		case err != nil:
			return nil, errors.Wrap(err, fmt.Sprintf("%d %f %f", i, lo, hi))
		}

		e := z * hbar / halfWidth
		energies = append(energies, e*e/(2*mass)-depth)
	}
	return energies, nil
}

// Z0 is the dimensionless strength of a finite well.
func Z0(halfWidth, depth, hbar, mass float64) float64 {
	return halfWidth / hbar * math.Sqrt(2*mass*depth)
}

// MinDepthForExcited returns the depth pi^2 hbar^2 / (8 m a^2) above which a finite well has an excited bound state.
func MinDepthForExcited(halfWidth, hbar, mass float64) float64 {
	return math.Pi * math.Pi * hbar * hbar / (8 * mass * halfWidth * halfWidth)
}
