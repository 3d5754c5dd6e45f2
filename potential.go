package schrodinger

import (
	"math"

	"github.com/pkg/errors"

	"github.com/fumin/schrodinger/analytic"
)

const (
	NameInfiniteWell = "infinite_well"
	NameFiniteWell   = "finite_well"
	NameDoubleWell   = "double_well"
	NameHarmonic     = "harmonic"
)

// Potential is a one dimensional potential energy V(x).
type Potential interface {
	V(x float64) float64
	Name() string
	// Params returns the named parameters of the potential, used to identify stored runs.
	Params() map[string]float64
}

// InfiniteWell is a box of the given width.
// The potential is zero inside, and the walls are the ends of the grid.
type InfiniteWell struct {
	Width float64
}

func (w InfiniteWell) V(x float64) float64 { return 0 }
func (w InfiniteWell) Name() string        { return NameInfiniteWell }
func (w InfiniteWell) Params() map[string]float64 {
	return map[string]float64{"width": w.Width}
}

// Levels returns the exact lowest n levels.
func (w InfiniteWell) Levels(n int, hbar, mass float64) []float64 {
	return analytic.InfiniteWell(n, w.Width, hbar, mass)
}

// FiniteWell is -Depth for |x| < Width/2, and zero elsewhere.
type FiniteWell struct {
	Depth float64
	Width float64
}

func (w FiniteWell) V(x float64) float64 {
	if math.Abs(x) < w.Width/2 {
		return -w.Depth
	}
	return 0
}

func (w FiniteWell) Name() string { return NameFiniteWell }
func (w FiniteWell) Params() map[string]float64 {
	return map[string]float64{"depth": w.Depth, "width": w.Width}
}

// Levels returns the exact bound state energies.
func (w FiniteWell) Levels(hbar, mass float64) ([]float64, error) {
	energies, err := analytic.FiniteWell(w.Width/2, w.Depth, hbar, mass)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return energies, nil
}

// DoubleWell is two wells of depth Depth and width Width, whose inner walls are Separation apart.
type DoubleWell struct {
	Depth      float64
	Width      float64
	Separation float64
}

func (w DoubleWell) V(x float64) float64 {
	a, b := w.Width, w.Separation/2
	switch {
	case -a-b < x && x < -b:
		return -w.Depth
	case b < x && x < b+a:
		return -w.Depth
	}
	return 0
}

func (w DoubleWell) Name() string { return NameDoubleWell }
func (w DoubleWell) Params() map[string]float64 {
	return map[string]float64{"depth": w.Depth, "width": w.Width, "separation": w.Separation}
}

// NearEdge reports whether the wells reach so far out that a grid ending at xmax distorts their states.
func (w DoubleWell) NearEdge(xmax float64) bool {
	return w.Width+w.Separation > xmax/2
}

// Harmonic is the oscillator potential m omega^2 x^2 / 2.
type Harmonic struct {
	Omega float64
	Mass  float64
}

func (o Harmonic) V(x float64) float64 { return 0.5 * o.Mass * o.Omega * o.Omega * x * x }
func (o Harmonic) Name() string        { return NameHarmonic }
func (o Harmonic) Params() map[string]float64 {
	return map[string]float64{"omega": o.Omega, "mass": o.Mass}
}

func (o Harmonic) Levels(n int, hbar float64) []float64 {
	return analytic.Harmonic(n, o.Omega, hbar)
}

// Func adapts an arbitrary function into a Potential.
type Func struct {
	Label string
	F     func(float64) float64
}

func (f Func) V(x float64) float64        { return f.F(x) }
func (f Func) Name() string               { return f.Label }
func (f Func) Params() map[string]float64 { return map[string]float64{} }
