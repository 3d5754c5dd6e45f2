// Package schrodinger solves the one dimensional time independent Schrodinger equation
//
//	-hbar^2/(2m) psi'' + V psi = E psi
//
// by sampling space on an evenly spaced grid, replacing the second derivative with its central finite difference,
// and diagonalizing the resulting symmetric matrix.
package schrodinger

import (
	"fmt"
	"log"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"

	"github.com/fumin/schrodinger/mat"
)

// Grid is a set of evenly spaced points.
type Grid struct {
	X []float64
	H float64
}

// NewGrid returns n evenly spaced points from xmin to xmax inclusive.
func NewGrid(xmin, xmax float64, n int) (Grid, error) {
	if n < 2 {
		return Grid{}, errors.Wrap(mat.ErrGridTooSmall, fmt.Sprintf("%d", n))
	}
	if !(xmin < xmax) {
		return Grid{}, errors.Errorf("%f %f", xmin, xmax)
	}
	x := floats.Span(make([]float64, n), xmin, xmax)
	return Grid{X: x, H: x[1] - x[0]}, nil
}

// InteriorGrid returns the n interior points of a grid of n+2 points from xmin to xmax.
// Since the wavefunction vanishes just outside the points of a Hamiltonian, xmin and xmax act as hard walls.
func InteriorGrid(xmin, xmax float64, n int) (Grid, error) {
	g, err := NewGrid(xmin, xmax, n+2)
	if err != nil {
		return Grid{}, errors.Wrap(err, "")
	}
	return Grid{X: g.X[1 : n+1], H: g.H}, nil
}

func (g Grid) Len() int { return len(g.X) }

// Problem is a particle of mass Mass in Potential, sampled on Grid.
type Problem struct {
	Hbar      float64
	Mass      float64
	Grid      Grid
	Potential Potential
	// Levels is the number of lowest states Solve computes, zero for all of them.
	Levels    int
}

// State is an energy eigenstate.
// Psi is normalized so that the sum of its squares is one.
type State struct {
	Energy float64
	Psi    []float64
}

// Wavefunction returns psi/sqrt(h), which does not depend on the grid spacing h.
func (s State) Wavefunction(h float64) []float64 {
	w := make([]float64, len(s.Psi))
	floats.ScaleTo(w, 1/math.Sqrt(h), s.Psi)
	return w
}

// Oriented returns the state with its sign chosen so that Psi[probe] is not negative.
func (s State) Oriented(probe int) State {
	if probe < 0 || probe >= len(s.Psi) || s.Psi[probe] >= 0 {
		return s
	}
	psi := make([]float64, len(s.Psi))
	floats.ScaleTo(psi, -1, s.Psi)
	return State{Energy: s.Energy, Psi: psi}
}

// DefaultProbe returns the grid index whose sign fixes the orientation of plotted states.
// Single wells are probed close to the right end, the double well just right of the center.
func DefaultProbe(grid Grid, potential Potential) int {
	n := grid.Len()
	probe := n - 10
	if _, ok := potential.(DoubleWell); ok {
		probe = n/2 + 10
	}
	return max(0, min(probe, n-1))
}

type Solution struct {
	Grid        Grid
	Potential   Potential
	Hamiltonian *mat.COO
	States      []State
	// Energies holds every level, including those beyond States.
	Energies    []float64
}

// Bound returns the states with negative energy.
// For wells that vanish far away these are the bound states, the only ones that do not depend on the extent of the grid.
func (s Solution) Bound() []State {
	bound := make([]State, 0)
	for _, st := range s.States {
		if st.Energy < 0 {
			bound = append(bound, st)
		}
	}
	return bound
}

// Sample evaluates the potential on the grid.
func Sample(grid Grid, potential Potential) []float64 {
	v := make([]float64, 0, grid.Len())
	for _, x := range grid.X {
		v = append(v, potential.V(x))
	}
	return v
}

// Hamiltonian returns -hbar^2/(2m) D2 + diag(V), where D2 is the second difference operator on the grid.
func Hamiltonian(p Problem) (*mat.COO, error) {
	if p.Hbar <= 0 || p.Mass <= 0 {
		return nil, errors.Errorf("non positive hbar %f or mass %f", p.Hbar, p.Mass)
	}
	if p.Potential == nil {
		return nil, errors.Errorf("no potential")
	}
	h, err := mat.SecondDifference(p.Grid.Len(), p.Grid.H)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	h.Scale(-p.Hbar * p.Hbar / (2 * p.Mass))
	h.Add(1, mat.Diag(Sample(p.Grid, p.Potential)))
	return h, nil
}

// Solve returns the eigenstates of the problem in ascending energy, all of them unless p.Levels is set.
func Solve(p Problem) (Solution, error) {
	h, err := Hamiltonian(p)
	if err != nil {
		return Solution{}, errors.Wrap(err, "")
	}
	var vvs []mat.ValVec
	var energies []float64
	if p.Levels > 0 {
		vvs, energies, err = h.EigenLowest(p.Levels)
	} else {
		vvs, err = h.Eigen()
	}
	if err != nil {
		return Solution{}, errors.Wrap(err, fmt.Sprintf("%s %d", p.Potential.Name(), p.Grid.Len()))
	}

	sol := Solution{Grid: p.Grid, Potential: p.Potential, Hamiltonian: h, States: make([]State, 0, len(vvs)), Energies: energies}
	for _, vv := range vvs {
		sol.States = append(sol.States, State{Energy: vv.Val, Psi: vv.Vec})
	}
	if sol.Energies == nil {
		sol.Energies = make([]float64, 0, len(vvs))
		for _, vv := range vvs {
			sol.Energies = append(sol.Energies, vv.Val)
		}
	}
	return sol, nil
}

// GroundState finds the lowest state of p by sparse iteration instead of diagonalization,
// for grids whose dense Hamiltonian does not fit in memory.
func GroundState(p Problem, tol float64, maxIter int) (State, error) {
	h, err := Hamiltonian(p)
	if err != nil {
		return State{}, errors.Wrap(err, "")
	}
	vv, err := mat.GroundState(h, tol, maxIter)
	if err != nil {
		return State{}, errors.Wrap(err, fmt.Sprintf("%s %d", p.Potential.Name(), p.Grid.Len()))
	}
	return State{Energy: vv.Val, Psi: vv.Vec}, nil
}

// Energies returns the ascending energy levels of the problem without computing the states.
func Energies(p Problem) ([]float64, error) {
	h, err := Hamiltonian(p)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	energies, err := h.EigenValues()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return energies, nil
}

// Orthonormality returns the overlaps <psi_i|psi_j> of the first k states,
// together with the largest deviation of the overlaps from the identity.
func Orthonormality(states []State, k int) (float64, [][]float64) {
	k = max(0, min(k, len(states)))
	var threshold float64
	overlaps := make([][]float64, k)
	for i := range k {
		overlaps[i] = make([]float64, k)
		for j := range k {
			overlaps[i][j] = floats.Dot(states[i].Psi, states[j].Psi)

			var delta float64
			if i == j {
				delta = 1
			}
			threshold = max(threshold, math.Abs(overlaps[i][j]-delta))
		}
	}
	return threshold, overlaps
}

// Norm integrates |psi/sqrt(h)|^2 over the grid with the trapezoidal rule.
func Norm(grid Grid, s State) float64 {
	density := s.Wavefunction(grid.H)
	floats.Mul(density, density)
	return integrate.Trapezoidal(grid.X, density)
}

// Derivative applies the forward difference operator to the samples y.
func Derivative(y []float64, h float64) ([]float64, error) {
	d, err := mat.ForwardDifference(len(y), h)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return d.MulVec(nil, y), nil
}

// SecondDerivative applies the central second difference operator to the samples y.
// The end points assume y vanishes just outside the samples.
func SecondDerivative(y []float64, h float64) ([]float64, error) {
	d, err := mat.SecondDifference(len(y), h)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return d.MulVec(nil, y), nil
}

// edgeWarning describes a double well that reaches beyond half the grid.
func edgeWarning(p Problem) (string, bool) {
	dw, ok := p.Potential.(DoubleWell)
	if !ok || p.Grid.Len() == 0 || !dw.NearEdge(p.Grid.X[p.Grid.Len()-1]) {
		return "", false
	}
	return fmt.Sprintf("wells at separation %f extend beyond half the grid, expect edge effects", dw.Separation), true
}

// Sweep solves the problem once for every value, with set deriving each problem from p.
func Sweep(p Problem, values []float64, set func(Problem, float64) Problem, visit func(float64, Solution) error) error {
	for _, v := range values {
		q := set(p, v)
		if msg, ok := edgeWarning(q); ok {
			log.Print(msg)
		}

		sol, err := Solve(q)
		if err != nil {
			return errors.Wrap(err, fmt.Sprintf("%f", v))
		}
		if err := visit(v, sol); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%f", v))
		}
	}
	return nil
}

// Statistics summarizes a solution.
type Statistics struct {
	Energies    []float64
	// Bound is the number of states with negative energy.
	Bound int
	// Orthonormality is the largest deviation of the overlaps of the first k states from the identity.
	Orthonormality float64
	// Spectrum is the Gerschgorin interval that contains every energy.
	Spectrum [2]float64
}

// GetStatistics summarizes the lowest k states of a solution.
func GetStatistics(sol Solution, k int) (Statistics, error) {
	if len(sol.States) == 0 {
		return Statistics{}, errors.Errorf("no states")
	}
	if k < 0 {
		return Statistics{}, errors.Errorf("negative number of states %d", k)
	}
	energies := sol.Energies
	if len(energies) == 0 {
		for _, s := range sol.States {
			energies = append(energies, s.Energy)
		}
	}
	k = min(k, len(energies))

	var stats Statistics
	stats.Energies = append(stats.Energies, energies[:k]...)
	for _, e := range energies {
		if e < 0 {
			stats.Bound++
		}
	}
	stats.Orthonormality, _ = Orthonormality(sol.States, k)

	if sol.Hamiltonian != nil {
		lo, hi := mat.Gerschgorin(sol.Hamiltonian)
		stats.Spectrum = [2]float64{lo, hi}
		const tol = 1e-8
		first, last := energies[0], energies[len(energies)-1]
		if first < lo-tol*max(1, math.Abs(lo)) || last > hi+tol*max(1, math.Abs(hi)) {
			return Statistics{}, errors.Errorf("energies [%f, %f] outside of [%f, %f]", first, last, lo, hi)
		}
	}
	return stats, nil
}
