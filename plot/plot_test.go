package plot

import (
	"bytes"
	"fmt"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/fumin/schrodinger"
)

func solve(t *testing.T, potential schrodinger.Potential, xmin, xmax float64, n int) schrodinger.Solution {
	t.Helper()
	grid, err := schrodinger.NewGrid(xmin, xmax, n)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	sol, err := schrodinger.Solve(schrodinger.Problem{Hbar: 1, Mass: 1, Grid: grid, Potential: potential})
	if err != nil {
		t.Fatalf("%+v", err)
	}
	return sol
}

func TestWavefunctions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		potential schrodinger.Potential
		xr        [2]float64
	}{
		{potential: schrodinger.FiniteWell{Depth: 6, Width: 2}, xr: [2]float64{-8, 8}},
		{potential: schrodinger.DoubleWell{Depth: 10, Width: 1, Separation: 1}, xr: [2]float64{-7, 7}},
		{potential: schrodinger.InfiniteWell{Width: 2}, xr: [2]float64{-1, 1}},
	}
	for _, test := range tests {
		t.Run(test.potential.Name(), func(t *testing.T) {
			t.Parallel()
			xmin, xmax := -8., 8.
			if w, ok := test.potential.(schrodinger.InfiniteWell); ok {
				xmin, xmax = -w.Width/2, w.Width/2
			}
			sol := solve(t, test.potential, xmin, xmax, 200)
			if r := DefaultRange(sol); math.Abs(r[0]-test.xr[0]) > 1e-12 || math.Abs(r[1]-test.xr[1]) > 1e-12 {
				t.Fatalf("%v, expected %v", r, test.xr)
			}

			var buf bytes.Buffer
			opts := Options{Title: test.potential.Name(), Width: 640, Height: 320}
			if err := Wavefunctions(&buf, sol, 3, opts); err != nil {
				t.Fatalf("%+v", err)
			}
			cfg, err := png.DecodeConfig(&buf)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			if cfg.Width != 640 || cfg.Height != 320 {
				t.Fatalf("%+v", cfg)
			}
		})
	}
}

func TestWavefunctionsEmpty(t *testing.T) {
	t.Parallel()
	sol := solve(t, schrodinger.FiniteWell{Depth: 6, Width: 2}, -8, 8, 50)
	var buf bytes.Buffer
	if err := Wavefunctions(&buf, sol, 0, Options{}); err == nil {
		t.Fatalf("expected error")
	}
	if err := Wavefunctions(&buf, sol, 2, Options{Range: [2]float64{20, 30}}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEnergyVersus(t *testing.T) {
	t.Parallel()
	xs := []float64{0, 0.2, 0.4, 0.6}
	levels := [][]float64{{-8, -7.9, -7.85, -7.83}, {-6, -7, -7.5, -7.7}}
	var buf bytes.Buffer
	if err := EnergyVersus(&buf, xs, levels, []string{"E1 Ground state", "E2 First excited state"}, Options{}); err != nil {
		t.Fatalf("%+v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cfg.Width != DefaultWidth || cfg.Height != DefaultHeight {
		t.Fatalf("%+v", cfg)
	}

	if err := EnergyVersus(&buf, xs, [][]float64{{1}}, nil, Options{}); err == nil {
		t.Fatalf("expected error")
	}
	if err := EnergyVersus(&buf, xs[:1], nil, nil, Options{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()
	sol := solve(t, schrodinger.FiniteWell{Depth: 6, Width: 2}, -8, 8, 200)
	s := Terminal(sol, 2, 60, 10)
	if !strings.Contains(s, "finite_well") || !strings.Contains(s, fmt.Sprintf("E0=%.3f", sol.States[0].Energy)) {
		t.Fatalf("%s", s)
	}
	if Terminal(sol, 0, 60, 10) != "" {
		t.Fatalf("expected empty plot")
	}
}

func TestTable(t *testing.T) {
	t.Parallel()
	states := []schrodinger.State{{Energy: 4.9348}, {Energy: 19.739}, {Energy: 44.412}}
	s := Table(states, []float64{4.9348, 19.7392})
	for _, want := range []string{"E[1]", "E[3]", "19.7390", "19.7392", "-2.00e-04", "44.4120"} {
		if !strings.Contains(s, want) {
			t.Fatalf("%q not in\n%s", want, s)
		}
	}

	o := Overlaps([][]float64{{1, 0}, {0, 1}})
	if !strings.Contains(o, "1.00000") || !strings.Contains(o, "0.00000") {
		t.Fatalf("%s", o)
	}
}
