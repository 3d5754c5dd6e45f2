// Package plot draws solutions as PNG figures and terminal text.
package plot

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/pkg/errors"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"

	"github.com/fumin/schrodinger"
)

const (
	DefaultWidth  = 1000
	DefaultHeight = 500
)

var (
	colors = []drawing.Color{
		chart.ColorBlue,
		chart.ColorRed,
		chart.ColorGreen,
		chart.ColorOrange,
		{R: 148, G: 103, B: 189, A: 255},
		{R: 140, G: 86, B: 75, A: 255},
	}
	gray = drawing.Color{R: 128, G: 128, B: 128, A: 255}
)

type Options struct {
	Title string
	// XName labels the x axis of EnergyVersus.
	XName string
	// Range is the plotted x interval, zero means DefaultRange.
	Range  [2]float64
	Width  int
	Height int
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// DefaultRange returns the x interval around the wells, clipped to the grid.
// A finite well is shown out to five widths, a double well out to five units beyond its outer walls.
func DefaultRange(sol schrodinger.Solution) [2]float64 {
	n := sol.Grid.Len()
	if n == 0 {
		return [2]float64{}
	}
	lo, hi := sol.Grid.X[0], sol.Grid.X[n-1]
	switch p := sol.Potential.(type) {
	case schrodinger.FiniteWell:
		return [2]float64{max(lo, -5*p.Width), min(hi, 5*p.Width)}
	case schrodinger.DoubleWell:
		edge := p.Width + p.Separation + 5
		return [2]float64{max(lo, -edge), min(hi, edge)}
	}
	return [2]float64{lo, hi}
}

// Wavefunctions draws the first k states as psi/sqrt(h), together with the potential scaled to one.
func Wavefunctions(w io.Writer, sol schrodinger.Solution, k int, opts Options) error {
	k = min(k, len(sol.States))
	if k == 0 {
		return errors.Errorf("no states")
	}
	xr := opts.Range
	if xr == [2]float64{} {
		xr = DefaultRange(sol)
	}
	lo, hi := window(sol.Grid, xr)
	if hi-lo < 2 {
		return errors.Errorf("range %v holds %d points", xr, hi-lo)
	}
	xs := sol.Grid.X[lo:hi]

	probe := schrodinger.DefaultProbe(sol.Grid, sol.Potential)
	series := make([]chart.Series, 0, k+1)
	for i, s := range sol.States[:k] {
		psi := s.Oriented(probe).Wavefunction(sol.Grid.H)
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("E%d = %.3f", i, s.Energy),
			XValues: xs,
			YValues: psi[lo:hi],
			Style:   chart.Style{StrokeColor: colors[i%len(colors)], StrokeWidth: 2},
		})
	}
	if v := scaledPotential(sol); v != nil {
		series = append(series, chart.ContinuousSeries{
			Name:    "V(x) scaled to 1",
			XValues: xs,
			YValues: v[lo:hi],
			Style:   chart.Style{StrokeColor: gray, StrokeWidth: 2},
		})
	}

	width, height := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:  "x",
			Style: chart.Style{FontSize: 10},
			Range: &chart.ContinuousRange{Min: xs[0], Max: xs[len(xs)-1]},
		},
		YAxis: chart.YAxis{
			Name:  "psi(x)",
			Style: chart.Style{FontSize: 10},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if err := graph.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// EnergyVersus draws energy levels against a swept parameter, levels[j][i] being the j-th level at xs[i].
func EnergyVersus(w io.Writer, xs []float64, levels [][]float64, names []string, opts Options) error {
	if len(xs) < 2 {
		return errors.Errorf("%d points", len(xs))
	}
	series := make([]chart.Series, 0, len(levels))
	for j, ys := range levels {
		if len(ys) != len(xs) {
			return errors.Errorf("level %d has %d values, expected %d", j, len(ys), len(xs))
		}
		name := fmt.Sprintf("E%d", j)
		if j < len(names) {
			name = names[j]
		}
		series = append(series, chart.ContinuousSeries{
			Name:    name,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: colors[j%len(colors)], StrokeWidth: 2, DotWidth: 3, DotColor: colors[j%len(colors)]},
		})
	}

	xName := opts.XName
	if xName == "" {
		xName = "b"
	}
	width, height := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		XAxis:  chart.XAxis{Name: xName, Style: chart.Style{FontSize: 10}},
		YAxis:  chart.YAxis{Name: "Energy", Style: chart.Style{FontSize: 10}},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	if err := graph.Render(chart.PNG, w); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// Terminal renders the first k states as text.
func Terminal(sol schrodinger.Solution, k, width, height int) string {
	k = min(k, len(sol.States))
	lo, hi := window(sol.Grid, DefaultRange(sol))
	if k == 0 || hi-lo < 2 {
		return ""
	}

	probe := schrodinger.DefaultProbe(sol.Grid, sol.Potential)
	data := make([][]float64, 0, k)
	energies := make([]string, 0, k)
	for i, s := range sol.States[:k] {
		data = append(data, s.Oriented(probe).Wavefunction(sol.Grid.H)[lo:hi])
		energies = append(energies, fmt.Sprintf("E%d=%.3f", i, s.Energy))
	}
	caption := fmt.Sprintf("%s x in [%.2f, %.2f] %s", sol.Potential.Name(), sol.Grid.X[lo], sol.Grid.X[hi-1], strings.Join(energies, " "))
	return Curves(data, caption, width, height)
}

// Curves renders sampled curves as text.
func Curves(data [][]float64, caption string, width, height int) string {
	if len(data) == 0 {
		return ""
	}
	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green, asciigraph.Yellow),
		asciigraph.Caption(caption),
	)
}

// window returns the indices [lo, hi) of the grid points inside xr.
func window(grid schrodinger.Grid, xr [2]float64) (int, int) {
	lo, hi := grid.Len(), 0
	for i, x := range grid.X {
		if x < xr[0] || x > xr[1] {
			continue
		}
		lo = min(lo, i)
		hi = max(hi, i+1)
	}
	return lo, max(lo, hi)
}

func scaledPotential(sol schrodinger.Solution) []float64 {
	v := schrodinger.Sample(sol.Grid, sol.Potential)
	m := math.Max(math.Abs(floats.Min(v)), math.Abs(floats.Max(v)))
	if m == 0 {
		return nil
	}
	floats.Scale(1/m, v)
	return v
}
