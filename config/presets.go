package config

import (
	"maps"
	"slices"

	"github.com/fumin/schrodinger"
)

var Presets = map[string]*Config{
	// Seven levels of a unit box, compared against n^2 pi^2 / 2.
	"infinite_well": {
		Hbar: 1, Mass: 1,
		Grid:      GridConfig{N: 512, XMin: -0.5, XMax: 0.5, Interior: true},
		Potential: PotentialConfig{Kind: schrodinger.NameInfiniteWell, Width: 1},
		Levels:    7,
		Sweep:     SweepConfig{Param: ParamWidth, From: 1, To: 2, Steps: 5},
		Output:    OutputConfig{Dir: DefaultDir, DB: DefaultDB},
	},
	"finite_well": {
		Hbar: 1, Mass: 1,
		Grid:      GridConfig{N: 3000, XMin: -50, XMax: 50},
		Potential: PotentialConfig{Kind: schrodinger.NameFiniteWell, Depth: 6, Width: 2},
		Levels:    5,
		Sweep:     SweepConfig{Param: ParamDepth, From: 1, To: 10, Steps: 10},
		Output:    OutputConfig{Dir: DefaultDir, DB: DefaultDB},
	},
	// A finer grid on a box twice as wide.
	"finite_well_wide": {
		Hbar: 1, Mass: 1,
		Grid:      GridConfig{N: 4097, XMin: -100, XMax: 100},
		Potential: PotentialConfig{Kind: schrodinger.NameFiniteWell, Depth: 6, Width: 2},
		Levels:    5,
		Output:    OutputConfig{Dir: DefaultDir, DB: DefaultDB},
	},
	// Two wells of width 1 pulled apart from touching to two widths.
	"double_well": {
		Hbar: 1, Mass: 1,
		Grid:      GridConfig{N: 2048, XMin: -8, XMax: 8},
		Potential: PotentialConfig{Kind: schrodinger.NameDoubleWell, Depth: 10, Width: 1},
		Levels:    2,
		Sweep:     SweepConfig{Param: ParamSeparation, From: 0, To: 2, Steps: 11},
		Output:    OutputConfig{Dir: DefaultDir, DB: DefaultDB},
	},
	"harmonic": {
		Hbar: 1, Mass: 1,
		Grid:      GridConfig{N: 1000, XMin: -10, XMax: 10, Interior: true},
		Potential: PotentialConfig{Kind: schrodinger.NameHarmonic, Omega: 1},
		Levels:    5,
		Sweep:     SweepConfig{Param: ParamOmega, From: 0.5, To: 2, Steps: 4},
		Output:    OutputConfig{Dir: DefaultDir, DB: DefaultDB},
	},
}

// GetPreset returns a copy of the named preset, or nil if there is none.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	return &c
}

func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
