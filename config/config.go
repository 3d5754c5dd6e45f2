// Package config reads problem descriptions from YAML files.
package config

import (
	"fmt"
	"math"
	"os"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/fumin/schrodinger"
)

const (
	DefaultN      = 512
	DefaultLevels = 7
	DefaultDir    = "runs"
	DefaultDB     = "runs.db"

	ParamDepth      = "depth"
	ParamWidth      = "width"
	ParamSeparation = "separation"
	ParamOmega      = "omega"
)

var sweepParams = map[string][]string{
	schrodinger.NameInfiniteWell: {ParamWidth},
	schrodinger.NameFiniteWell:   {ParamDepth, ParamWidth},
	schrodinger.NameDoubleWell:   {ParamDepth, ParamWidth, ParamSeparation},
	schrodinger.NameHarmonic:     {ParamOmega},
}

type Config struct {
	Hbar      float64         `yaml:"hbar"`
	Mass      float64         `yaml:"mass"`
	Grid      GridConfig      `yaml:"grid"`
	Potential PotentialConfig `yaml:"potential"`
	// Levels is the number of lowest states that are reported and stored.
	Levels int          `yaml:"levels"`
	Sweep  SweepConfig  `yaml:"sweep"`
	Output OutputConfig `yaml:"output"`
}

type GridConfig struct {
	N    int     `yaml:"n"`
	XMin float64 `yaml:"xmin"`
	XMax float64 `yaml:"xmax"`
	// Interior drops the two end points, so that xmin and xmax become hard walls.
	Interior bool `yaml:"interior"`
}

type PotentialConfig struct {
	Kind       string  `yaml:"kind"`
	Depth      float64 `yaml:"depth"`
	Width      float64 `yaml:"width"`
	Separation float64 `yaml:"separation"`
	Omega      float64 `yaml:"omega"`
}

// SweepConfig varies one potential parameter over Steps evenly spaced values from From to To.
type SweepConfig struct {
	Param string  `yaml:"param"`
	From  float64 `yaml:"from"`
	To    float64 `yaml:"to"`
	Steps int     `yaml:"steps"`
}

type OutputConfig struct {
	Dir  string `yaml:"dir"`
	DB   string `yaml:"db"`
	Plot string `yaml:"plot"`
}

func DefaultConfig() *Config {
	return &Config{
		Hbar: 1,
		Mass: 1,
		Grid: GridConfig{
			N:        DefaultN,
			XMin:     -0.5,
			XMax:     0.5,
			Interior: true,
		},
		Potential: PotentialConfig{
			Kind:  schrodinger.NameInfiniteWell,
			Width: 1,
		},
		Levels: DefaultLevels,
		Output: OutputConfig{
			Dir: DefaultDir,
			DB:  DefaultDB,
		},
	}
}

// Load reads a config file, with fields missing from the file taking their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Hbar <= 0 || c.Mass <= 0 {
		return errors.Errorf("non positive hbar %f or mass %f", c.Hbar, c.Mass)
	}
	if c.Grid.N < 2 {
		return errors.Errorf("grid of %d points", c.Grid.N)
	}
	if !(c.Grid.XMin < c.Grid.XMax) {
		return errors.Errorf("empty grid [%f, %f]", c.Grid.XMin, c.Grid.XMax)
	}
	if c.Levels < 1 {
		return errors.Errorf("%d levels", c.Levels)
	}

	pc := c.Potential
	switch pc.Kind {
	case schrodinger.NameInfiniteWell:
		if math.Abs(pc.Width-(c.Grid.XMax-c.Grid.XMin)) > 1e-12*pc.Width {
			return errors.Errorf("width %f differs from the grid [%f, %f]", pc.Width, c.Grid.XMin, c.Grid.XMax)
		}
	case schrodinger.NameFiniteWell, schrodinger.NameDoubleWell:
		if pc.Depth <= 0 || pc.Width <= 0 || pc.Separation < 0 {
			return errors.Errorf("%+v", pc)
		}
	case schrodinger.NameHarmonic:
		if pc.Omega <= 0 {
			return errors.Errorf("%+v", pc)
		}
	default:
		return errors.Errorf("unknown potential %q", pc.Kind)
	}

	if c.Sweep.Param == "" {
		return nil
	}
	if !slices.Contains(sweepParams[pc.Kind], c.Sweep.Param) {
		return errors.Errorf("%s has no parameter %q, expected one of %v", pc.Kind, c.Sweep.Param, sweepParams[pc.Kind])
	}
	if c.Sweep.Steps < 1 {
		return errors.Errorf("%d sweep steps", c.Sweep.Steps)
	}
	return nil
}

// BuildPotential builds the configured potential.
func (c *Config) BuildPotential() (schrodinger.Potential, error) {
	pc := c.Potential
	switch pc.Kind {
	case schrodinger.NameInfiniteWell:
		return schrodinger.InfiniteWell{Width: pc.Width}, nil
	case schrodinger.NameFiniteWell:
		return schrodinger.FiniteWell{Depth: pc.Depth, Width: pc.Width}, nil
	case schrodinger.NameDoubleWell:
		return schrodinger.DoubleWell{Depth: pc.Depth, Width: pc.Width, Separation: pc.Separation}, nil
	case schrodinger.NameHarmonic:
		return schrodinger.Harmonic{Omega: pc.Omega, Mass: c.Mass}, nil
	}
	return nil, errors.Errorf("unknown potential %q", pc.Kind)
}

func (c *Config) BuildGrid() (schrodinger.Grid, error) {
	newGrid := schrodinger.NewGrid
	if c.Grid.Interior {
		newGrid = schrodinger.InteriorGrid
	}
	g, err := newGrid(c.Grid.XMin, c.Grid.XMax, c.Grid.N)
	if err != nil {
		return schrodinger.Grid{}, errors.Wrap(err, fmt.Sprintf("%+v", c.Grid))
	}
	return g, nil
}

// Problem builds the problem described by the config.
func (c *Config) Problem() (schrodinger.Problem, error) {
	if err := c.Validate(); err != nil {
		return schrodinger.Problem{}, errors.Wrap(err, "")
	}
	grid, err := c.BuildGrid()
	if err != nil {
		return schrodinger.Problem{}, errors.Wrap(err, "")
	}
	potential, err := c.BuildPotential()
	if err != nil {
		return schrodinger.Problem{}, errors.Wrap(err, "")
	}
	return schrodinger.Problem{Hbar: c.Hbar, Mass: c.Mass, Grid: grid, Potential: potential}, nil
}

// SweepValues returns the values of the swept parameter.
func (c *Config) SweepValues() []float64 {
	switch {
	case c.Sweep.Steps < 1:
		return nil
	case c.Sweep.Steps == 1:
		return []float64{c.Sweep.From}
	}
	return floats.Span(make([]float64, c.Sweep.Steps), c.Sweep.From, c.Sweep.To)
}

// Set returns a copy of the config with the swept parameter set to v.
func (c *Config) Set(v float64) (*Config, error) {
	d := *c
	switch c.Sweep.Param {
	case ParamDepth:
		d.Potential.Depth = v
	case ParamWidth:
		d.Potential.Width = v
		if d.Potential.Kind == schrodinger.NameInfiniteWell {
			d.Grid.XMin, d.Grid.XMax = -v/2, v/2
		}
	case ParamSeparation:
		d.Potential.Separation = v
	case ParamOmega:
		d.Potential.Omega = v
	default:
		return nil, errors.Errorf("unknown parameter %q", c.Sweep.Param)
	}
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("%s=%f", c.Sweep.Param, v))
	}
	return &d, nil
}

// ValidateSweep checks every value of the sweep.
func (c *Config) ValidateSweep() error {
	if c.Sweep.Param == "" {
		return errors.Errorf("no sweep parameter")
	}
	for _, v := range c.SweepValues() {
		d, err := c.Set(v)
		if err != nil {
			return errors.Wrap(err, "")
		}
		if _, err := d.Problem(); err != nil {
			return errors.Wrap(err, "")
		}
	}
	return nil
}

// SetProblem returns the problem with the swept parameter set to v, keeping the number of levels of p.
// It panics on values that ValidateSweep rejects.
func (c *Config) SetProblem(p schrodinger.Problem, v float64) schrodinger.Problem {
	d, err := c.Set(v)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	q, err := d.Problem()
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	q.Levels = p.Levels
	return q
}
