// Package config loads swarm scenarios from YAML and turns them into
// controller inputs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/geom"
	"github.com/rwcarlsen/biorithm/pop"
	"github.com/rwcarlsen/biorithm/step"
	"github.com/rwcarlsen/biorithm/swarm"
)

var ErrInvalidScenario = errors.New("config: invalid scenario")

// Vec is a point written as a three element YAML sequence.
type Vec [3]float64

func (v Vec) R3() r3.Vec { return r3.Vec{X: v[0], Y: v[1], Z: v[2]} }

func vecs(vs []Vec) []r3.Vec {
	out := make([]r3.Vec, len(vs))
	for i, v := range vs {
		out[i] = v.R3()
	}
	return out
}

// Curve describes a geom.Curve.  Type is one of line, segment, polyline,
// circle or helix; only the fields of that type are read.
type Curve struct {
	Type   string  `yaml:"type"`
	Origin Vec     `yaml:"origin,omitempty"`
	Dir    Vec     `yaml:"dir,omitempty"`
	A      Vec     `yaml:"a,omitempty"`
	B      Vec     `yaml:"b,omitempty"`
	Points []Vec   `yaml:"points,omitempty"`
	Center Vec     `yaml:"center,omitempty"`
	Normal Vec     `yaml:"normal,omitempty"`
	Radius float64 `yaml:"radius,omitempty"`
	Pitch  float64 `yaml:"pitch,omitempty"`
	Turns  float64 `yaml:"turns,omitempty"`
	// Segments is the number of polyline segments per helix turn.
	Segments int `yaml:"segments,omitempty"`
}

func (c Curve) Build() (geom.Curve, error) {
	switch c.Type {
	case "line":
		return geom.Line{Origin: c.Origin.R3(), Dir: c.Dir.R3()}, nil
	case "segment":
		return geom.Segment{A: c.A.R3(), B: c.B.R3()}, nil
	case "polyline":
		if len(c.Points) == 0 {
			return nil, fmt.Errorf("%w: polyline without points", ErrInvalidScenario)
		}
		return geom.Polyline(vecs(c.Points)), nil
	case "circle":
		if c.Radius <= 0 {
			return nil, fmt.Errorf("%w: circle radius %v", ErrInvalidScenario, c.Radius)
		}
		return geom.Circle{Center: c.Center.R3(), Normal: c.Normal.R3(), Radius: c.Radius}, nil
	case "helix":
		n := c.Segments
		if n <= 0 {
			n = 32
		}
		if c.Radius <= 0 || c.Turns <= 0 {
			return nil, fmt.Errorf("%w: helix radius %v, turns %v", ErrInvalidScenario, c.Radius, c.Turns)
		}
		return geom.NewHelix(c.Center.R3(), c.Radius, c.Pitch, c.Turns, n), nil
	}
	return nil, fmt.Errorf("%w: unknown curve type %q", ErrInvalidScenario, c.Type)
}

// Solid describes a geom.Solid.  Type is one of sphere, box or polytope.
// A polytope is the set of points x with A x <= B.
type Solid struct {
	Type   string      `yaml:"type"`
	Center Vec         `yaml:"center,omitempty"`
	Radius float64     `yaml:"radius,omitempty"`
	Min    Vec         `yaml:"min,omitempty"`
	Max    Vec         `yaml:"max,omitempty"`
	A      [][]float64 `yaml:"a,omitempty"`
	B      []float64   `yaml:"b,omitempty"`
}

func (s Solid) Build() (geom.Solid, error) {
	switch s.Type {
	case "sphere":
		if s.Radius <= 0 {
			return nil, fmt.Errorf("%w: sphere radius %v", ErrInvalidScenario, s.Radius)
		}
		return geom.Sphere{Center: s.Center.R3(), Radius: s.Radius}, nil
	case "box":
		for i := range s.Min {
			if s.Min[i] > s.Max[i] {
				return nil, fmt.Errorf("%w: box min %v above max %v", ErrInvalidScenario, s.Min, s.Max)
			}
		}
		return geom.Box{Min: s.Min.R3(), Max: s.Max.R3()}, nil
	case "polytope":
		if len(s.A) == 0 || len(s.A) != len(s.B) {
			return nil, fmt.Errorf("%w: polytope has %v rows and %v bounds", ErrInvalidScenario, len(s.A), len(s.B))
		}
		for i, row := range s.A {
			if len(row) != 3 {
				return nil, fmt.Errorf("%w: polytope row %v has %v columns", ErrInvalidScenario, i, len(row))
			}
		}
		return geom.NewPolytope(s.A, s.B), nil
	}
	return nil, fmt.Errorf("%w: unknown solid type %q", ErrInvalidScenario, s.Type)
}

// Agents lists explicit starting points and optionally adds Random points
// drawn uniformly from the box [Min, Max].  If Inside is set the random
// points are drawn from the part of the box inside the boundary.
type Agents struct {
	Points []Vec `yaml:"points,omitempty"`
	Random int   `yaml:"random,omitempty"`
	Min    Vec   `yaml:"min,omitempty"`
	Max    Vec   `yaml:"max,omitempty"`
	Inside bool  `yaml:"inside,omitempty"`
	// Seed seeds the generator used for random agents.
	Seed int `yaml:"seed,omitempty"`
}

// Params holds the velocity update coefficients.
type Params struct {
	C1             float64 `yaml:"c1"`
	C2             float64 `yaml:"c2"`
	Influence      float64 `yaml:"influence"`
	MaxVelocity    float64 `yaml:"max_velocity"`
	AttractFactor  float64 `yaml:"attract_factor"`
	BoundaryFactor float64 `yaml:"boundary_factor"`
	BoundaryTol    float64 `yaml:"boundary_tol,omitempty"`
}

type Scenario struct {
	Name       string  `yaml:"name"`
	Run        bool    `yaml:"run"`
	Iterations int     `yaml:"iterations"`
	IntervalMS int     `yaml:"interval_ms"`
	Agents     Agents  `yaml:"agents"`
	Fitness    Curve   `yaml:"fitness"`
	Attractors []Curve `yaml:"attractors,omitempty"`
	Boundary   Solid   `yaml:"boundary"`
	Params     Params  `yaml:"params"`

	ResetOnIterationChange bool `yaml:"reset_on_iteration_change"`
	// Cache remembers fitness values of positions already evaluated.
	Cache bool `yaml:"cache,omitempty"`
	// DB is the path of an sqlite trace database; empty disables tracing.
	DB string `yaml:"db,omitempty"`
}

// Default returns a runnable scenario: twenty agents chasing a helix inside
// a box.
func Default() *Scenario {
	return &Scenario{
		Name:       "helix",
		Run:        true,
		Iterations: 200,
		IntervalMS: 50,
		Agents: Agents{
			Random: 20,
			Min:    Vec{-10, -10, -10},
			Max:    Vec{10, 10, 10},
			Seed:   1,
		},
		Fitness: Curve{Type: "helix", Radius: 4, Pitch: 2, Turns: 3, Segments: 32},
		Boundary: Solid{
			Type: "box",
			Min:  Vec{-10, -10, -10},
			Max:  Vec{10, 10, 10},
		},
		Params: Params{
			C1:             swarm.DefaultCognition,
			C2:             swarm.DefaultSocial,
			Influence:      0.05,
			MaxVelocity:    1,
			AttractFactor:  0,
			BoundaryFactor: 1,
		},
		ResetOnIterationChange: true,
	}
}

// Load reads a scenario from a YAML file.  Fields missing from the file keep
// their Default values.  Environment overrides are applied afterwards.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Parse decodes a scenario from YAML.  Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	s := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Marshal encodes s as YAML.
func (s *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}

// ApplyEnv overrides fields from BIORITHM_INTERVAL_MS, BIORITHM_ITERATIONS
// and BIORITHM_DB when they are set.
func (s *Scenario) ApplyEnv() error {
	var err error
	if s.IntervalMS, err = envInt("BIORITHM_INTERVAL_MS", s.IntervalMS); err != nil {
		return err
	}
	if s.Iterations, err = envInt("BIORITHM_ITERATIONS", s.Iterations); err != nil {
		return err
	}
	s.DB = envOrDefault("BIORITHM_DB", s.DB)
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := envOrDefault(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %v=%q is not an integer", ErrInvalidScenario, key, v)
	}
	return n, nil
}

// Validate checks everything that can be checked without building geometry.
func (s *Scenario) Validate() error {
	switch {
	case s.IntervalMS < 1:
		return fmt.Errorf("%w: interval_ms %v must be at least 1", ErrInvalidScenario, s.IntervalMS)
	case s.Iterations < step.Unbounded:
		return fmt.Errorf("%w: iterations %v", ErrInvalidScenario, s.Iterations)
	case s.Agents.Random < 0:
		return fmt.Errorf("%w: negative random agent count", ErrInvalidScenario)
	case s.Params.MaxVelocity < 0:
		return fmt.Errorf("%w: negative max_velocity", ErrInvalidScenario)
	}
	if _, err := s.Fitness.Build(); err != nil {
		return fmt.Errorf("fitness: %w", err)
	}
	for i, a := range s.Attractors {
		if _, err := a.Build(); err != nil {
			return fmt.Errorf("attractor %v: %w", i, err)
		}
	}
	if _, err := s.Boundary.Build(); err != nil {
		return fmt.Errorf("boundary: %w", err)
	}
	return nil
}

// Input builds the controller input described by s.  Random agents are
// drawn from a generator seeded with Agents.Seed, so the same scenario
// always yields the same agents.
func (s *Scenario) Input() (step.Input, error) {
	if err := s.Validate(); err != nil {
		return step.Input{}, err
	}
	fitness, _ := s.Fitness.Build()
	boundary, _ := s.Boundary.Build()
	attractors := make([]geom.Curve, len(s.Attractors))
	for i, a := range s.Attractors {
		attractors[i], _ = a.Build()
	}

	agents := vecs(s.Agents.Points)
	if n := s.Agents.Random; n > 0 {
		rng := biorithm.NewRng(s.Agents.Seed)
		low, up := s.Agents.Min.R3(), s.Agents.Max.R3()
		if s.Agents.Inside {
			tol := s.Params.BoundaryTol
			if tol == 0 {
				tol = swarm.DefaultBoundaryTol
			}
			pts, _, _, err := pop.NewInside(n, 100*n, low, up, boundary, tol, rng)
			if err != nil {
				return step.Input{}, fmt.Errorf("config: placing agents: %w", err)
			}
			agents = append(agents, pts...)
		} else {
			agents = append(agents, pop.New(n, low, up, rng)...)
		}
	}

	return step.Input{
		Run:        s.Run,
		Iterations: s.Iterations,
		Interval:   time.Duration(s.IntervalMS) * time.Millisecond,
		Agents:     agents,
		Fitness:    fitness,
		Params: swarm.Params{
			C1:             s.Params.C1,
			C2:             s.Params.C2,
			Influence:      s.Params.Influence,
			MaxVelocity:    s.Params.MaxVelocity,
			Attractors:     attractors,
			AttractFactor:  s.Params.AttractFactor,
			Boundary:       boundary,
			BoundaryFactor: s.Params.BoundaryFactor,
			BoundaryTol:    s.Params.BoundaryTol,
		},
	}, nil
}
