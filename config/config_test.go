package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm/geom"
	"github.com/rwcarlsen/biorithm/step"
)

const lineScenario = `
name: line
iterations: 25
interval_ms: 10
agents:
  random: 0
  points:
    - [0, 0, 0]
    - [1, 2, 3]
fitness:
  type: line
  origin: [0, 5, 0]
  dir: [1, 0, 0]
attractors:
  - type: segment
    a: [-1, 0, 0]
    b: [1, 0, 0]
boundary:
  type: sphere
  radius: 50
params:
  c1: 1
  c2: 1
  influence: 0
  max_velocity: 10
  attract_factor: 0.5
  boundary_factor: 2
`

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	require.NoError(t, s.Validate())

	in, err := s.Input()
	require.NoError(t, err)
	assert.True(t, in.Valid())
	assert.Len(t, in.Agents, 20)
	assert.Equal(t, 50*time.Millisecond, in.Interval)
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(lineScenario))
	require.NoError(t, err)
	assert.Equal(t, "line", s.Name)
	assert.True(t, s.Run, "unset fields keep defaults")
	assert.True(t, s.ResetOnIterationChange)

	in, err := s.Input()
	require.NoError(t, err)
	assert.Equal(t, 25, in.Iterations)
	assert.Equal(t, 10*time.Millisecond, in.Interval)
	assert.Equal(t, []r3.Vec{{}, {X: 1, Y: 2, Z: 3}}, in.Agents)
	assert.Equal(t, geom.Line{Origin: r3.Vec{Y: 5}, Dir: r3.Vec{X: 1}}, in.Fitness)
	assert.Equal(t, geom.Sphere{Radius: 50}, in.Boundary)
	require.Len(t, in.Attractors, 1)
	assert.Equal(t, geom.Segment{A: r3.Vec{X: -1}, B: r3.Vec{X: 1}}, in.Attractors[0])
	assert.Equal(t, 0.5, in.AttractFactor)
	assert.Equal(t, 2.0, in.BoundaryFactor)
	assert.Equal(t, 10.0, in.MaxVelocity)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.yaml")
	require.NoError(t, os.WriteFile(path, []byte(lineScenario), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 25, s.Iterations)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BIORITHM_ITERATIONS", "-1")
	t.Setenv("BIORITHM_INTERVAL_MS", "3")
	t.Setenv("BIORITHM_DB", "trace.sqlite")

	s, err := Parse([]byte(lineScenario))
	require.NoError(t, err)
	assert.Equal(t, step.Unbounded, s.Iterations)
	assert.Equal(t, 3, s.IntervalMS)
	assert.Equal(t, "trace.sqlite", s.DB)

	t.Setenv("BIORITHM_ITERATIONS", "many")
	_, err = Parse([]byte(lineScenario))
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name string
		mod  func(s *Scenario)
	}{
		{"zero interval", func(s *Scenario) { s.IntervalMS = 0 }},
		{"iterations below unbounded", func(s *Scenario) { s.Iterations = -2 }},
		{"negative agents", func(s *Scenario) { s.Agents.Random = -1 }},
		{"unknown curve", func(s *Scenario) { s.Fitness.Type = "spiral" }},
		{"empty polyline", func(s *Scenario) { s.Fitness = Curve{Type: "polyline"} }},
		{"flat circle", func(s *Scenario) { s.Fitness = Curve{Type: "circle"} }},
		{"bad attractor", func(s *Scenario) { s.Attractors = []Curve{{Type: "helix"}} }},
		{"unknown solid", func(s *Scenario) { s.Boundary.Type = "torus" }},
		{"inverted box", func(s *Scenario) { s.Boundary.Min = Vec{20, 0, 0} }},
		{"short polytope row", func(s *Scenario) {
			s.Boundary = Solid{Type: "polytope", A: [][]float64{{1, 0}}, B: []float64{1}}
		}},
		{"polytope bound count", func(s *Scenario) {
			s.Boundary = Solid{Type: "polytope", A: [][]float64{{1, 0, 0}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Default()
			tt.mod(s)
			assert.ErrorIs(t, s.Validate(), ErrInvalidScenario)
			_, err := s.Input()
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestUnknownField(t *testing.T) {
	_, err := Parse([]byte("iterations: 3\nwobble: true\n"))
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestRandomAgentsDeterministic(t *testing.T) {
	a, err := Default().Input()
	require.NoError(t, err)
	b, err := Default().Input()
	require.NoError(t, err)
	assert.Equal(t, a.Agents, b.Agents)

	s := Default()
	s.Agents.Seed = 2
	c, err := s.Input()
	require.NoError(t, err)
	assert.NotEqual(t, a.Agents, c.Agents)
}

func TestRandomAgentsInside(t *testing.T) {
	s := Default()
	s.Boundary = Solid{Type: "sphere", Radius: 8}
	s.Agents.Inside = true
	in, err := s.Input()
	require.NoError(t, err)
	require.Len(t, in.Agents, 20)
	for _, p := range in.Agents {
		assert.LessOrEqual(t, r3.Norm(p), 8+1e-6)
	}
}

func TestPolytopeBoundary(t *testing.T) {
	s := Default()
	s.Boundary = Solid{
		Type: "polytope",
		A:    [][]float64{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}},
		B:    []float64{10, 10, 10, 10, 10, 10},
	}
	in, err := s.Input()
	require.NoError(t, err)
	inside, err := in.Boundary.Inside(r3.Vec{X: 9}, 1e-6)
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Default().Marshal()
	require.NoError(t, err)
	s, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}
