// Package swarm implements a particle swarm that moves agents toward the
// closest location on a fitness curve while attractor curves pull on them and
// a boundary solid pushes stray particles back inside.
package swarm

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/geom"
)

// These params are calculated using a constriction factor originally
// described in:
//
//	Clerc and M.  “The swarm and the queen: towards a deterministic and
//	adaptive particle swarm optimization” Proc. 1999 Congress on
//	Evolutionary Computation, pp. 1951-1957
//
// The cognition and social parameters correspond to c1 and c2 values of 2.05
// that have been multiplied by their constriction coeffient - i.e.
// DefaultSocial = Constriction(2.05, 2.05)*2.05.
const (
	DefaultCognition = 1.496179765663133
	DefaultSocial    = 1.496179765663133
)

// DefaultBoundaryTol is the containment tolerance used when Params leaves
// BoundaryTol unset.
const DefaultBoundaryTol = 1e-6

// Constriction calculates the constriction coefficient for the given c1 and
// c2 for the particle velocity equation:
//
//	v_next = k(v_curr + c1*rand*(p_glob-x) + c2*rand*(p_personal-x))
//
// c1+c2 should usually be greater than (but close to) 4.
func Constriction(c1, c2 float64) float64 {
	phi := c1 + c2
	return 2 / math.Abs(2-phi-math.Sqrt(phi*phi-4*phi))
}

// ErrEvalCount is returned when an Evaler reports fewer results than the
// points it was given without an accompanying error.
var ErrEvalCount = errors.New("swarm: evaler returned wrong number of results")

type Particle struct {
	Id  int
	Pos r3.Vec
	// Val is the fitness at Pos.
	Val float64
	Vel r3.Vec
	// Best is the lowest fitness position this particle has visited.
	Best biorithm.Point
	// History holds every position the particle has occupied, oldest first.
	History []r3.Vec
}

// NewParticle places a particle at start.  Its fitness is unknown (+Inf)
// until the swarm evaluates it.
func NewParticle(id int, start, vel r3.Vec) *Particle {
	return &Particle{
		Id:      id,
		Pos:     start,
		Val:     math.Inf(1),
		Vel:     vel,
		Best:    biorithm.NewPoint(start, math.Inf(1)),
		History: []r3.Vec{start},
	}
}

type Population []*Particle

func (pop Population) Points() []biorithm.Point {
	points := make([]biorithm.Point, 0, len(pop))
	for _, p := range pop {
		points = append(points, biorithm.NewPoint(p.Pos, p.Val))
	}
	return points
}

// Best returns the particle with the lowest personal best or nil for an empty
// population.
func (pop Population) Best() *Particle {
	if len(pop) == 0 {
		return nil
	}

	best := pop[0]
	for _, p := range pop[1:] {
		if p.Best.Val < best.Best.Val {
			best = p
		}
	}
	return best
}

// Paths returns a copy of the history of every particle that has moved at
// least once.
func (pop Population) Paths() [][]r3.Vec {
	paths := make([][]r3.Vec, 0, len(pop))
	for _, p := range pop {
		if len(p.History) > 1 {
			paths = append(paths, append([]r3.Vec{}, p.History...))
		}
	}
	return paths
}

type Option func(*Swarm)

// Eval sets the evaler used for all fitness queries.
func Eval(ev biorithm.Evaler) Option {
	return func(s *Swarm) {
		s.ev = ev
	}
}

// LogObjective logs every fitness evaluation to l at trace level.
func LogObjective(l zerolog.Logger) Option {
	return func(s *Swarm) {
		s.log = &l
	}
}

// Swarm is not safe for concurrent use; one update must finish before the
// next one starts.
type Swarm struct {
	Pop  Population
	best biorithm.Point
	rng  *biorithm.Rng
	ev   biorithm.Evaler
	log  *zerolog.Logger
}

// New builds a swarm with one particle per agent.  The random number
// generator is seeded with the number of agents and each particle draws a
// random velocity in [-1,1) per axis, in agent order.  The global best starts
// at the origin.
func New(agents []r3.Vec, fitness geom.Curve, opts ...Option) (*Swarm, error) {
	s := &Swarm{
		Pop: make(Population, 0, len(agents)),
		rng: biorithm.NewRng(len(agents)),
		ev:  biorithm.SerialEvaler{},
	}
	for _, opt := range opts {
		opt(s)
	}

	for i, a := range agents {
		s.Pop = append(s.Pop, NewParticle(i, a, s.randVec()))
	}

	vals, err := s.evaluate(fitness, append([]r3.Vec{{}}, agents...))
	if err != nil {
		return nil, fmt.Errorf("swarm: evaluating agents: %w", err)
	}

	s.best = biorithm.NewPoint(r3.Vec{}, vals[0])
	for i, p := range s.Pop {
		p.Val = vals[i+1]
		p.Best.Val = p.Val
		if p.Val < s.best.Val {
			s.best = p.Best
		}
	}
	return s, nil
}

// Best returns the lowest fitness position any particle has reached.
func (s *Swarm) Best() biorithm.Point { return s.best }

func (s *Swarm) Len() int { return len(s.Pop) }

func (s *Swarm) randVec() r3.Vec {
	x := s.rng.Signed()
	y := s.rng.Signed()
	z := s.rng.Signed()
	return r3.Vec{X: x, Y: y, Z: z}
}

func (s *Swarm) objective(fitness geom.Curve) biorithm.Objectiver {
	var obj biorithm.Objectiver = biorithm.CurveFitness{Curve: fitness}
	if s.log != nil {
		obj = biorithm.NewObjectiveLogger(obj, *s.log)
	}
	return obj
}

func (s *Swarm) evaluate(fitness geom.Curve, pos []r3.Vec) ([]float64, error) {
	points := make([]biorithm.Point, len(pos))
	for i, p := range pos {
		points[i] = biorithm.NewPoint(p, math.Inf(1))
	}

	results, _, err := s.ev.Eval(s.objective(fitness), points...)
	if err != nil {
		return nil, err
	} else if len(results) != len(points) {
		return nil, ErrEvalCount
	}

	vals := make([]float64, len(results))
	for i, r := range results {
		vals[i] = r.Val
	}
	return vals, nil
}

// Update runs one velocity update followed by one position update.
func (s *Swarm) Update(p Params, fitness geom.Curve) error {
	if err := s.UpdateVelocities(p); err != nil {
		return err
	}
	return s.UpdatePositions(fitness)
}

// UpdatePositions moves every particle by its velocity, records the new
// position in its history and refreshes personal and global bests.  Nothing
// is changed if any fitness evaluation fails.
func (s *Swarm) UpdatePositions(fitness geom.Curve) error {
	next := make([]r3.Vec, len(s.Pop))
	for i, p := range s.Pop {
		next[i] = r3.Add(p.Pos, p.Vel)
	}

	vals, err := s.evaluate(fitness, next)
	if err != nil {
		return fmt.Errorf("swarm: evaluating positions: %w", err)
	}

	for i, p := range s.Pop {
		p.Pos = next[i]
		p.Val = vals[i]
		p.History = append(p.History, p.Pos)
		if p.Val < p.Best.Val {
			p.Best = biorithm.NewPoint(p.Pos, p.Val)
			if p.Val < s.best.Val {
				s.best = p.Best
			}
		}
	}
	return nil
}
