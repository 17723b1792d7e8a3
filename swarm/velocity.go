package swarm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm/geom"
)

// Params controls the forces applied by UpdateVelocities.
type Params struct {
	// C1 scales the pull toward each particle's personal best.
	C1 float64
	// C2 scales the pull toward the swarm's global best.
	C2 float64
	// Influence scales the random diffusion vector.
	Influence float64
	// MaxVelocity limits the magnitude of every particle's velocity.
	MaxVelocity float64

	Attractors    []geom.Curve
	AttractFactor float64

	// Boundary may be nil, in which case no boundary force is applied.
	Boundary       geom.Solid
	BoundaryFactor float64
	// BoundaryTol is the containment tolerance; zero means
	// DefaultBoundaryTol.
	BoundaryTol float64
}

func (p Params) boundaryTol() float64 {
	if p.BoundaryTol == 0 {
		return DefaultBoundaryTol
	}
	return p.BoundaryTol
}

// UpdateVelocities adds the cognitive, social, diffusion, attraction and
// boundary terms to every particle's velocity and clamps the result to
// p.MaxVelocity.  Each particle consumes five random numbers in order:
// cognitive, social, then diffusion x, y and z.  Velocities are only
// committed if every geometry query succeeds.
func (s *Swarm) UpdateVelocities(p Params) error {
	vels := make([]r3.Vec, len(s.Pop))
	for i, par := range s.Pop {
		r1 := s.rng.Next()
		r2 := s.rng.Next()
		noise := s.randVec()

		cognitive := r3.Scale(p.C1*r1, direction(par.Pos, par.Best.Pos))
		social := r3.Scale(p.C2*r2, direction(par.Pos, s.best.Pos))
		diffusion := r3.Scale(p.Influence, noise)

		attract, err := attraction(par.Pos, p.Attractors)
		if err != nil {
			return fmt.Errorf("swarm: particle %v attraction: %w", par.Id, err)
		}
		bound, err := boundary(par.Pos, p.Boundary, p.boundaryTol())
		if err != nil {
			return fmt.Errorf("swarm: particle %v boundary: %w", par.Id, err)
		}

		v := par.Vel
		for _, term := range []r3.Vec{
			cognitive,
			social,
			diffusion,
			r3.Scale(p.AttractFactor, attract),
			r3.Scale(p.BoundaryFactor, bound),
		} {
			v = r3.Add(v, term)
		}
		vels[i] = clamp(v, p.MaxVelocity)
	}

	for i, par := range s.Pop {
		par.Vel = vels[i]
	}
	return nil
}

// direction returns the unit vector pointing from "from" to "to" or the zero
// vector if they coincide.
func direction(from, to r3.Vec) r3.Vec {
	return unit(r3.Sub(to, from))
}

func unit(v r3.Vec) r3.Vec {
	n := r3.Norm(v)
	if n == 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/n, v)
}

// attraction sums the directions toward each attractor's closest point
// weighted by the inverse distance to it, and returns the unit vector of the
// sum.  An attractor the particle already lies on contributes nothing.
func attraction(pos r3.Vec, attractors []geom.Curve) (r3.Vec, error) {
	var sum r3.Vec
	for _, c := range attractors {
		closest, err := c.ClosestPoint(pos)
		if err != nil {
			return r3.Vec{}, err
		}
		d := geom.Distance(pos, closest)
		if d == 0 {
			continue
		}
		sum = r3.Add(sum, r3.Scale(1/(d*d), r3.Sub(closest, pos)))
	}
	return unit(sum), nil
}

// boundary returns the unit vector from pos toward the closest surface point
// of b when pos lies outside b, and the zero vector otherwise.
func boundary(pos r3.Vec, b geom.Solid, tol float64) (r3.Vec, error) {
	if b == nil {
		return r3.Vec{}, nil
	}
	inside, err := b.Inside(pos, tol)
	if err != nil || inside {
		return r3.Vec{}, err
	}
	closest, err := b.ClosestPoint(pos)
	if err != nil {
		return r3.Vec{}, err
	}
	return direction(pos, closest), nil
}

// clamp rescales v to length max if it is longer.
func clamp(v r3.Vec, max float64) r3.Vec {
	max = math.Max(0, max)
	if n := r3.Norm(v); n > max {
		return r3.Scale(max/n, v)
	}
	return v
}
