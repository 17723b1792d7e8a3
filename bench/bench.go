// Package bench provides curve-seeking scenarios for measuring how well a
// swarm converges onto its fitness curve.  Every scenario's optimum is zero:
// any point on the curve.
package bench

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/geom"
	"github.com/rwcarlsen/biorithm/pop"
	"github.com/rwcarlsen/biorithm/step"
	"github.com/rwcarlsen/biorithm/swarm"
)

var AllScenarios = []Scenario{
	Line{},
	Circle{Radius: 5},
	Circle{Radius: 20},
	Helix{Turns: 3},
	Helix{Turns: 10},
	Zigzag{NTeeth: 4},
	Zigzag{NTeeth: 16},
}

type Scenario interface {
	Name() string
	Curve() geom.Curve
	// Bounds is the box agents start in and are kept inside of.
	Bounds() (low, up r3.Vec)
}

// Line runs along the x axis, offset from the center of the bounds.
type Line struct{}

func (sc Line) Name() string { return "Line" }

func (sc Line) Curve() geom.Curve {
	return geom.Line{Origin: r3.Vec{Y: 7, Z: -3}, Dir: r3.Vec{X: 1, Y: 0.2}}
}

func (sc Line) Bounds() (low, up r3.Vec) {
	return r3.Vec{X: -10, Y: -10, Z: -10}, r3.Vec{X: 10, Y: 10, Z: 10}
}

// Circle lies tilted around the origin.
type Circle struct {
	Radius float64
}

func (sc Circle) Name() string { return fmt.Sprintf("Circle_r%v", sc.Radius) }

func (sc Circle) Curve() geom.Curve {
	return geom.Circle{Normal: r3.Vec{X: 1, Y: 1, Z: 1}, Radius: sc.Radius}
}

func (sc Circle) Bounds() (low, up r3.Vec) {
	r := 2 * sc.Radius
	return r3.Vec{X: -r, Y: -r, Z: -r}, r3.Vec{X: r, Y: r, Z: r}
}

// Helix winds up the z axis with radius 4 and pitch 2.
type Helix struct {
	Turns float64
}

func (sc Helix) Name() string { return fmt.Sprintf("Helix_%vturns", sc.Turns) }

func (sc Helix) Curve() geom.Curve {
	return geom.NewHelix(r3.Vec{}, 4, 2, sc.Turns, 32)
}

func (sc Helix) Bounds() (low, up r3.Vec) {
	h := 2 * sc.Turns
	return r3.Vec{X: -8, Y: -8, Z: -2}, r3.Vec{X: 8, Y: 8, Z: h + 2}
}

// Zigzag is a sawtooth polyline in the z=1 plane.
type Zigzag struct {
	NTeeth int
}

func (sc Zigzag) Name() string { return fmt.Sprintf("Zigzag_%vteeth", sc.NTeeth) }

func (sc Zigzag) Curve() geom.Curve {
	pts := make(geom.Polyline, 0, 2*sc.NTeeth+1)
	w := 20 / float64(2*sc.NTeeth)
	for i := 0; i <= 2*sc.NTeeth; i++ {
		y := -2.0
		if i%2 == 1 {
			y = 2
		}
		pts = append(pts, r3.Vec{X: -10 + float64(i)*w, Y: y, Z: 1})
	}
	return pts
}

func (sc Zigzag) Bounds() (low, up r3.Vec) {
	return r3.Vec{X: -12, Y: -12, Z: -12}, r3.Vec{X: 12, Y: 12, Z: 12}
}

// Params returns velocity update parameters suited to sc: the default
// constriction coefficients, light diffusion and a box boundary on sc's
// bounds.
func Params(sc Scenario) swarm.Params {
	return ConstrictedParams(sc, 2.05)
}

// ConstrictedParams is like Params but uses learning factors c1 = c2 = c
// scaled by their constriction coefficient.
func ConstrictedParams(sc Scenario, c float64) swarm.Params {
	low, up := sc.Bounds()
	k := swarm.Constriction(c, c)
	return swarm.Params{
		C1:             k * c,
		C2:             k * c,
		Influence:      0.01,
		MaxVelocity:    r3.Norm(r3.Sub(up, low)) / 10,
		Boundary:       geom.Box{Min: low, Max: up},
		BoundaryFactor: 1,
	}
}

// Benchmark runs a swarm of npar agents, placed in sc's bounds by a generator
// seeded with seed, until its best fitness drops to tol or maxiter ticks have
// run.  It returns the best point found and the number of ticks taken.
func Benchmark(sc Scenario, params swarm.Params, npar, seed int, tol float64, maxiter int, opts ...step.Option) (best biorithm.Point, niter int, err error) {
	ctrl, err := step.New(opts...)
	if err != nil {
		return biorithm.Point{}, 0, err
	}

	low, up := sc.Bounds()
	in := step.Input{
		Run:        true,
		Iterations: maxiter,
		Interval:   step.MinInterval,
		Agents:     pop.New(npar, low, up, biorithm.NewRng(seed)),
		Fitness:    sc.Curve(),
		Params:     params,
	}

	out, err := ctrl.Solve(in)
	if err != nil {
		return biorithm.Point{}, 0, err
	} else if out.Skipped {
		return biorithm.Point{}, 0, fmt.Errorf("bench: %v: incomplete swarm parameters", sc.Name())
	}
	for out.Next != nil && out.Best.Val > tol {
		next, err := ctrl.Tick(in)
		if err != nil {
			return out.Best, out.Iterations, err
		}
		out = next
	}
	return out.Best, out.Iterations, nil
}
