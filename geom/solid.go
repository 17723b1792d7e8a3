package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Solid is a closed region of space.
type Solid interface {
	// Inside reports whether p lies inside the solid or within tol of its
	// surface.
	Inside(p r3.Vec, tol float64) (bool, error)
	// ClosestPoint returns the point on the solid's surface nearest to p.
	ClosestPoint(p r3.Vec) (r3.Vec, error)
}

type Sphere struct {
	Center r3.Vec
	Radius float64
}

func (s Sphere) Inside(p r3.Vec, tol float64) (bool, error) {
	return Distance(p, s.Center) <= s.Radius+tol, nil
}

func (s Sphere) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	rel := r3.Sub(p, s.Center)
	if r3.Norm2(rel) == 0 {
		return r3.Add(s.Center, r3.Vec{X: s.Radius}), nil
	}
	return r3.Add(s.Center, r3.Scale(s.Radius, r3.Unit(rel))), nil
}

// Box is an axis aligned box spanning Min to Max.
type Box struct {
	Min, Max r3.Vec
}

func (b Box) Inside(p r3.Vec, tol float64) (bool, error) {
	return p.X >= b.Min.X-tol && p.X <= b.Max.X+tol &&
		p.Y >= b.Min.Y-tol && p.Y <= b.Max.Y+tol &&
		p.Z >= b.Min.Z-tol && p.Z <= b.Max.Z+tol, nil
}

// Clamp slides each coordinate of p to the nearest value inside the box.
func (b Box) Clamp(p r3.Vec) r3.Vec {
	return r3.Vec{
		X: math.Min(b.Max.X, math.Max(b.Min.X, p.X)),
		Y: math.Min(b.Max.Y, math.Max(b.Min.Y, p.Y)),
		Z: math.Min(b.Max.Z, math.Max(b.Min.Z, p.Z)),
	}
}

func (b Box) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	if c := b.Clamp(p); c != p {
		return c, nil
	}

	// p is inside; move it onto the nearest face
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	x := [3]float64{p.X, p.Y, p.Z}
	axis, face, best := 0, lo[0], math.Inf(1)
	for i := range x {
		if d := x[i] - lo[i]; d < best {
			axis, face, best = i, lo[i], d
		}
		if d := hi[i] - x[i]; d < best {
			axis, face, best = i, hi[i], d
		}
	}
	x[axis] = face
	return r3.Vec{X: x[0], Y: x[1], Z: x[2]}, nil
}

// Center returns the midpoint of the box.
func (b Box) Center() r3.Vec { return r3.Scale(0.5, r3.Add(b.Min, b.Max)) }
