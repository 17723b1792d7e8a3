// Package geom provides the geometry queries the swarm depends on: closest
// points on curves, containment in solids and closest points on solid
// surfaces.
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDegenerate is returned by queries on geometry that has no well defined
// closest point, such as a line without a direction or an empty polyline.
var ErrDegenerate = errors.New("geom: degenerate geometry")

// Curve is a one dimensional set of points in space.
type Curve interface {
	// ClosestPoint returns the point on the curve nearest to p.
	ClosestPoint(p r3.Vec) (r3.Vec, error)
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 { return r3.Norm(r3.Sub(a, b)) }

// Line is the infinite line passing through Origin in direction Dir.
type Line struct {
	Origin r3.Vec
	Dir    r3.Vec
}

func (l Line) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	d2 := r3.Norm2(l.Dir)
	if d2 == 0 {
		return r3.Vec{}, ErrDegenerate
	}
	t := r3.Dot(r3.Sub(p, l.Origin), l.Dir) / d2
	return r3.Add(l.Origin, r3.Scale(t, l.Dir)), nil
}

// Segment is the straight line between A and B.
type Segment struct {
	A, B r3.Vec
}

func (s Segment) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	return closestOnSegment(s.A, s.B, p), nil
}

func closestOnSegment(a, b, p r3.Vec) r3.Vec {
	ab := r3.Sub(b, a)
	d2 := r3.Norm2(ab)
	if d2 == 0 {
		return a
	}
	t := r3.Dot(r3.Sub(p, a), ab) / d2
	t = math.Max(0, math.Min(1, t))
	return r3.Add(a, r3.Scale(t, ab))
}

// Polyline is a chain of segments through consecutive vertices.  A polyline
// with a single vertex behaves like a point.
type Polyline []r3.Vec

func (pl Polyline) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	switch len(pl) {
	case 0:
		return r3.Vec{}, ErrDegenerate
	case 1:
		return pl[0], nil
	}

	best := pl[0]
	bestd := math.Inf(1)
	for i := 1; i < len(pl); i++ {
		c := closestOnSegment(pl[i-1], pl[i], p)
		if d := r3.Norm2(r3.Sub(c, p)); d < bestd {
			best, bestd = c, d
		}
	}
	return best, nil
}

// Length returns the total length of all segments.
func (pl Polyline) Length() float64 {
	tot := 0.0
	for i := 1; i < len(pl); i++ {
		tot += Distance(pl[i-1], pl[i])
	}
	return tot
}

// Circle lies in the plane through Center perpendicular to Normal.
type Circle struct {
	Center r3.Vec
	Normal r3.Vec
	Radius float64
}

func (c Circle) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	if r3.Norm2(c.Normal) == 0 {
		return r3.Vec{}, ErrDegenerate
	}
	n := r3.Unit(c.Normal)

	// project p onto the circle's plane
	rel := r3.Sub(p, c.Center)
	inplane := r3.Sub(rel, r3.Scale(r3.Dot(rel, n), n))
	if r3.Norm2(inplane) == 0 {
		// every point on the circle is equally close
		inplane = perpendicular(n)
	}
	return r3.Add(c.Center, r3.Scale(c.Radius, r3.Unit(inplane))), nil
}

// perpendicular returns some vector perpendicular to the unit vector n.
func perpendicular(n r3.Vec) r3.Vec {
	axis := r3.Vec{X: 1}
	if math.Abs(n.X) > 0.9 {
		axis = r3.Vec{Y: 1}
	}
	return r3.Cross(n, axis)
}

// NewHelix samples a helix winding around the Z axis through center into a
// polyline with n vertices per turn.
func NewHelix(center r3.Vec, radius, pitch, turns float64, n int) Polyline {
	if n < 2 {
		n = 2
	}
	total := int(math.Ceil(turns * float64(n)))
	pl := make(Polyline, 0, total+1)
	for i := 0; i <= total; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pl = append(pl, r3.Vec{
			X: center.X + radius*math.Cos(theta),
			Y: center.Y + radius*math.Sin(theta),
			Z: center.Z + pitch*theta/(2*math.Pi),
		})
	}
	return pl
}
