// Package pop generates starting agent positions for a swarm.
package pop

import (
	"github.com/petar/GoLLRB/llrb"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/geom"
)

// New generates n positions uniformly distributed in the box spanned by low
// and up.  Coordinates are drawn x, y, z per point from rng.
func New(n int, low, up r3.Vec, rng *biorithm.Rng) []r3.Vec {
	points := make([]r3.Vec, n)
	for i := range points {
		points[i] = randIn(low, up, rng)
	}
	return points
}

func randIn(low, up r3.Vec, rng *biorithm.Rng) r3.Vec {
	x := low.X + rng.Next()*(up.X-low.X)
	y := low.Y + rng.Next()*(up.Y-low.Y)
	z := low.Z + rng.Next()*(up.Z-low.Z)
	return r3.Vec{X: x, Y: y, Z: z}
}

type item struct {
	pos    r3.Vec
	howbad float64
	seq    int
}

func (p1 item) Less(than llrb.Item) bool {
	p2 := than.(item)
	if p1.howbad != p2.howbad {
		return p1.howbad < p2.howbad
	}
	return p1.seq < p2.seq
}

// NewInside tries to generate n positions inside solid.  NewInside
// generates random positions within the box bounds low and up and keeps all
// that lie inside (within tol).  It queues up the least unfavorable outside
// positions, ranked by their distance to the solid's surface, in case n
// inside ones cannot be found within maxiter draws.  nbad is the number of
// outside positions returned and iter the number of draws made.
func NewInside(n, maxiter int, low, up r3.Vec, solid geom.Solid, tol float64, rng *biorithm.Rng) (points []r3.Vec, nbad, iter int, err error) {
	violaters := llrb.New()
	points = make([]r3.Vec, 0, n)
	if n <= 0 {
		return points, 0, 0, nil
	}

	for i := 0; i < maxiter; i++ {
		pos := randIn(low, up, rng)

		inside, err := solid.Inside(pos, tol)
		if err != nil {
			return nil, 0, i, err
		}
		if inside {
			points = append(points, pos)
			if len(points) == n {
				return points, 0, i + 1, nil
			}
			continue
		}

		surf, err := solid.ClosestPoint(pos)
		if err != nil {
			return nil, 0, i, err
		}
		violaters.InsertNoReplace(item{pos: pos, howbad: geom.Distance(pos, surf), seq: i})
		for violaters.Len() > n-len(points) {
			violaters.DeleteMax()
		}
	}

	nbad = n - len(points)
	for len(points) < n && violaters.Len() > 0 {
		points = append(points, violaters.DeleteMin().(item).pos)
	}

	return points, nbad, maxiter, nil
}
