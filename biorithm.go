// Package biorithm holds the pieces shared by the swarm optimizer: points
// with fitness values, objective evaluation and the deterministic random
// number generator.
package biorithm

import (
	"crypto/sha1"
	"encoding/binary"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm/geom"
)

// Point is a position in space along with its objective value.
type Point struct {
	Pos r3.Vec
	Val float64
}

func NewPoint(pos r3.Vec, val float64) Point { return Point{Pos: pos, Val: val} }

func hashPoint(p Point) [sha1.Size]byte {
	var data [24]byte
	binary.BigEndian.PutUint64(data[0:], math.Float64bits(p.Pos.X))
	binary.BigEndian.PutUint64(data[8:], math.Float64bits(p.Pos.Y))
	binary.BigEndian.PutUint64(data[16:], math.Float64bits(p.Pos.Z))
	return sha1.Sum(data[:])
}

type Objectiver interface {
	// Objective evaluates the position p and returns the objective function
	// value.  The objective function must be framed so that lower values are
	// better. If the evaluation fails, positive infinity should be returned
	// along with an error.
	Objective(p r3.Vec) (float64, error)
}

type SimpleObjectiver func(r3.Vec) float64

func (so SimpleObjectiver) Objective(p r3.Vec) (float64, error) { return so(p), nil }

// CurveFitness is the distance from a position to the closest point on
// Curve.
type CurveFitness struct {
	Curve geom.Curve
}

func (cf CurveFitness) Objective(p r3.Vec) (float64, error) {
	closest, err := cf.Curve.ClosestPoint(p)
	if err != nil {
		return math.Inf(1), err
	}
	return geom.Distance(p, closest), nil
}

type Evaler interface {
	// Eval evaluates each point using obj and returns the values and number
	// of function evaluations n.  Unevaluated points should not be returned
	// in the results slice.
	Eval(obj Objectiver, points ...Point) (results []Point, n int, err error)
}

type SerialEvaler struct {
	ContinueOnErr bool
}

func (ev SerialEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	results = make([]Point, 0, len(points))
	for _, p := range points {
		p.Val, err = obj.Objective(p.Pos)
		results = append(results, p)
		if err != nil && !ev.ContinueOnErr {
			return results, len(results), err
		}
	}
	return results, len(results), nil
}

// CacheEvaler remembers the objective value of every position it has seen
// and only forwards unseen positions to the wrapped Evaler.  A CacheEvaler
// must only ever be used with a single objective.
type CacheEvaler struct {
	ev    Evaler
	cache map[[sha1.Size]byte]float64
}

func NewCacheEvaler(ev Evaler) *CacheEvaler {
	if ev == nil {
		ev = SerialEvaler{}
	}
	return &CacheEvaler{
		ev:    ev,
		cache: map[[sha1.Size]byte]float64{},
	}
}

// Len returns the number of cached positions.
func (ev *CacheEvaler) Len() int { return len(ev.cache) }

func (ev *CacheEvaler) Eval(obj Objectiver, points ...Point) (results []Point, n int, err error) {
	results = append([]Point{}, points...)
	fromnew := make([]int, 0, len(points))
	newp := make([]Point, 0, len(points))
	for i, p := range results {
		if val, ok := ev.cache[hashPoint(p)]; ok {
			results[i].Val = val
		} else {
			fromnew = append(fromnew, i)
			newp = append(newp, p)
		}
	}
	if len(newp) == 0 {
		return results, 0, nil
	}

	newresults, n, err := ev.ev.Eval(obj, newp...)
	for i, p := range newresults {
		results[fromnew[i]].Val = p.Val
		// the last result carries the failure
		if err == nil || i < len(newresults)-1 {
			ev.cache[hashPoint(p)] = p.Val
		}
	}

	// shrink if error resulted in fewer new results being returned
	if err != nil {
		if len(newresults) == 0 {
			return results[:fromnew[0]], n, err
		}
		return results[:fromnew[len(newresults)-1]+1], n, err
	}
	return results, n, nil
}

// ObjectiveLogger logs every evaluation of the wrapped objective at trace
// level.
type ObjectiveLogger struct {
	Objectiver
	Log   zerolog.Logger
	Count int
}

func NewObjectiveLogger(obj Objectiver, log zerolog.Logger) *ObjectiveLogger {
	return &ObjectiveLogger{Objectiver: obj, Log: log}
}

func (ol *ObjectiveLogger) Objective(p r3.Vec) (float64, error) {
	val, err := ol.Objectiver.Objective(p)

	ol.Count++
	ol.Log.Trace().
		Int("count", ol.Count).
		Float64("x", p.X).
		Float64("y", p.Y).
		Float64("z", p.Z).
		Float64("val", val).
		Err(err).
		Msg("objective evaluated")

	return val, err
}
