package biorithm

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/rwcarlsen/biorithm/geom"
)

const errcount = 3

type ErrObj struct {
	count int
}

func (o *ErrObj) Objective(p r3.Vec) (float64, error) {
	o.count++
	if o.count >= errcount {
		return math.Inf(1), errors.New("fake error")
	}
	return 0, nil
}

func TestSerialEvalerErr(t *testing.T) {
	obj := &ErrObj{}
	ev := SerialEvaler{}

	results, n, err := ev.Eval(obj, Point{}, Point{}, Point{}, Point{}, Point{})
	if len(results) != errcount {
		t.Errorf("returned wrong number of results: expected %v, got %v", errcount, len(results))
	}
	if n != errcount {
		t.Errorf("returned wrong evaluation count: expected %v, got %v", errcount, n)
	}
	if err == nil {
		t.Errorf("did not propogate error through return")
	}
}

func TestSerialEvalerContinue(t *testing.T) {
	obj := &ErrObj{}
	ev := SerialEvaler{ContinueOnErr: true}

	results, n, err := ev.Eval(obj, Point{}, Point{}, Point{}, Point{}, Point{})
	if len(results) != 5 || n != 5 {
		t.Errorf("expected 5 results and evals, got %v and %v", len(results), n)
	}
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

type countObj struct {
	count int
}

func (o *countObj) Objective(p r3.Vec) (float64, error) {
	o.count++
	return p.X + p.Y + p.Z, nil
}

func TestCacheEvaler(t *testing.T) {
	obj := &countObj{}
	ev := NewCacheEvaler(nil)

	p1 := NewPoint(r3.Vec{X: 1}, math.Inf(1))
	p2 := NewPoint(r3.Vec{Y: 2}, math.Inf(1))

	results, n, err := ev.Eval(obj, p1, p2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || results[0].Val != 1 || results[1].Val != 2 {
		t.Errorf("first eval: n=%v results=%v", n, results)
	}

	results, n, err = ev.Eval(obj, p2, NewPoint(r3.Vec{Z: 3}, 0), p1)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected only the unseen point to be evaluated, got %v evals", n)
	}
	if results[0].Val != 2 || results[1].Val != 3 || results[2].Val != 1 {
		t.Errorf("cached values wrong: %v", results)
	}
	if obj.count != 3 || ev.Len() != 3 {
		t.Errorf("want 3 objective calls and 3 cache entries, got %v and %v", obj.count, ev.Len())
	}
}

func TestCacheEvalerErr(t *testing.T) {
	ev := NewCacheEvaler(SerialEvaler{})
	pts := []Point{{Pos: r3.Vec{X: 1}}, {Pos: r3.Vec{X: 2}}, {Pos: r3.Vec{X: 3}}, {Pos: r3.Vec{X: 4}}}

	results, _, err := ev.Eval(&ErrObj{}, pts...)
	if err == nil {
		t.Fatal("did not propogate error through return")
	}
	if len(results) != errcount {
		t.Errorf("want %v results, got %v", errcount, len(results))
	}
	if ev.Len() != errcount-1 {
		t.Errorf("failed evaluation must not be cached: %v entries", ev.Len())
	}
}

func TestCurveFitness(t *testing.T) {
	obj := CurveFitness{Curve: geom.Line{Origin: r3.Vec{Y: 5}, Dir: r3.Vec{X: 1}}}
	val, err := obj.Objective(r3.Vec{X: 12})
	if err != nil {
		t.Fatal(err)
	}
	if val != 5 {
		t.Errorf("want 5, got %v", val)
	}

	bad := CurveFitness{Curve: geom.Polyline{}}
	val, err = bad.Objective(r3.Vec{})
	if err == nil || !math.IsInf(val, 1) {
		t.Errorf("want +Inf and an error, got %v, %v", val, err)
	}
}
