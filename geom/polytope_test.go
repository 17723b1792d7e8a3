package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

type projtest struct {
	A    [][]float64
	b    []float64
	x0   []float64
	want []float64
}

func TestOrthoProj(t *testing.T) {
	eps := 1e-10
	var tests []projtest = []projtest{
		{
			A: [][]float64{
				{2, 1},
			},
			b:    []float64{2},
			x0:   []float64{1, 2},
			want: []float64{0.20, 1.60},
		},
		{
			A: [][]float64{
				{1, 0, 0},
				{0, 1, 0},
				{0, 0, 1},
			},
			b:    []float64{1, 2, 3},
			x0:   []float64{9, 9, 9},
			want: []float64{1, 2, 3},
		},
	}

	n := 1000
	xmax := 10 * float64(n)

	A := [][]float64{make([]float64, n)}
	b := []float64{xmax}
	x0 := make([]float64, n)
	want := make([]float64, n)
	for i := range A[0] {
		A[0][i] = 1
		x0[i] = xmax
		want[i] = 10
	}
	bigtest := projtest{A: A, b: b, x0: x0, want: want}
	tests = append(tests, bigtest)

	for n, test := range tests {
		adata := []float64{}
		for _, vals := range test.A {
			adata = append(adata, vals...)
		}
		A := mat.NewDense(len(test.A), len(test.A[0]), adata)
		b := mat.NewDense(len(test.b), 1, test.b)
		got, err := OrthoProj(test.x0, A, b)
		if err != nil {
			t.Errorf("test %v: %v", n, err)
			continue
		}

		for i := range got {
			if diff := math.Abs(got[i] - test.want[i]); diff > eps {
				t.Errorf("test %v proj[%v]: want %v, got %v", n, i, test.want[i], got[i])
			}
		}
	}
}

func TestNearest(t *testing.T) {
	eps := 1e-10
	pt := BoxPolytope(Box{Min: r3.Vec{}, Max: r3.Vec{X: 1, Y: 1, Z: 1}})

	tests := []struct {
		x0, want []float64
	}{
		{x0: []float64{0.5, 0.5, 0.5}, want: []float64{0.5, 0.5, 0.5}},
		{x0: []float64{2, 0.5, 0.5}, want: []float64{1, 0.5, 0.5}},
		{x0: []float64{2, 3, 0.5}, want: []float64{1, 1, 0.5}},
		{x0: []float64{-2, -3, 4}, want: []float64{0, 0, 1}},
	}

	for n, test := range tests {
		got, err := Nearest(test.x0, pt.A, pt.B)
		if err != nil {
			t.Errorf("test %v: %v", n, err)
			continue
		}
		for i := range got {
			if diff := math.Abs(got[i] - test.want[i]); diff > eps {
				t.Errorf("test %v nearest[%v]: want %v, got %v", n, i, test.want[i], got[i])
			}
		}
	}
}

func TestPolytope(t *testing.T) {
	// half space z <= 2 scaled to check row normalization
	pt := NewPolytope([][]float64{{0, 0, 4}}, []float64{8})

	in, _ := pt.Inside(r3.Vec{Z: 2.05}, 0.1)
	if !in {
		t.Errorf("point within tolerance reported outside")
	}
	in, _ = pt.Inside(r3.Vec{Z: 2.5}, 0.1)
	if in {
		t.Errorf("point beyond tolerance reported inside")
	}

	got, err := pt.ClosestPoint(r3.Vec{X: 3, Z: 7})
	if err != nil {
		t.Fatal(err)
	}
	if want := (r3.Vec{X: 3, Z: 2}); Distance(got, want) > 1e-10 {
		t.Errorf("outside: want %v, got %v", want, got)
	}

	got, err = pt.ClosestPoint(r3.Vec{X: 3, Z: -1})
	if err != nil {
		t.Fatal(err)
	}
	if want := (r3.Vec{X: 3, Z: 2}); Distance(got, want) > 1e-10 {
		t.Errorf("inside: want %v, got %v", want, got)
	}
}

func TestNewPolytopePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("mismatched constraint lengths did not panic")
		}
	}()
	NewPolytope([][]float64{{1, 0, 0}}, []float64{1, 2})
}
