package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Polytope is the convex region satisfying A*x <= b.  Rows of A are
// normalized on construction so that A*x - b is a signed distance to each
// face plane.
type Polytope struct {
	A *mat.Dense
	B *mat.Dense
}

// NewPolytope builds a polytope from the constraint rows a and shifts b.
// It panics if a row does not have three columns, if a and b have different
// lengths or if a row is zero.
func NewPolytope(a [][]float64, b []float64) *Polytope {
	if len(a) != len(b) {
		panic(fmt.Sprintf("polytope has %v constraint rows but %v shifts", len(a), len(b)))
	}

	A := mat.NewDense(len(a), 3, nil)
	B := mat.NewDense(len(b), 1, nil)
	for i, row := range a {
		if len(row) != 3 {
			panic(fmt.Sprintf("polytope row %v has %v columns, want 3", i, len(row)))
		}
		norm := math.Sqrt(row[0]*row[0] + row[1]*row[1] + row[2]*row[2])
		if norm == 0 {
			panic(fmt.Sprintf("polytope row %v is zero", i))
		}
		for j, v := range row {
			A.Set(i, j, v/norm)
		}
		B.Set(i, 0, b[i]/norm)
	}
	return &Polytope{A: A, B: B}
}

// BoxPolytope returns the six constraint polytope equivalent to bx.
func BoxPolytope(bx Box) *Polytope {
	return NewPolytope(
		[][]float64{
			{1, 0, 0}, {-1, 0, 0},
			{0, 1, 0}, {0, -1, 0},
			{0, 0, 1}, {0, 0, -1},
		},
		[]float64{bx.Max.X, -bx.Min.X, bx.Max.Y, -bx.Min.Y, bx.Max.Z, -bx.Min.Z},
	)
}

func (pt *Polytope) Inside(p r3.Vec, tol float64) (bool, error) {
	m, _ := pt.A.Dims()
	for i := 0; i < m; i++ {
		if pt.slack(i, p) < -tol {
			return false, nil
		}
	}
	return true, nil
}

// slack returns b_i - a_i*p, the distance of p inside face i.
func (pt *Polytope) slack(i int, p r3.Vec) float64 {
	return pt.B.At(i, 0) - (pt.A.At(i, 0)*p.X + pt.A.At(i, 1)*p.Y + pt.A.At(i, 2)*p.Z)
}

func (pt *Polytope) ClosestPoint(p r3.Vec) (r3.Vec, error) {
	m, _ := pt.A.Dims()
	if m == 0 {
		return r3.Vec{}, ErrDegenerate
	}

	inside, _ := pt.Inside(p, 0)
	if !inside {
		x, err := Nearest([]float64{p.X, p.Y, p.Z}, pt.A, pt.B)
		if err != nil {
			return r3.Vec{}, err
		}
		return r3.Vec{X: x[0], Y: x[1], Z: x[2]}, nil
	}

	// p is inside; push it out through the nearest face
	row, best := 0, math.Inf(1)
	for i := 0; i < m; i++ {
		if s := pt.slack(i, p); s < best {
			row, best = i, s
		}
	}
	n := r3.Vec{X: pt.A.At(row, 0), Y: pt.A.At(row, 1), Z: pt.A.At(row, 2)}
	return r3.Add(p, r3.Scale(best, n)), nil
}

// OrthoProj computes the orthogonal projection of x0 onto the affine subspace
// defined by Ax=b which is the intersection of affine hyperplanes that
// constitute the rows of A with associated shifts in b.  The equation is:
//
//	proj = [I - A^T * (A * A^T)^-1 * A]*x0 + A^T * (A * A^T)^-1 * b
//
// where x0 is the point being projected and I is the identity matrix.  A is
// an m by n matrix where m <= n. if m == n, the returned result is the
// solution to the system A*x0=b
func OrthoProj(x0 []float64, A, b *mat.Dense) ([]float64, error) {
	x := mat.NewDense(len(x0), 1, x0)

	m, n := A.Dims()
	if m == n {
		var proj mat.Dense
		if err := proj.Solve(A, b); err != nil {
			return nil, fmt.Errorf("geom: projecting onto %v planes: %w", m, err)
		}
		return mat.Col(nil, 0, &proj), nil
	}

	var AAtrans mat.Dense
	AAtrans.Mul(A, A.T())

	// B = A^T * (A*A^T)^-1
	var inv mat.Dense
	if err := inv.Inverse(&AAtrans); err != nil {
		return nil, fmt.Errorf("geom: projecting onto %v planes: %w", m, err)
	}
	var B mat.Dense
	B.Mul(A.T(), &inv)

	var BA mat.Dense
	BA.Mul(&B, A)
	var proj mat.Dense
	proj.Sub(eye(n), &BA)

	var out mat.Dense
	out.Mul(&proj, x)

	var shift mat.Dense
	shift.Mul(&B, b)
	out.Add(&out, &shift)

	return mat.Col(nil, 0, &out), nil
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// Nearest returns the nearest point to x0 that doesn't violate constraints in
// the equation Ax <= b.  It greedily projects onto the most violated
// constraints and stops at their intersection once as many constraints as
// dimensions are active, so when several non-orthogonal faces are involved
// the result is not guaranteed to be the true nearest point.
func Nearest(x0 []float64, A, b *mat.Dense) ([]float64, error) {
	proj := x0
	var badA *mat.Dense
	var badb *mat.Dense
	for {
		Aviol, bviol := mostviolated(proj, A, b)

		if Aviol == nil { // projection is complete
			break
		} else if badA == nil {
			badA, badb = Aviol, bviol
		} else {
			tmpA, tmpb := badA, badb
			badA, badb = &mat.Dense{}, &mat.Dense{}
			badA.Stack(tmpA, Aviol)
			badb.Stack(tmpb, bviol)
		}

		var err error
		proj, err = OrthoProj(x0, badA, badb)
		if err != nil {
			return nil, err
		}

		// we have projected to a single point
		if m, n := badA.Dims(); m == n {
			break
		}
	}
	return proj, nil
}

// mostviolated returns the most violated constraint in the system Ax <= b.
// Aviol and b each have one row and len(x0) columns. It returns nil, nil if
// x0 violates no constraints.
func mostviolated(x0 []float64, A, b *mat.Dense) (Aviol, bviol *mat.Dense) {
	eps := 1e-10

	var ax mat.Dense
	xm := mat.NewDense(len(x0), 1, x0)
	ax.Mul(A, xm)

	m, _ := ax.Dims()
	worst := eps
	worstRow := -1
	for i := 0; i < m; i++ {
		if diff := ax.At(i, 0) - b.At(i, 0); diff > worst {
			worst = diff
			worstRow = i
		}
	}
	if worstRow == -1 {
		return nil, nil
	}

	return mat.NewDense(1, len(x0), mat.Row(nil, worstRow, A)), mat.NewDense(1, 1, []float64{b.At(worstRow, 0)})
}
