package bench_test

import (
	"database/sql"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/bench"
	"github.com/rwcarlsen/biorithm/step"
	"github.com/rwcarlsen/biorithm/swarm"
)

const (
	npar    = 30
	nrun    = 5
	maxiter = 300
	tol     = 0.05
)

func TestSwarm(t *testing.T) {
	for _, sc := range bench.AllScenarios {
		nsuccess := 0
		niter := 0
		sum := 0.0
		for seed := 1; seed <= nrun; seed++ {
			best, n, err := bench.Benchmark(sc, bench.Params(sc), npar, seed, tol, maxiter)
			require.NoError(t, err, sc.Name())
			assert.False(t, math.IsInf(best.Val, 0), sc.Name())
			assert.LessOrEqual(t, n, maxiter)

			niter += n
			sum += best.Val
			if best.Val <= tol {
				nsuccess++
			}
		}

		t.Logf("[%v] optimum == 0, expect <= %v", sc.Name(), tol)
		t.Logf("  success rate is %v/%v (%v%%) - averaged %v", nsuccess, nrun, float64(nsuccess)/float64(nrun)*100, sum/float64(nrun))
		t.Logf("  averaged %v iter", float64(niter)/float64(nrun))
	}
}

func TestImproves(t *testing.T) {
	for _, sc := range bench.AllScenarios {
		first, _, err := bench.Benchmark(sc, bench.Params(sc), npar, 1, 0, 1)
		require.NoError(t, err, sc.Name())
		last, n, err := bench.Benchmark(sc, bench.Params(sc), npar, 1, 0, 100)
		require.NoError(t, err, sc.Name())
		assert.LessOrEqual(t, last.Val, first.Val, sc.Name())
		assert.Equal(t, 100, n, sc.Name())
	}
}

func TestCurvesInsideBounds(t *testing.T) {
	for _, sc := range bench.AllScenarios {
		low, up := sc.Bounds()
		center := r3.Scale(0.5, r3.Add(low, up))
		p, err := sc.Curve().ClosestPoint(center)
		require.NoError(t, err, sc.Name())
		for _, v := range [][3]float64{{p.X, low.X, up.X}, {p.Y, low.Y, up.Y}, {p.Z, low.Z, up.Z}} {
			assert.True(t, v[0] >= v[1] && v[0] <= v[2], "%v: closest point %v outside bounds", sc.Name(), p)
		}
	}
}

func TestIncompleteParams(t *testing.T) {
	params := bench.Params(bench.Line{})
	params.Boundary = nil
	_, _, err := bench.Benchmark(bench.Line{}, params, npar, 1, tol, maxiter)
	assert.Error(t, err)
}

func TestBenchTrace(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "helix.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	sc := bench.Helix{Turns: 3}
	best, n, err := bench.Benchmark(sc, bench.Params(sc), 10, 1, 0, 20,
		step.DB(db),
		step.SwarmOptions(swarm.Eval(biorithm.NewCacheEvaler(nil))),
	)
	require.NoError(t, err)
	assert.Equal(t, 20, n)

	var minval float64
	require.NoError(t, db.QueryRow("SELECT MIN(val) FROM "+step.TblBest).Scan(&minval))
	assert.Equal(t, best.Val, minval)
}

func TestConstrictedParams(t *testing.T) {
	p := bench.Params(bench.Line{})
	assert.InDelta(t, swarm.DefaultCognition, p.C1, 1e-12)
	assert.InDelta(t, swarm.DefaultSocial, p.C2, 1e-12)

	q := bench.ConstrictedParams(bench.Line{}, 2.5)
	k := swarm.Constriction(2.5, 2.5)
	assert.InDelta(t, k*2.5, q.C1, 1e-12)
	assert.Less(t, q.C1, 2.5)
}
