package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rwcarlsen/biorithm"
	"github.com/rwcarlsen/biorithm/bench"
	"github.com/rwcarlsen/biorithm/step"
	"github.com/rwcarlsen/biorithm/swarm"
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run every benchmark scenario and report success rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			npar, _ := cmd.Flags().GetInt("npar")
			nrun, _ := cmd.Flags().GetInt("runs")
			tol, _ := cmd.Flags().GetFloat64("tol")
			maxiter, _ := cmd.Flags().GetInt("maxiter")
			learn, _ := cmd.Flags().GetFloat64("learn")
			cache, _ := cmd.Flags().GetBool("cache")

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SCENARIO\tSUCCESS\tMEAN BEST\tMEAN ITER\tMEAN EVALS")
			for _, sc := range bench.AllScenarios {
				nsuccess, niter, nevals, sum := 0, 0, 0, 0.0
				for seed := 1; seed <= nrun; seed++ {
					var opts []step.Option
					var ev *biorithm.CacheEvaler
					if cache {
						ev = biorithm.NewCacheEvaler(nil)
						opts = append(opts, step.SwarmOptions(swarm.Eval(ev)))
					}

					best, n, err := bench.Benchmark(sc, bench.ConstrictedParams(sc, learn), npar, seed, tol, maxiter, opts...)
					if err != nil {
						return err
					}
					niter += n
					sum += best.Val
					if best.Val <= tol {
						nsuccess++
					}
					if ev != nil {
						nevals += ev.Len()
					}
				}

				evals := "-"
				if cache {
					evals = fmt.Sprintf("%.1f", float64(nevals)/float64(nrun))
				}
				fmt.Fprintf(w, "%v\t%v/%v\t%.4g\t%.1f\t%v\n", sc.Name(), nsuccess, nrun,
					sum/float64(nrun), float64(niter)/float64(nrun), evals)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int("npar", 30, "Agents per swarm")
	cmd.Flags().Int("runs", 10, "Runs per scenario, each with its own seed")
	cmd.Flags().Float64("tol", 0.05, "Fitness at which a run counts as converged")
	cmd.Flags().Int("maxiter", 500, "Maximum ticks per run")
	cmd.Flags().Float64("learn", 2.05, "Learning factor c1 = c2 before constriction")
	cmd.Flags().Bool("cache", false, "Cache fitness evaluations and report distinct evaluations")
	return cmd
}
