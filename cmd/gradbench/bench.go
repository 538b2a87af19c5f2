package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradbench/internal/optimization/objectives"
	"github.com/copyleftdev/gradbench/internal/optimization/run"
)

func newBenchCmd(a *app) *cobra.Command {
	var (
		flags specFlags
		runs  int
		seed  uint64
		tol   float64
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run from many random starts and summarize",
		Long: `Samples start points uniformly inside the objective's bounds, runs the
optimizer from each and reports how often it lands on a known optimum.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if runs < 1 {
				return fmt.Errorf("runs must be positive, got %d", runs)
			}
			spec := flags.spec(cmd)
			b, err := objectives.Lookup(spec.Objective)
			if err != nil {
				return err
			}

			starts := run.SampleStarts(b.Bounds(), runs, seed)
			a.logger.Info("Benchmark started", map[string]interface{}{
				"algorithm": spec.Algorithm,
				"objective": spec.Objective,
				"runs":      runs,
				"seed":      seed,
			})

			results, err := a.runner().MultiStart(cmd.Context(), spec, starts)
			if err != nil {
				return err
			}
			s := run.Summarize(results, tol)

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "algorithm\t%s\n", spec.Algorithm)
			fmt.Fprintf(w, "objective\t%s\n", spec.Objective)
			fmt.Fprintf(w, "runs\t%d\n", s.Runs)
			fmt.Fprintf(w, "diverged\t%d\n", s.Diverged)
			fmt.Fprintf(w, "hits\t%d (tol %g)\n", s.Hits, tol)
			fmt.Fprintf(w, "distance\t%g ± %g (sd %g)\n", s.MeanDistance, s.CI95, s.StdDistance)
			fmt.Fprintf(w, "value\t%g\n", s.MeanValue)
			return w.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&runs, "runs", 16, "Number of random starts")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for start sampling")
	cmd.Flags().Float64Var(&tol, "tol", 1e-3, "Distance counted as reaching an optimum")
	return cmd
}
