package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradbench/internal/optimization"
	"github.com/copyleftdev/gradbench/internal/optimization/objectives"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		flags  specFlags
		x, y   float64
		refine bool
		stride int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single trajectory",
		Long: `Runs one optimizer for a fixed number of steps and prints the final
iterate, its value and the distance to the nearest known optimum.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := flags.spec(cmd)
			if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
				start := optimization.Point{X: x, Y: y}
				if b, err := objectives.Lookup(spec.Objective); err == nil {
					if !cmd.Flags().Changed("x") {
						start.X = b.Start().X
					}
					if !cmd.Flags().Changed("y") {
						start.Y = b.Start().Y
					}
				}
				spec.Start = &start
			}
			spec.HistoryStride = stride

			res, err := a.runner().Trajectory(cmd.Context(), spec, nil)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "algorithm\t%s\n", res.Algorithm)
			fmt.Fprintf(w, "objective\t%s\n", res.Objective)
			fmt.Fprintf(w, "start\t(%g, %g)\n", res.Start.X, res.Start.Y)
			fmt.Fprintf(w, "final\t(%g, %g)\n", res.Final.X, res.Final.Y)
			fmt.Fprintf(w, "value\t%g\n", res.Value)
			fmt.Fprintf(w, "steps\t%d\n", res.Steps)
			fmt.Fprintf(w, "nearest\t(%g, %g) value %g\n", res.Nearest.X, res.Nearest.Y, res.Nearest.Value)
			fmt.Fprintf(w, "distance\t%g\n", res.Distance)
			if !res.Finite {
				fmt.Fprintln(w, "diverged\ttrue")
			}
			fmt.Fprintf(w, "elapsed\t%s\n", res.Elapsed)

			if refine && res.Finite {
				b, err := objectives.Lookup(res.Objective)
				if err != nil {
					return err
				}
				ref, err := objectives.Refine(b, res.Final)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "l-bfgs\t(%g, %g) value %g (%s)\n", ref.X, ref.Y, ref.Value, ref.Status)
			}

			if stride > 0 {
				fmt.Fprintln(w)
				fmt.Fprintln(w, "step\tx\ty\tvalue")
				for _, e := range res.History {
					fmt.Fprintf(w, "%d\t%g\t%g\t%g\n", e.Step, e.X, e.Y, e.Value)
				}
			}
			return w.Flush()
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&x, "x", 0, "Start x (defaults to the objective's start)")
	cmd.Flags().Float64Var(&y, "y", 0, "Start y (defaults to the objective's start)")
	cmd.Flags().BoolVar(&refine, "refine", false, "Polish the final iterate with L-BFGS for comparison")
	cmd.Flags().IntVar(&stride, "history", 0, "Print every n-th iterate (0 disables)")
	return cmd
}
