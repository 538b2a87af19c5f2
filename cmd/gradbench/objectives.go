package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/copyleftdev/gradbench/internal/optimization/objectives"
	"github.com/copyleftdev/gradbench/internal/optimization/run"
)

func newObjectivesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "objectives",
		Short: "List benchmark objectives and algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "name\tbounds\tstart\toptima")
			for _, b := range objectives.All() {
				bd := b.Bounds()
				fmt.Fprintf(w, "%s\t[%g,%g]x[%g,%g]\t(%g, %g)\t",
					b.Name(), bd.XMin, bd.XMax, bd.YMin, bd.YMax, b.Start().X, b.Start().Y)
				for i, o := range b.Optima() {
					if i > 0 {
						fmt.Fprint(w, " ")
					}
					fmt.Fprintf(w, "(%g, %g)=%g", o.X, o.Y, o.Value)
				}
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "\nalgorithms\t%v\n", run.Algorithms())
			return w.Flush()
		},
	}
}
