package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/traceflow/graph"
)

func summaryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <trace.json|->",
		Short: "Print what a trace contains",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context) error {
				rec, err := readTrace(cmd, args[0])
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				sum := rec.Summary()

				row := func(k, v string) {
					fmt.Fprintf(w, "  %s  %s\n", brand.Sprintf("%-10s", k), v)
				}
				row("Trace", orNA(sum.ID))
				if !sum.Timestamp.IsZero() {
					row("Time", sum.Timestamp.Format("2006-01-02 15:04:05"))
				}
				row("Patient", orNA(sum.PatientID))
				row("Hospital", orNA(sum.Hospital))
				row("Ambulance", orNA(sum.Ambulance))

				g, err := graph.Normalize(rec, graph.WithContext(ctx))
				if err != nil {
					row("Steps", "0")
					return nil
				}
				row("Steps", fmt.Sprint(len(g.Nodes)))
				edges := fmt.Sprint(len(g.Edges))
				if g.FromSequence {
					edges += subtle.Sprint(" (from sequence)")
				}
				row("Edges", edges)
				if len(g.Dropped) > 0 {
					row("Dropped", warn.Sprint(len(g.Dropped)))
				}
				return nil
			})
		},
	}
}

func orNA(s string) string {
	if s == "" {
		return subtle.Sprint("n/a")
	}
	return s
}
