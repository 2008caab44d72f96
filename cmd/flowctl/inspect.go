package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/payload"
)

func inspectCmd(opts *options) *cobra.Command {
	var edge int

	cmd := &cobra.Command{
		Use:   "inspect <trace.json|-> [step]",
		Short: "Show step or edge payloads",
		Long: "Without a step, lists every step with its summarized input and output.\n" +
			"With a step, prints its full input and output. --edge prints an edge's data.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context) error {
				rec, err := readTrace(cmd, args[0])
				if err != nil {
					return err
				}
				g, err := graph.Normalize(rec, graph.WithContext(ctx))
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()

				if cmd.Flags().Changed("edge") {
					if edge < 0 || edge >= len(g.Edges) {
						return fmt.Errorf("edge %d out of range (trace has %d)", edge, len(g.Edges))
					}
					e := g.Edges[edge]
					printDetail(w, payload.EdgeDetail(e.Source, e.Target, e.Data))
					return nil
				}

				if len(args) == 2 {
					step, ok := rec.Step(args[1])
					if !ok {
						return fmt.Errorf("%w: %q", traceflow.ErrStepNotFound, args[1])
					}
					printDetail(w, payload.NodeDetail(args[1], step.Input, step.Output))
					return nil
				}

				for _, id := range g.Nodes {
					step, _ := rec.Step(id)
					brand.Fprintln(w, id)
					fmt.Fprintf(w, "  %s\n%s\n", subtle.Sprint("input"), indentLines(payload.SummarizeRaw(step.Input), "    "))
					fmt.Fprintf(w, "  %s\n%s\n\n", subtle.Sprint("output"), indentLines(payload.SummarizeRaw(step.Output), "    "))
				}
				for _, e := range g.Edges {
					fmt.Fprintf(w, "%s %s -> %s\n", subtle.Sprintf("[%d]", e.Index), e.Source, e.Target)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&edge, "edge", 0, "Print the data of the edge with this index")
	return cmd
}

func printDetail(w io.Writer, d payload.Detail) {
	brand.Fprintln(w, d.Title)
	for _, s := range d.Sections {
		fmt.Fprintln(w)
		subtle.Fprintln(w, s.Heading)
		fmt.Fprintln(w, s.Body)
	}
}

func indentLines(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
