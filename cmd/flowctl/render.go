package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/view"
)

func renderCmd(opts *options) *cobra.Command {
	var (
		out      string
		maxTicks int
		strict   bool
		width    float64
		height   float64
	)

	cmd := &cobra.Command{
		Use:   "render <trace.json|->",
		Short: "Lay out a trace and write it as SVG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				rec, err := readTrace(cmd, args[0])
				if err != nil {
					return err
				}

				vc := cfg.View()
				if strict {
					vc.StrictEdges = true
				}
				if width > 0 {
					vc.Layout.Width, vc.Render.Width = width, width
				}
				if height > 0 {
					vc.Layout.Height, vc.Render.Height = height, height
				}
				if maxTicks <= 0 {
					maxTicks = cfg.Layout.MaxTicks
				}

				var buf bytes.Buffer
				g, err := view.RenderStill(ctx, &buf, rec, vc, maxTicks)
				if err != nil && !errors.Is(err, graph.ErrEmptyGraph) {
					return err
				}
				if err != nil {
					ctxlog.FromContext(ctx).Warn("trace has no steps", "trace", rec.ID)
				}

				if out == "" || out == "-" {
					_, err = cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
					return err
				}

				w := cmd.ErrOrStderr()
				if g == nil {
					warn.Fprintf(w, "  wrote %s (empty)\n", out)
					return nil
				}
				good.Fprintf(w, "  wrote %s", out)
				fmt.Fprintf(w, " %s\n", subtle.Sprintf("(%d nodes, %d edges)", len(g.Nodes), len(g.Edges)))
				for _, d := range g.Dropped {
					warn.Fprintf(w, "  dropped: %v\n", d)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default stdout)")
	cmd.Flags().IntVar(&maxTicks, "max-ticks", 0, "Upper bound on simulation steps (default from config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Reject traces with edges to unknown steps")
	cmd.Flags().Float64Var(&width, "width", 0, "Canvas width")
	cmd.Flags().Float64Var(&height, "height", 0, "Canvas height")
	return cmd
}
