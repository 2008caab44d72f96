package view

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
	"github.com/meikuraledutech/traceflow/scene"
)

// RenderStill draws rec once without a container: the layout runs until
// it settles or maxTicks steps have passed, then a single SVG is written.
// Absent and empty records produce the same placeholders a container shows;
// an empty record also returns an error matching graph.ErrEmptyGraph.
func RenderStill(ctx context.Context, w io.Writer, rec *traceflow.TraceRecord, cfg Config, maxTicks int) (*graph.Graph, error) {
	cfg = cfg.withDefaults()
	if rec == nil {
		return nil, scene.NewRenderer(cfg.renderOptions()).RenderEmpty(w, cfg.EmptyMessage)
	}

	g, err := graph.Normalize(rec, cfg.normalizeOptions(ctx)...)
	if errors.Is(err, graph.ErrEmptyGraph) {
		if rerr := scene.NewRenderer(cfg.renderOptions()).RenderEmpty(w, cfg.NoNodesMessage); rerr != nil {
			return nil, rerr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	sess := NewSession("", 0, rec, g, cfg, interact.Hooks{})
	sess.Simulation().Run(maxTicks)
	f, err := sess.Render()
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, f.SVG); err != nil {
		return nil, fmt.Errorf("view: write: %w", err)
	}
	return g, nil
}
