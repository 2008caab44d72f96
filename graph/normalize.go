package graph

import (
	"context"
	"sort"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/ctxlog"
)

type options struct {
	ctx    context.Context
	strict bool
}

// Option tunes Normalize.
type Option func(*options)

// WithStrictEdges makes Normalize reject the whole trace when any edge
// references an unknown step, instead of dropping that edge.
func WithStrictEdges() Option {
	return func(o *options) { o.strict = true }
}

// WithContext supplies the context used for logging dropped edges.
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// Normalize converts rec into a Graph.
//
// Rules:
//   - one node per step, sorted by name
//   - explicit edges are used verbatim when present; the sequence is only a
//     fallback and is never merged with them
//   - a sequence of N >= 2 steps yields N-1 edges between consecutive entries
//   - duplicate edges and self-loops pass through unchanged
//   - edges naming an unknown step are dropped and logged, or rejected with
//     WithStrictEdges
func Normalize(rec *traceflow.TraceRecord, opts ...Option) (*Graph, error) {
	o := options{ctx: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	if rec == nil || len(rec.Nodes) == 0 {
		e := &EmptyGraphError{}
		if rec != nil {
			e.TraceID = rec.ID
		}
		return nil, e
	}

	g := &Graph{
		TraceID: rec.ID,
		Nodes:   make([]NodeID, 0, len(rec.Nodes)),
		index:   make(map[NodeID]int, len(rec.Nodes)),
	}
	for name := range rec.Nodes {
		g.Nodes = append(g.Nodes, name)
	}
	sort.Strings(g.Nodes)
	for i, id := range g.Nodes {
		g.index[id] = i
	}

	var candidates []Edge
	switch {
	case len(rec.Edges) > 0:
		candidates = make([]Edge, 0, len(rec.Edges))
		for _, e := range rec.Edges {
			candidates = append(candidates, Edge{Source: e.Source, Target: e.Target, Data: e.Data})
		}
	case len(rec.Sequence) >= 2:
		g.FromSequence = true
		candidates = make([]Edge, 0, len(rec.Sequence)-1)
		for i := 0; i+1 < len(rec.Sequence); i++ {
			candidates = append(candidates, Edge{Source: rec.Sequence[i], Target: rec.Sequence[i+1]})
		}
	}

	logger := ctxlog.FromContext(o.ctx)
	g.Edges = make([]Edge, 0, len(candidates))
	for i, e := range candidates {
		if bad := g.check(i, e); bad != nil {
			if o.strict {
				return nil, bad
			}
			logger.Warn("dropping edge with unknown endpoint",
				"trace", rec.ID, "edge", i, "source", e.Source, "target", e.Target, "missing", bad.Missing)
			g.Dropped = append(g.Dropped, bad)
			continue
		}
		e.Index = len(g.Edges)
		g.Edges = append(g.Edges, e)
	}

	return g, nil
}

func (g *Graph) check(i int, e Edge) *MalformedEdgeError {
	for _, id := range []NodeID{e.Source, e.Target} {
		if !g.Has(id) {
			return &MalformedEdgeError{Index: i, Source: e.Source, Target: e.Target, Missing: id}
		}
	}
	return nil
}
