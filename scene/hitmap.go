package scene

import (
	"math"

	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/layout"
)

// TargetKind says what a pointer is over.
type TargetKind int

const (
	None TargetKind = iota
	NodeTarget
	EdgeTarget
)

// Target identifies the element under a point.
type Target struct {
	Kind TargetKind
	Node graph.NodeID
	Edge int
}

// Same reports whether t and o refer to the same element.
func (t Target) Same(o Target) bool {
	if t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case NodeTarget:
		return t.Node == o.Node
	case EdgeTarget:
		return t.Edge == o.Edge
	}
	return true
}

type nodeHit struct {
	id     graph.NodeID
	center layout.Point
	radius float64
}

type edgeHit struct {
	index int
	a, b  layout.Point
	// loop edges are hit by their ring instead of a segment
	loop   bool
	radius float64
}

// HitMap is the geometry of the last render, in draw order.
type HitMap struct {
	nodes []nodeHit
	edges []edgeHit
	slack float64
}

// At returns the topmost element at (x, y). Nodes are drawn above edges and
// win ties.
func (h *HitMap) At(x, y float64) Target {
	if h == nil {
		return Target{}
	}
	p := layout.Point{X: x, Y: y}
	for i := len(h.nodes) - 1; i >= 0; i-- {
		n := h.nodes[i]
		if dist(p, n.center) <= n.radius {
			return Target{Kind: NodeTarget, Node: n.id}
		}
	}
	for i := len(h.edges) - 1; i >= 0; i-- {
		e := h.edges[i]
		if e.loop {
			if math.Abs(dist(p, e.a)-e.radius) <= h.slack {
				return Target{Kind: EdgeTarget, Edge: e.index}
			}
			continue
		}
		if segmentDist(p, e.a, e.b) <= h.slack {
			return Target{Kind: EdgeTarget, Edge: e.index}
		}
	}
	return Target{}
}

// NodeCenter returns where id was drawn.
func (h *HitMap) NodeCenter(id graph.NodeID) (layout.Point, bool) {
	if h == nil {
		return layout.Point{}, false
	}
	for _, n := range h.nodes {
		if n.id == id {
			return n.center, true
		}
	}
	return layout.Point{}, false
}

func dist(a, b layout.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func segmentDist(p, a, b layout.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return dist(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return dist(p, layout.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
