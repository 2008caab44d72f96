// Package scene draws a laid-out graph as SVG and keeps just enough of the
// drawing to map pointer positions back to nodes and edges.
package scene

import (
	"strings"

	"github.com/meikuraledutech/traceflow/graph"
)

// DefaultColor fills steps without a known type.
const DefaultColor = "#0d6efd"

// typeColors is keyed by the step type, the step name without "Agent".
var typeColors = map[string]string{
	"Triage":    "#dc3545",
	"Hospital":  "#198754",
	"Dispatch":  "#0dcaf0",
	"Optimizer": "#6f42c1",
	"QA":        "#fd7e14",
	"QAChatbot": "#fd7e14",
}

// NodeVisual is the display form of a node.
type NodeVisual struct {
	ID    graph.NodeID
	Label string
	Color string
}

// Label abbreviates a step name by dropping the "Agent" suffix.
func Label(id graph.NodeID) string {
	if l := strings.TrimSuffix(id, "Agent"); l != "" {
		return l
	}
	return id
}

// Color picks the fill for a step name.
func Color(id graph.NodeID) string {
	if c, ok := typeColors[Label(id)]; ok {
		return c
	}
	return DefaultColor
}

// Visuals derives one NodeVisual per node of g, in node order.
func Visuals(g *graph.Graph) []NodeVisual {
	out := make([]NodeVisual, len(g.Nodes))
	for i, id := range g.Nodes {
		out[i] = NodeVisual{ID: id, Label: Label(id), Color: Color(id)}
	}
	return out
}
