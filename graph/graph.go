// Package graph turns a recorded pipeline trace into the canonical node/edge
// form the layout and renderer work from.
package graph

import "encoding/json"

// NodeID identifies a step. It is the step name from the trace.
type NodeID = string

// Edge is a directed connection in the canonical graph.
// Index is the edge's position in Graph.Edges.
type Edge struct {
	Index  int
	Source NodeID
	Target NodeID
	Data   json.RawMessage
}

// SelfLoop reports whether the edge starts and ends at the same node.
func (e Edge) SelfLoop() bool { return e.Source == e.Target }

// Graph is built once per trace and never mutated afterward.
type Graph struct {
	TraceID string
	Nodes   []NodeID
	Edges   []Edge

	// Dropped lists edges removed because an endpoint was missing.
	Dropped []*MalformedEdgeError

	// FromSequence is true when Edges were synthesized from the sequence.
	FromSequence bool

	index map[NodeID]int
}

// Has reports whether id is a node of g.
func (g *Graph) Has(id NodeID) bool {
	_, ok := g.index[id]
	return ok
}

// IndexOf returns the position of id in Nodes, or -1.
func (g *Graph) IndexOf(id NodeID) int {
	if i, ok := g.index[id]; ok {
		return i
	}
	return -1
}

// Degree counts edges incident to id. Self-loops count once.
func (g *Graph) Degree(id NodeID) int {
	n := 0
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			n++
		}
	}
	return n
}
