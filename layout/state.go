package layout

import "github.com/meikuraledutech/traceflow/graph"

// Point is a position on the canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeState is the mutable physics state of one node.
type NodeState struct {
	ID     graph.NodeID
	X, Y   float64
	VX, VY float64

	Pinned bool
	FX, FY float64
}

// State holds every node's physics state for one graph. It belongs to a
// single Simulation and is discarded with it.
type State struct {
	Nodes []NodeState
	index map[graph.NodeID]int
}

func (s *State) node(id graph.NodeID) (*NodeState, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return &s.Nodes[i], true
}

// Position returns the current position of id.
func (s *State) Position(id graph.NodeID) (Point, bool) {
	n, ok := s.node(id)
	if !ok {
		return Point{}, false
	}
	return Point{X: n.X, Y: n.Y}, true
}

// Positions snapshots every node position.
func (s *State) Positions() map[graph.NodeID]Point {
	out := make(map[graph.NodeID]Point, len(s.Nodes))
	for _, n := range s.Nodes {
		out[n.ID] = Point{X: n.X, Y: n.Y}
	}
	return out
}

// Pinned reports whether id is currently pinned.
func (s *State) Pinned(id graph.NodeID) bool {
	n, ok := s.node(id)
	return ok && n.Pinned
}
