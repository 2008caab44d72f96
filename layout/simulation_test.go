package layout

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
)

func buildGraph(t *testing.T, names []string, seq []string, edges ...traceflow.TraceEdge) *graph.Graph {
	t.Helper()
	nodes := make(map[string]traceflow.StepResult, len(names))
	for _, n := range names {
		nodes[n] = traceflow.StepResult{}
	}
	g, err := graph.Normalize(&traceflow.TraceRecord{Nodes: nodes, Sequence: seq, Edges: edges})
	require.NoError(t, err)
	return g
}

func requireFinite(t *testing.T, st *State) {
	t.Helper()
	for _, n := range st.Nodes {
		require.False(t, math.IsNaN(n.X) || math.IsInf(n.X, 0), "x of %s", n.ID)
		require.False(t, math.IsNaN(n.Y) || math.IsInf(n.Y, 0), "y of %s", n.ID)
	}
}

func TestIsolatedNodeGetsFinitePosition(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "Lonely"}, []string{"A", "B"})
	sim := New(g, DefaultParams())

	for i := 0; i < 5; i++ {
		requireFinite(t, sim.Step(1))
	}
	sim.Run(1000)
	requireFinite(t, sim.State())

	p, ok := sim.State().Position("Lonely")
	require.True(t, ok)
	// Settles somewhere on the canvas, pulled toward the center.
	assert.InDelta(t, 400, p.X, 400)
	assert.InDelta(t, 200, p.Y, 400)
}

func TestSingleNodeAndSelfLoop(t *testing.T) {
	g := buildGraph(t, []string{"A"}, nil, traceflow.TraceEdge{Source: "A", Target: "A"})
	sim := New(g, DefaultParams())
	sim.Run(500)
	requireFinite(t, sim.State())
	p, _ := sim.State().Position("A")
	assert.InDelta(t, 400, p.X, 20)
	assert.InDelta(t, 200, p.Y, 20)
}

func TestCoincidentNodesSeparate(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, nil)
	sim := New(g, DefaultParams())
	for i := range sim.State().Nodes {
		sim.State().Nodes[i].X, sim.State().Nodes[i].Y = 100, 100
	}
	sim.Run(300)
	requireFinite(t, sim.State())
	a, _ := sim.State().Position("A")
	b, _ := sim.State().Position("B")
	assert.Greater(t, math.Hypot(a.X-b.X, a.Y-b.Y), 1.0)
}

func TestPinHoldsPositionExactly(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, []string{"A", "B", "C"})
	sim := New(g, DefaultParams())
	sim.Run(20)

	require.True(t, sim.Pin("B", 42, 17))
	for i := 0; i < 50; i++ {
		st := sim.Step(1)
		p, _ := st.Position("B")
		require.Equal(t, Point{X: 42, Y: 17}, p, "tick %d", i)
		require.True(t, st.Pinned("B"))
	}

	require.True(t, sim.Unpin("B"))
	sim.Step(1)
	p, _ := sim.State().Position("B")
	assert.NotEqual(t, Point{X: 42, Y: 17}, p)
	assert.False(t, sim.State().Pinned("B"))
}

func TestPinUnknownNode(t *testing.T) {
	g := buildGraph(t, []string{"A"}, nil)
	sim := New(g, DefaultParams())
	assert.False(t, sim.Pin("nope", 1, 1))
	assert.False(t, sim.Unpin("nope"))
}

func TestConvergesThenReheats(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C", "D"}, []string{"A", "B", "C", "D"})
	sim := New(g, DefaultParams())

	ticks := sim.Run(2000)
	assert.Less(t, ticks, 2000)
	require.True(t, sim.Idle())

	sim.Pin("A", 10, 10)
	assert.False(t, sim.Idle())
	assert.GreaterOrEqual(t, sim.Alpha(), DefaultParams().ReheatAlpha)

	// While something is pinned the simulation stays warm.
	sim.Run(2000)
	assert.False(t, sim.Idle())

	sim.Unpin("A")
	assert.False(t, sim.Idle())
	sim.Run(2000)
	assert.True(t, sim.Idle())
}

func TestLinkedNodesSettleNearRestLength(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, []string{"A", "B"})
	sim := New(g, DefaultParams())
	sim.Run(1000)

	a, _ := sim.State().Position("A")
	b, _ := sim.State().Position("B")
	assert.InDelta(t, 120, math.Hypot(a.X-b.X, a.Y-b.Y), 60)
}

func TestRandomizedStart(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, []string{"A", "B", "C"})
	s1 := New(g, DefaultParams(), WithRand(rand.New(rand.NewPCG(1, 2))))
	s2 := New(g, DefaultParams(), WithRand(rand.New(rand.NewPCG(3, 4))))
	assert.NotEqual(t, s1.State().Positions(), s2.State().Positions())
}

func TestParamsDefaults(t *testing.T) {
	p := Params{Width: 1000}.withDefaults()
	assert.Equal(t, 1000.0, p.Width)
	assert.Equal(t, 400.0, p.Height)
	assert.Equal(t, -400.0, p.Charge)
	assert.InDelta(t, 0.0228, p.AlphaDecay, 0.0001)
}
