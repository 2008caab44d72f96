package view

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
)

func abcTrace() *traceflow.TraceRecord {
	return &traceflow.TraceRecord{
		ID: "abc",
		Nodes: map[string]traceflow.StepResult{
			"A": {},
			"B": {Input: json.RawMessage(`{"patient_id":"P1"}`), Output: json.RawMessage(`{"vitals":"stable"}`)},
			"C": {},
		},
		Sequence: []string{"A", "B", "C"},
	}
}

func TestSession_RenderThenClickInspectsOnce(t *testing.T) {
	rec := abcTrace()
	g, err := graph.Normalize(rec)
	require.NoError(t, err)
	require.Len(t, g.Nodes, 3)
	require.Equal(t, []graph.Edge{
		{Index: 0, Source: "A", Target: "B"},
		{Index: 1, Source: "B", Target: "C"},
	}, g.Edges)

	type call struct {
		id   string
		step traceflow.StepResult
	}
	var calls []call
	sess := NewSession("flow-graph", 1, rec, g, DefaultConfig(), interact.Hooks{
		OnNodeInspect: func(id graph.NodeID, step traceflow.StepResult) {
			calls = append(calls, call{id, step})
		},
	})

	sess.Simulation().Run(1000)
	frame, err := sess.Render()
	require.NoError(t, err)
	assert.Contains(t, frame.SVG, `data-node="B"`)
	assert.True(t, frame.Idle)

	b := frame.Positions["B"]
	_, changed, err := sess.Dispatch(interact.Event{Type: interact.PointerDown, X: b.X, Y: b.Y})
	require.NoError(t, err)
	assert.True(t, changed)
	frame, _, err = sess.Dispatch(interact.Event{Type: interact.PointerUp, X: b.X, Y: b.Y})
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "B", calls[0].id)
	assert.Equal(t, rec.Nodes["B"], calls[0].step)
	require.NotNil(t, frame.Detail)
	assert.Equal(t, "B", frame.Detail.Title)
}

func TestSession_DragKeepsSimulationAwake(t *testing.T) {
	rec := abcTrace()
	g, err := graph.Normalize(rec)
	require.NoError(t, err)
	sess := NewSession("c", 1, rec, g, DefaultConfig(), interact.Hooks{})
	sess.Simulation().Run(1000)
	f, err := sess.Render()
	require.NoError(t, err)
	require.True(t, sess.Idle())

	a := f.Positions["A"]
	_, _, err = sess.Dispatch(interact.Event{Type: interact.PointerDown, X: a.X, Y: a.Y})
	require.NoError(t, err)
	assert.False(t, sess.Idle())

	_, _, err = sess.Dispatch(interact.Event{Type: interact.PointerMove, X: a.X + 50, Y: a.Y + 10})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		f, err = sess.Tick()
		require.NoError(t, err)
		assert.Equal(t, a.X+50, f.Positions["A"].X)
		assert.Equal(t, a.Y+10, f.Positions["A"].Y)
	}

	_, _, err = sess.Dispatch(interact.Event{Type: interact.PointerUp, X: a.X + 50, Y: a.Y + 10})
	require.NoError(t, err)
	assert.False(t, sess.Idle())
	sess.Simulation().Run(1000)
	assert.True(t, sess.Idle())
}
