package interact

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/layout"
	"github.com/meikuraledutech/traceflow/payload"
	"github.com/meikuraledutech/traceflow/scene"
)

type pinCall struct {
	op   string
	id   string
	x, y float64
}

type fakePinner struct{ calls []pinCall }

func (f *fakePinner) Pin(id graph.NodeID, x, y float64) bool {
	f.calls = append(f.calls, pinCall{"pin", id, x, y})
	return true
}

func (f *fakePinner) Unpin(id graph.NodeID) bool {
	f.calls = append(f.calls, pinCall{op: "unpin", id: id})
	return true
}

type fixture struct {
	ctl      *Controller
	pinner   *fakePinner
	inspects []string
	edges    []graph.Edge
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := &traceflow.TraceRecord{
		Nodes: map[string]traceflow.StepResult{
			"A": {Input: json.RawMessage(`{"patient_id":"P1","history":{"a":1}}`)},
			"B": {Output: json.RawMessage(`{"ok":true}`)},
		},
		Edges: []traceflow.TraceEdge{{Source: "A", Target: "B", Data: json.RawMessage(`{"priority":5}`)}},
	}
	g, err := graph.Normalize(rec)
	require.NoError(t, err)

	f := &fixture{pinner: &fakePinner{}}
	f.ctl = NewController(rec, g, f.pinner, Hooks{
		OnNodeInspect: func(id graph.NodeID, _ traceflow.StepResult) { f.inspects = append(f.inspects, id) },
		OnEdgeInspect: func(e graph.Edge) { f.edges = append(f.edges, e) },
	})
	pos := map[graph.NodeID]layout.Point{"A": {X: 100, Y: 100}, "B": {X: 300, Y: 100}}
	hits, err := scene.NewRenderer(scene.Options{}).Render(&bytes.Buffer{}, g, scene.Visuals(g), pos, scene.Overlay{})
	require.NoError(t, err)
	f.ctl.SetHits(hits)
	return f
}

func TestClickNodeInspectsOnce(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.ctl.Handle(Event{Type: PointerDown, X: 300, Y: 100}))
	assert.True(t, f.ctl.Handle(Event{Type: PointerUp, X: 301, Y: 101}))

	assert.Equal(t, []string{"B"}, f.inspects)
	require.NotNil(t, f.ctl.Detail())
	assert.Equal(t, "B", f.ctl.Detail().Title)
	assert.Equal(t, payload.NoData, f.ctl.Detail().Sections[0].Body)
	assert.Equal(t, "B", f.ctl.Overlay().Selected)

	// A press is a brief pin.
	assert.Equal(t, []pinCall{{"pin", "B", 300, 100}, {op: "unpin", id: "B"}}, f.pinner.calls)

	assert.True(t, f.ctl.Handle(Event{Type: Dismiss}))
	assert.Nil(t, f.ctl.Detail())
	assert.False(t, f.ctl.Handle(Event{Type: Dismiss}))
}

func TestDragPinsAndDoesNotClick(t *testing.T) {
	f := newFixture(t)

	f.ctl.Handle(Event{Type: PointerDown, X: 100, Y: 100})
	id, ok := f.ctl.Dragging()
	require.True(t, ok)
	assert.Equal(t, "A", id)
	assert.Equal(t, "A", f.ctl.Overlay().Dragging)

	f.ctl.Handle(Event{Type: PointerMove, X: 120, Y: 110})
	f.ctl.Handle(Event{Type: PointerMove, X: 140, Y: 120})
	f.ctl.Handle(Event{Type: PointerUp, X: 140, Y: 120})

	assert.Equal(t, []pinCall{
		{"pin", "A", 100, 100},
		{"pin", "A", 120, 110},
		{"pin", "A", 140, 120},
		{op: "unpin", id: "A"},
	}, f.pinner.calls)
	assert.Empty(t, f.inspects)
	assert.Nil(t, f.ctl.Detail())
	_, ok = f.ctl.Dragging()
	assert.False(t, ok)
}

func TestHoverTooltip(t *testing.T) {
	f := newFixture(t)

	assert.True(t, f.ctl.Handle(Event{Type: PointerMove, X: 105, Y: 95}))
	tip := f.ctl.Tooltip()
	require.NotNil(t, tip)
	assert.Equal(t, 120.0, tip.X)
	assert.Equal(t, 67.0, tip.Y)
	assert.Contains(t, tip.Text, "patient_id: P1")
	assert.NotContains(t, tip.Text, "history")
	assert.Contains(t, tip.Text, "Output:\n"+payload.NoData)

	// Moving within the same node keeps the tooltip where it was.
	assert.False(t, f.ctl.Handle(Event{Type: PointerMove, X: 110, Y: 100}))
	assert.Equal(t, 120.0, f.ctl.Tooltip().X)

	// Over the edge.
	assert.True(t, f.ctl.Handle(Event{Type: PointerMove, X: 200, Y: 100}))
	assert.Contains(t, f.ctl.Tooltip().Text, "A -> B")
	assert.Contains(t, f.ctl.Tooltip().Text, "priority: 5")

	// Empty canvas clears it.
	assert.True(t, f.ctl.Handle(Event{Type: PointerMove, X: 500, Y: 300}))
	assert.Nil(t, f.ctl.Tooltip())

	f.ctl.Handle(Event{Type: PointerMove, X: 300, Y: 100})
	require.NotNil(t, f.ctl.Tooltip())
	assert.True(t, f.ctl.Handle(Event{Type: PointerLeave}))
	assert.Nil(t, f.ctl.Tooltip())
	assert.False(t, f.ctl.Handle(Event{Type: PointerLeave}))
}

func TestTooltipReturnsAfterClick(t *testing.T) {
	f := newFixture(t)

	f.ctl.Handle(Event{Type: PointerMove, X: 100, Y: 100})
	require.NotNil(t, f.ctl.Tooltip())

	f.ctl.Handle(Event{Type: PointerDown, X: 100, Y: 100})
	assert.Nil(t, f.ctl.Tooltip())
	f.ctl.Handle(Event{Type: PointerUp, X: 100, Y: 100})
	f.ctl.Handle(Event{Type: Dismiss})

	assert.True(t, f.ctl.Handle(Event{Type: PointerMove, X: 102, Y: 101}))
	tip := f.ctl.Tooltip()
	require.NotNil(t, tip)
	assert.Contains(t, tip.Text, "patient_id: P1")
}

func TestPressOffCentreKeepsNodeInPlace(t *testing.T) {
	f := newFixture(t)

	f.ctl.Handle(Event{Type: PointerDown, X: 104, Y: 97})
	f.ctl.Handle(Event{Type: PointerMove, X: 124, Y: 107})
	f.ctl.Handle(Event{Type: PointerUp, X: 124, Y: 107})

	assert.Equal(t, []pinCall{
		{"pin", "A", 100, 100},
		{"pin", "A", 120, 110},
		{op: "unpin", id: "A"},
	}, f.pinner.calls)
}

func TestClickEdge(t *testing.T) {
	f := newFixture(t)
	f.ctl.Handle(Event{Type: PointerDown, X: 200, Y: 101})
	f.ctl.Handle(Event{Type: PointerUp, X: 200, Y: 101})

	require.Len(t, f.edges, 1)
	assert.Equal(t, "A", f.edges[0].Source)
	assert.Empty(t, f.pinner.calls)
	require.NotNil(t, f.ctl.Detail())
	assert.Equal(t, "A -> B", f.ctl.Detail().Title)
	assert.Contains(t, f.ctl.Detail().Sections[0].Body, `"priority": 5`)
}

func TestLeaveDuringDragUnpins(t *testing.T) {
	f := newFixture(t)
	f.ctl.Handle(Event{Type: PointerDown, X: 100, Y: 100})
	assert.True(t, f.ctl.Handle(Event{Type: PointerLeave}))
	assert.Equal(t, pinCall{op: "unpin", id: "A"}, f.pinner.calls[len(f.pinner.calls)-1])
	assert.False(t, f.ctl.Handle(Event{Type: PointerUp, X: 100, Y: 100}))
	assert.Empty(t, f.inspects)
}

func TestPressOnEmptyCanvas(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.ctl.Handle(Event{Type: PointerDown, X: 600, Y: 350}))
	assert.False(t, f.ctl.Handle(Event{Type: PointerUp, X: 600, Y: 350}))
	assert.Empty(t, f.pinner.calls)
}

func TestEventTypeJSON(t *testing.T) {
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(`{"type":"down","x":1,"y":2}`), &ev))
	assert.Equal(t, Event{Type: PointerDown, X: 1, Y: 2}, ev)

	b, err := json.Marshal(Event{Type: Dismiss})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"dismiss","x":0,"y":0}`, string(b))

	assert.Error(t, json.Unmarshal([]byte(`{"type":"wiggle"}`), &ev))
}
