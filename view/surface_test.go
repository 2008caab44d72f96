package view

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
)

type recorder struct {
	mu       sync.Mutex
	inspects []string
	frames   []Frame
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnNodeInspect: func(container string, id graph.NodeID, _ traceflow.StepResult) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.inspects = append(r.inspects, container+"/"+id)
		},
		OnFrame: func(f Frame) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.frames = append(r.frames, f)
		},
	}
}

func (r *recorder) inspected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.inspects...)
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.TickInterval = time.Millisecond
	return cfg
}

func waitIdle(t *testing.T, s *Surface, container string) Frame {
	t.Helper()
	var f Frame
	require.Eventually(t, func() bool {
		var err error
		f, err = s.Frame(container)
		return err == nil && f.Idle
	}, 5*time.Second, 2*time.Millisecond)
	return f
}

func TestSurface_MissingContainer(t *testing.T) {
	s := NewSurface(context.Background(), fastConfig(), Hooks{})
	err := s.ShowGraph(context.Background(), "nope", abcTrace())
	var missing *RenderTargetMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "nope", missing.Container)
	assert.ErrorIs(t, s.Teardown("nope"), ErrRenderTargetMissing)
	assert.ErrorIs(t, s.Dispatch(context.Background(), "nope", interact.Event{Type: interact.Dismiss}), ErrRenderTargetMissing)
	_, err = s.Frame("nope")
	assert.Error(t, err)
}

func TestSurface_EmptyStates(t *testing.T) {
	s := NewSurface(context.Background(), fastConfig(), Hooks{})
	s.Register("flow-graph")
	defer s.Close()

	require.NoError(t, s.ShowGraph(context.Background(), "flow-graph", nil))
	f, err := s.Frame("flow-graph")
	require.NoError(t, err)
	assert.True(t, f.Empty)
	assert.Contains(t, f.SVG, DefaultEmptyMessage)

	err = s.ShowGraph(context.Background(), "flow-graph", &traceflow.TraceRecord{ID: "x"})
	assert.ErrorIs(t, err, graph.ErrEmptyGraph)
	f, _ = s.Frame("flow-graph")
	assert.True(t, f.Empty)
	assert.Contains(t, f.SVG, DefaultNoNodesMessage)

	// Events on an empty container are ignored.
	assert.NoError(t, s.Dispatch(context.Background(), "flow-graph", interact.Event{Type: interact.PointerDown, X: 1, Y: 1}))
}

func TestSurface_ShowSettleClick(t *testing.T) {
	rec := &recorder{}
	s := NewSurface(context.Background(), fastConfig(), rec.hooks())
	s.Register("flow-graph")
	defer s.Close()

	require.NoError(t, s.ShowGraph(context.Background(), "flow-graph", abcTrace()))
	f := waitIdle(t, s, "flow-graph")
	assert.Equal(t, "abc", f.TraceID)
	assert.Greater(t, f.Tick, 0)

	b := f.Positions["B"]
	ctx := context.Background()
	require.NoError(t, s.Dispatch(ctx, "flow-graph", interact.Event{Type: interact.PointerDown, X: b.X, Y: b.Y}))
	require.NoError(t, s.Dispatch(ctx, "flow-graph", interact.Event{Type: interact.PointerUp, X: b.X, Y: b.Y}))

	assert.Equal(t, []string{"flow-graph/B"}, rec.inspected())
	d, err := s.Detail("flow-graph")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "B", d.Title)

	// The press reheated the layout; it settles again.
	waitIdle(t, s, "flow-graph")

	require.NoError(t, s.Dispatch(ctx, "flow-graph", interact.Event{Type: interact.Dismiss}))
	d, _ = s.Detail("flow-graph")
	assert.Nil(t, d)
}

func TestSurface_ReplaceDiscardsOldGeneration(t *testing.T) {
	rec := &recorder{}
	s := NewSurface(context.Background(), fastConfig(), rec.hooks())
	s.Register("flow-graph")
	defer s.Close()

	require.NoError(t, s.ShowGraph(context.Background(), "flow-graph", abcTrace()))
	first, err := s.Frame("flow-graph")
	require.NoError(t, err)

	second := abcTrace()
	second.ID = "second"
	require.NoError(t, s.ShowGraph(context.Background(), "flow-graph", second))
	f := waitIdle(t, s, "flow-graph")

	assert.Equal(t, "second", f.TraceID)
	assert.Greater(t, f.Generation, first.Generation)

	// Once replaced, the first generation never publishes again.
	rec.mu.Lock()
	var lastFirst, firstSecond int = -1, -1
	for i, fr := range rec.frames {
		if fr.Generation == first.Generation {
			lastFirst = i
		}
		if fr.Generation == f.Generation && firstSecond < 0 {
			firstSecond = i
		}
	}
	rec.mu.Unlock()
	require.GreaterOrEqual(t, firstSecond, 0)
	assert.Less(t, lastFirst, firstSecond)
}

func TestSurface_TeardownStopsLoop(t *testing.T) {
	rec := &recorder{}
	s := NewSurface(context.Background(), fastConfig(), rec.hooks())
	s.Register("flow-graph")

	require.NoError(t, s.ShowGraph(context.Background(), "flow-graph", abcTrace()))
	require.NoError(t, s.Teardown("flow-graph"))

	f, err := s.Frame("flow-graph")
	require.NoError(t, err)
	assert.Empty(t, f.SVG)

	rec.mu.Lock()
	n := len(rec.frames)
	rec.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	rec.mu.Lock()
	assert.Equal(t, n, len(rec.frames))
	rec.mu.Unlock()

	require.NoError(t, s.Unregister("flow-graph"))
	assert.Empty(t, s.Containers())
}
