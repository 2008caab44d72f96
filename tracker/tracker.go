// Package tracker records a pipeline run as it happens: every step that
// executes and every hand-off between steps.
package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/ctxlog"
)

// Tracker accumulates one TraceRecord. When it has a store, the trace is
// created by Start and every tracked step or edge is written through
// immediately, so a reader polling the store sees the run grow.
type Tracker struct {
	store traceflow.Store
	now   func() time.Time

	mu      sync.Mutex
	rec     traceflow.TraceRecord
	started bool
}

// New returns a tracker for a fresh trace. store may be nil, in which case
// the record only lives in memory until Save.
func New(store traceflow.Store) *Tracker {
	t := &Tracker{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
	t.rec = traceflow.TraceRecord{
		ID:        uuid.NewString(),
		Timestamp: t.now(),
		Nodes:     map[string]traceflow.StepResult{},
		Sequence:  []string{},
	}
	return t
}

// ID is the trace id the tracker writes under.
func (t *Tracker) ID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rec.ID
}

// Start creates the empty trace in the store.
func (t *Tracker) Start(ctx context.Context) error {
	if t.store == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return nil
	}
	rec := t.snapshot()
	if _, err := t.store.SaveTrace(ctx, rec); err != nil {
		return fmt.Errorf("traceflow: start trace: %w", err)
	}
	t.started = true
	ctxlog.FromContext(ctx).Debug("trace started", "trace", rec.ID)
	return nil
}

// TrackNode records what step id consumed and produced and appends it to
// the execution sequence. input and output are marshaled to JSON; a
// json.RawMessage is kept as is.
func (t *Tracker) TrackNode(ctx context.Context, id string, input, output any) error {
	in, err := encode(input)
	if err != nil {
		return fmt.Errorf("traceflow: step %s input: %w", id, err)
	}
	out, err := encode(output)
	if err != nil {
		return fmt.Errorf("traceflow: step %s output: %w", id, err)
	}
	step := traceflow.StepResult{Input: in, Output: out, Timestamp: t.now()}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec.Nodes[id] = step
	t.rec.Sequence = append(t.rec.Sequence, id)
	if t.started {
		if err := t.store.AddStep(ctx, t.rec.ID, id, step); err != nil {
			return fmt.Errorf("traceflow: write step %s: %w", id, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("step tracked", "trace", t.rec.ID, "step", id)
	return nil
}

// TrackEdge records a hand-off from source to target carrying data, which
// may be nil.
func (t *Tracker) TrackEdge(ctx context.Context, source, target string, data any) error {
	raw, err := encode(data)
	if err != nil {
		return fmt.Errorf("traceflow: edge %s -> %s: %w", source, target, err)
	}
	edge := traceflow.TraceEdge{
		ID:        uuid.NewString(),
		Source:    source,
		Target:    target,
		Data:      raw,
		Timestamp: t.now(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rec.Edges = append(t.rec.Edges, edge)
	if t.started {
		if _, err := t.store.AddEdge(ctx, t.rec.ID, &edge); err != nil {
			return fmt.Errorf("traceflow: write edge %s -> %s: %w", source, target, err)
		}
	}
	return nil
}

// Record returns a copy of the trace so far.
func (t *Tracker) Record() *traceflow.TraceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot()
}

// Save writes the whole trace in one go, replacing any partial copy.
func (t *Tracker) Save(ctx context.Context) (*traceflow.TraceRecord, error) {
	if t.store == nil {
		return nil, fmt.Errorf("traceflow: tracker has no store")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, err := t.store.SaveTrace(ctx, t.snapshot())
	if err != nil {
		return nil, fmt.Errorf("traceflow: save trace: %w", err)
	}
	t.started = true
	return rec, nil
}

// snapshot copies rec. Callers hold mu.
func (t *Tracker) snapshot() *traceflow.TraceRecord {
	return &traceflow.TraceRecord{
		ID:        t.rec.ID,
		Timestamp: t.rec.Timestamp,
		Nodes:     maps.Clone(t.rec.Nodes),
		Edges:     slices.Clone(t.rec.Edges),
		Sequence:  slices.Clone(t.rec.Sequence),
	}
}

func encode(v any) (json.RawMessage, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return v, nil
	}
	return json.Marshal(v)
}
