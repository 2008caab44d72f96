// Package memstore keeps traces in process memory. It backs tests and runs
// without a database.
package memstore

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/meikuraledutech/traceflow"
)

// MemStore implements traceflow.Store. Records are copied on the way in
// and out so callers never share state with the store.
type MemStore struct {
	mu     sync.RWMutex
	traces map[string]*traceflow.TraceRecord
	// order of creation, oldest first
	order []string
	now   func() time.Time
}

func New() *MemStore {
	return &MemStore{
		traces: make(map[string]*traceflow.TraceRecord),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemStore) CreateSchema(context.Context) error { return nil }

// DropSchema forgets every trace.
func (s *MemStore) DropSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.traces = make(map[string]*traceflow.TraceRecord)
	s.order = nil
	return nil
}

func (s *MemStore) SaveTrace(_ context.Context, rec *traceflow.TraceRecord) (*traceflow.TraceRecord, error) {
	if rec == nil {
		return nil, traceflow.ErrInvalidTrace
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	if rec.Nodes == nil {
		rec.Nodes = map[string]traceflow.StepResult{}
	}
	for i := range rec.Edges {
		if rec.Edges[i].ID == "" {
			rec.Edges[i].ID = uuid.NewString()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.traces[rec.ID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == rec.ID })
	}
	s.traces[rec.ID] = clone(rec)
	s.order = append(s.order, rec.ID)
	return rec, nil
}

// GetTrace returns nil, nil if the trace doesn't exist.
func (s *MemStore) GetTrace(_ context.Context, traceID string) (*traceflow.TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.traces[traceID]
	if !ok {
		return nil, nil
	}
	return clone(rec), nil
}

func (s *MemStore) LatestTrace(ctx context.Context) (*traceflow.TraceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.order) == 0 {
		return nil, nil
	}
	return clone(s.newest()[0]), nil
}

func (s *MemStore) ListTraces(_ context.Context, limit int) ([]traceflow.TraceSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []traceflow.TraceSummary{}
	for _, rec := range s.newest() {
		if len(out) == limit {
			break
		}
		out = append(out, rec.Summary())
	}
	return out, nil
}

// newest returns records by creation time, newest first. Ties keep the
// reverse insertion order. Callers hold mu.
func (s *MemStore) newest() []*traceflow.TraceRecord {
	recs := make([]*traceflow.TraceRecord, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		recs = append(recs, s.traces[s.order[i]])
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Timestamp.After(recs[j].Timestamp)
	})
	return recs
}

func (s *MemStore) DeleteTrace(_ context.Context, traceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.traces, traceID)
	s.order = slices.DeleteFunc(s.order, func(id string) bool { return id == traceID })
	return nil
}

func (s *MemStore) AddStep(_ context.Context, traceID, name string, step traceflow.StepResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.traces[traceID]
	if !ok {
		return traceflow.ErrTraceNotFound
	}
	if step.Timestamp.IsZero() {
		step.Timestamp = s.now()
	}
	rec.Nodes[name] = cloneStep(step)
	rec.Sequence = append(rec.Sequence, name)
	return nil
}

func (s *MemStore) AddEdge(_ context.Context, traceID string, edge *traceflow.TraceEdge) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.traces[traceID]
	if !ok {
		return "", traceflow.ErrTraceNotFound
	}
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	if edge.Timestamp.IsZero() {
		edge.Timestamp = s.now()
	}
	e := *edge
	e.Data = cloneRaw(edge.Data)
	rec.Edges = append(rec.Edges, e)
	return edge.ID, nil
}

func clone(rec *traceflow.TraceRecord) *traceflow.TraceRecord {
	out := &traceflow.TraceRecord{
		ID:        rec.ID,
		Timestamp: rec.Timestamp,
		Nodes:     make(map[string]traceflow.StepResult, len(rec.Nodes)),
		Sequence:  slices.Clone(rec.Sequence),
	}
	for name, step := range rec.Nodes {
		out.Nodes[name] = cloneStep(step)
	}
	if rec.Edges != nil {
		out.Edges = make([]traceflow.TraceEdge, len(rec.Edges))
		for i, e := range rec.Edges {
			e.Data = cloneRaw(e.Data)
			out.Edges[i] = e
		}
	}
	return out
}

func cloneStep(s traceflow.StepResult) traceflow.StepResult {
	s.Input = cloneRaw(s.Input)
	s.Output = cloneRaw(s.Output)
	return s
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	return slices.Clone(raw)
}
