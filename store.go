package traceflow

import (
	"context"
	"errors"
)

var (
	ErrTraceNotFound = errors.New("traceflow: trace not found")
	ErrStepNotFound  = errors.New("traceflow: step not found")
	ErrInvalidTrace  = errors.New("traceflow: invalid trace")
)

// Store defines the contract for persisting and retrieving pipeline traces.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Traces (bulk operations)
	SaveTrace(ctx context.Context, rec *TraceRecord) (*TraceRecord, error)
	GetTrace(ctx context.Context, traceID string) (*TraceRecord, error)
	LatestTrace(ctx context.Context) (*TraceRecord, error)
	ListTraces(ctx context.Context, limit int) ([]TraceSummary, error)
	DeleteTrace(ctx context.Context, traceID string) error

	// Incremental tracking
	AddStep(ctx context.Context, traceID, name string, step StepResult) error
	AddEdge(ctx context.Context, traceID string, edge *TraceEdge) (string, error)
}

// Source is the read side the visualization consumes. A nil record with a
// nil error means there is nothing to show yet.
type Source interface {
	Latest(ctx context.Context) (*TraceRecord, error)
	Get(ctx context.Context, traceID string) (*TraceRecord, error)
}

// RunResult reports whether a pipeline run was started.
type RunResult struct {
	Success bool   `json:"success"`
	TraceID string `json:"trace_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Runner starts a pipeline execution out of band. TriggerRun returns as soon
// as the run is scheduled; callers re-fetch to see the result.
type Runner interface {
	TriggerRun(ctx context.Context) RunResult
}

// StoreSource adapts a Store to Source.
type StoreSource struct {
	Store Store
}

func (s StoreSource) Latest(ctx context.Context) (*TraceRecord, error) {
	return s.Store.LatestTrace(ctx)
}

func (s StoreSource) Get(ctx context.Context, traceID string) (*TraceRecord, error) {
	rec, err := s.Store.GetTrace(ctx, traceID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrTraceNotFound
	}
	return rec, nil
}
