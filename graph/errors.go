package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyGraph means the trace had no steps; callers show an empty state.
	ErrEmptyGraph = errors.New("graph: trace has no steps")

	// ErrMalformedEdge means an edge names a step that is not in the trace.
	ErrMalformedEdge = errors.New("graph: edge references unknown step")
)

// EmptyGraphError is returned by Normalize for a trace without steps.
type EmptyGraphError struct {
	TraceID string
}

func (e *EmptyGraphError) Error() string {
	if e.TraceID == "" {
		return ErrEmptyGraph.Error()
	}
	return fmt.Sprintf("%s: %s", ErrEmptyGraph.Error(), e.TraceID)
}

func (e *EmptyGraphError) Unwrap() error { return ErrEmptyGraph }

// MalformedEdgeError describes one edge whose endpoint is missing.
type MalformedEdgeError struct {
	Index   int
	Source  string
	Target  string
	Missing string
}

func (e *MalformedEdgeError) Error() string {
	return fmt.Sprintf("%s: edge %d (%s -> %s) missing %q",
		ErrMalformedEdge.Error(), e.Index, e.Source, e.Target, e.Missing)
}

func (e *MalformedEdgeError) Unwrap() error { return ErrMalformedEdge }
