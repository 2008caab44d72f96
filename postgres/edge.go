package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/traceflow"
)

// AddEdge records a hand-off between two steps of a trace.
// If edge.ID is empty, a UUID is auto-generated. Endpoints are not checked
// against the recorded steps; the graph normalizer deals with those.
// Returns the edge ID (generated or provided).
func (s *PGStore) AddEdge(ctx context.Context, traceID string, edge *traceflow.TraceEdge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	edge.Timestamp = stamp(edge.Timestamp)

	var exists bool
	if err := s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM flow_traces WHERE id = $1)`, traceID,
	).Scan(&exists); err != nil {
		return "", fmt.Errorf("traceflow: check trace: %w", err)
	}
	if !exists {
		return "", traceflow.ErrTraceNotFound
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO flow_edges (id, trace_id, source, target, data, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		edge.ID, traceID, edge.Source, edge.Target, jsonb(edge.Data), edge.Timestamp,
	)
	if err != nil {
		return "", fmt.Errorf("traceflow: insert edge: %w", err)
	}
	return edge.ID, nil
}

// listEdges returns the edges of a trace in recording order.
func (s *PGStore) listEdges(ctx context.Context, traceID string) ([]traceflow.TraceEdge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source, target, data, recorded_at FROM flow_edges WHERE trace_id = $1 ORDER BY seq`, traceID)
	if err != nil {
		return nil, fmt.Errorf("traceflow: list edges: %w", err)
	}
	defer rows.Close()

	edges := []traceflow.TraceEdge{}
	for rows.Next() {
		var e traceflow.TraceEdge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target, &e.Data, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("traceflow: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("traceflow: rows edges: %w", err)
	}
	return edges, nil
}
