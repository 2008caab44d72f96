package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/traceflow"
)

// SaveTrace stores a full trace (steps + edges) in one transaction.
// A trace without an ID gets a UUID, as do edges without one. Saving an
// existing ID replaces it.
func (s *PGStore) SaveTrace(ctx context.Context, rec *traceflow.TraceRecord) (*traceflow.TraceRecord, error) {
	if rec == nil {
		return nil, traceflow.ErrInvalidTrace
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Timestamp = stamp(rec.Timestamp)
	if rec.Sequence == nil {
		rec.Sequence = []string{}
	}
	for i := range rec.Edges {
		if rec.Edges[i].ID == "" {
			rec.Edges[i].ID = uuid.NewString()
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("traceflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: steps and edges cascade.
	if _, err := tx.Exec(ctx, `DELETE FROM flow_traces WHERE id = $1`, rec.ID); err != nil {
		return nil, fmt.Errorf("traceflow: delete trace: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO flow_traces (id, sequence, created_at) VALUES ($1, $2, $3)`,
		rec.ID, rec.Sequence, rec.Timestamp,
	); err != nil {
		return nil, fmt.Errorf("traceflow: insert trace: %w", err)
	}

	for name, step := range rec.Nodes {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_steps (trace_id, name, input, output, recorded_at) VALUES ($1, $2, $3, $4, $5)`,
			rec.ID, name, jsonb(step.Input), jsonb(step.Output), stamp(step.Timestamp),
		); err != nil {
			return nil, fmt.Errorf("traceflow: insert step %s: %w", name, err)
		}
	}

	for _, e := range rec.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO flow_edges (id, trace_id, source, target, data, recorded_at) VALUES ($1, $2, $3, $4, $5, $6)`,
			e.ID, rec.ID, e.Source, e.Target, jsonb(e.Data), stamp(e.Timestamp),
		); err != nil {
			return nil, fmt.Errorf("traceflow: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("traceflow: commit: %w", err)
	}
	return rec, nil
}

// GetTrace retrieves a full trace by its ID.
// Returns nil, nil if the trace doesn't exist.
func (s *PGStore) GetTrace(ctx context.Context, traceID string) (*traceflow.TraceRecord, error) {
	rec := &traceflow.TraceRecord{ID: traceID, Nodes: map[string]traceflow.StepResult{}}

	err := s.db.QueryRow(ctx,
		`SELECT sequence, created_at FROM flow_traces WHERE id = $1`, traceID,
	).Scan(&rec.Sequence, &rec.Timestamp)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("traceflow: get trace: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT name, input, output, recorded_at FROM flow_steps WHERE trace_id = $1`, traceID)
	if err != nil {
		return nil, fmt.Errorf("traceflow: query steps: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var step traceflow.StepResult
		if err := rows.Scan(&name, &step.Input, &step.Output, &step.Timestamp); err != nil {
			return nil, fmt.Errorf("traceflow: scan step: %w", err)
		}
		rec.Nodes[name] = step
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("traceflow: rows steps: %w", err)
	}

	edges, err := s.listEdges(ctx, traceID)
	if err != nil {
		return nil, err
	}
	rec.Edges = edges
	return rec, nil
}

// LatestTrace returns the most recently created trace, or nil, nil when the
// store is empty.
func (s *PGStore) LatestTrace(ctx context.Context) (*traceflow.TraceRecord, error) {
	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id FROM flow_traces ORDER BY created_at DESC LIMIT 1`,
	).Scan(&id)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("traceflow: latest trace: %w", err)
	}
	return s.GetTrace(ctx, id)
}

const listSQL = `
SELECT t.id,
       t.created_at,
       (SELECT count(*) FROM flow_steps c WHERE c.trace_id = t.id),
       COALESCE(NULLIF(f.input->>'patient_id', ''), o.output->>'patient_id', ''),
       COALESCE(o.output->'optimized_hospital'->>'name', ''),
       COALESCE(o.output->'optimized_ambulance'->>'name', '')
FROM flow_traces t
LEFT JOIN flow_steps f ON f.trace_id = t.id AND f.name = t.sequence[1]
LEFT JOIN flow_steps o ON o.trace_id = t.id AND o.name = 'OptimizerAgent'
ORDER BY t.created_at DESC
LIMIT $1`

// ListTraces returns history rows, newest first.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListTraces(ctx context.Context, limit int) ([]traceflow.TraceSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, listSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("traceflow: list traces: %w", err)
	}
	defer rows.Close()

	out := []traceflow.TraceSummary{}
	for rows.Next() {
		var sum traceflow.TraceSummary
		if err := rows.Scan(&sum.ID, &sum.Timestamp, &sum.Steps, &sum.PatientID, &sum.Hospital, &sum.Ambulance); err != nil {
			return nil, fmt.Errorf("traceflow: scan summary: %w", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("traceflow: rows summaries: %w", err)
	}
	return out, nil
}

// DeleteTrace removes a trace with its steps and edges.
// No error if the trace doesn't exist.
func (s *PGStore) DeleteTrace(ctx context.Context, traceID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM flow_traces WHERE id = $1`, traceID); err != nil {
		return fmt.Errorf("traceflow: delete trace: %w", err)
	}
	return nil
}
