package postgres

import (
	"context"
	"fmt"

	"github.com/meikuraledutech/traceflow"
)

// AddStep records one step of a running trace and appends it to the
// sequence. Recording the same step again replaces its payloads.
// Returns ErrTraceNotFound if the trace doesn't exist.
func (s *PGStore) AddStep(ctx context.Context, traceID, name string, step traceflow.StepResult) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("traceflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE flow_traces SET sequence = array_append(sequence, $2) WHERE id = $1`,
		traceID, name,
	)
	if err != nil {
		return fmt.Errorf("traceflow: append sequence: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return traceflow.ErrTraceNotFound
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO flow_steps (trace_id, name, input, output, recorded_at) VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (trace_id, name) DO UPDATE SET input = EXCLUDED.input, output = EXCLUDED.output, recorded_at = EXCLUDED.recorded_at`,
		traceID, name, jsonb(step.Input), jsonb(step.Output), stamp(step.Timestamp),
	); err != nil {
		return fmt.Errorf("traceflow: upsert step: %w", err)
	}

	return tx.Commit(ctx)
}
