package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS flow_traces (
    id         TEXT PRIMARY KEY,
    sequence   TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS flow_steps (
    trace_id    TEXT NOT NULL REFERENCES flow_traces(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    input       JSONB NOT NULL DEFAULT 'null',
    output      JSONB NOT NULL DEFAULT 'null',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (trace_id, name)
);

CREATE TABLE IF NOT EXISTS flow_edges (
    id          TEXT PRIMARY KEY,
    seq         BIGSERIAL,
    trace_id    TEXT NOT NULL REFERENCES flow_traces(id) ON DELETE CASCADE,
    source      TEXT NOT NULL,
    target      TEXT NOT NULL,
    data        JSONB NOT NULL DEFAULT 'null',
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_flow_traces_created ON flow_traces(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_flow_edges_trace_id ON flow_edges(trace_id, seq);
`

// CreateSchema creates the flow_traces, flow_steps and flow_edges tables if
// they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all trace tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS flow_edges, flow_steps, flow_traces CASCADE;`)
	return err
}
