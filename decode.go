package traceflow

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// LogTimeLayout is the timestamp format of tracker log files.
const LogTimeLayout = "2006-01-02 15:04:05"

type wireStep struct {
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	Timestamp string          `json:"timestamp"`
}

type wireEdge struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type wireTrace struct {
	ID        string              `json:"id"`
	Timestamp string              `json:"timestamp"`
	Nodes     map[string]wireStep `json:"nodes"`
	Edges     []wireEdge          `json:"edges"`
	Sequence  []string            `json:"sequence"`
}

// DecodeTrace reads one trace document. Timestamps may be RFC 3339 or
// LogTimeLayout (taken as UTC). A document wrapped as {"data": {...}}, as
// the flows API returns it, is unwrapped.
func DecodeTrace(r io.Reader) (*TraceRecord, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("traceflow: read trace: %w", err)
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &env) == nil && len(env.Data) > 0 && string(env.Data) != "null" {
		raw = env.Data
	}

	var w wireTrace
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrace, err)
	}

	rec := &TraceRecord{
		ID:       w.ID,
		Nodes:    make(map[string]StepResult, len(w.Nodes)),
		Sequence: w.Sequence,
	}
	if rec.Timestamp, err = parseTime(w.Timestamp); err != nil {
		return nil, err
	}
	for name, s := range w.Nodes {
		ts, err := parseTime(s.Timestamp)
		if err != nil {
			return nil, err
		}
		rec.Nodes[name] = StepResult{Input: s.Input, Output: s.Output, Timestamp: ts}
	}
	for _, e := range w.Edges {
		ts, err := parseTime(e.Timestamp)
		if err != nil {
			return nil, err
		}
		rec.Edges = append(rec.Edges, TraceEdge{ID: e.ID, Source: e.Source, Target: e.Target, Data: e.Data, Timestamp: ts})
	}
	return rec, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(LogTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", ErrInvalidTrace, s)
	}
	return t, nil
}
