package traceflow

import (
	"encoding/json"
	"time"
)

// TraceRecord is one pipeline execution: the recorded steps and how they
// connect. Edges take precedence over Sequence when both are present.
type TraceRecord struct {
	ID        string                `json:"id,omitempty"`
	Timestamp time.Time             `json:"timestamp,omitzero"`
	Nodes     map[string]StepResult `json:"nodes"`
	Edges     []TraceEdge           `json:"edges,omitempty"`
	Sequence  []string              `json:"sequence,omitempty"`
}

// StepResult holds what a single step consumed and produced.
type StepResult struct {
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// TraceEdge is a directed hand-off between two steps.
// Data is whatever the source passed along, if it was recorded.
type TraceEdge struct {
	ID        string          `json:"id,omitempty"`
	Source    string          `json:"source"`
	Target    string          `json:"target"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
}

// TraceSummary is one row of the run history.
type TraceSummary struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	PatientID string    `json:"patient_id,omitempty"`
	Hospital  string    `json:"hospital,omitempty"`
	Ambulance string    `json:"ambulance,omitempty"`
	Steps     int       `json:"steps"`
}

// Step returns the named step and whether it exists.
func (r *TraceRecord) Step(name string) (StepResult, bool) {
	if r == nil {
		return StepResult{}, false
	}
	s, ok := r.Nodes[name]
	return s, ok
}

// Summary builds the history row for r. Patient, hospital and ambulance are
// read from the well-known pipeline steps when present.
func (r *TraceRecord) Summary() TraceSummary {
	sum := TraceSummary{ID: r.ID, Timestamp: r.Timestamp, Steps: len(r.Nodes)}

	if len(r.Sequence) > 0 {
		if first, ok := r.Nodes[r.Sequence[0]]; ok {
			sum.PatientID = stringField(first.Input, "patient_id")
		}
	}
	if opt, ok := r.Nodes["OptimizerAgent"]; ok {
		var out struct {
			Hospital  struct{ Name string } `json:"optimized_hospital"`
			Ambulance struct{ Name string } `json:"optimized_ambulance"`
			PatientID string                `json:"patient_id"`
		}
		if json.Unmarshal(opt.Output, &out) == nil {
			sum.Hospital = out.Hospital.Name
			sum.Ambulance = out.Ambulance.Name
			if sum.PatientID == "" {
				sum.PatientID = out.PatientID
			}
		}
	}
	return sum
}

func stringField(raw json.RawMessage, key string) string {
	var m map[string]any
	if json.Unmarshal(raw, &m) != nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
