package graph

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow"
)

func steps(names ...string) map[string]traceflow.StepResult {
	m := make(map[string]traceflow.StepResult, len(names))
	for _, n := range names {
		m[n] = traceflow.StepResult{Input: json.RawMessage(`{"step":"` + n + `"}`)}
	}
	return m
}

func pairs(g *Graph) [][2]string {
	out := make([][2]string, 0, len(g.Edges))
	for _, e := range g.Edges {
		out = append(out, [2]string{e.Source, e.Target})
	}
	return out
}

func TestNormalize_SequenceFallback(t *testing.T) {
	rec := &traceflow.TraceRecord{
		Nodes:    steps("A", "B", "C"),
		Sequence: []string{"A", "B", "C"},
	}

	g, err := Normalize(rec)
	require.NoError(t, err)

	assert.Equal(t, []NodeID{"A", "B", "C"}, g.Nodes)
	assert.True(t, g.FromSequence)
	if diff := cmp.Diff([][2]string{{"A", "B"}, {"B", "C"}}, pairs(g)); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_ExplicitEdgesTakePrecedence(t *testing.T) {
	rec := &traceflow.TraceRecord{
		Nodes: steps("TriageAgent", "HospitalAgent", "DispatchAgent", "OptimizerAgent"),
		Edges: []traceflow.TraceEdge{
			{Source: "TriageAgent", Target: "HospitalAgent", Data: json.RawMessage(`{"priority":5}`)},
			{Source: "TriageAgent", Target: "DispatchAgent"},
			{Source: "HospitalAgent", Target: "OptimizerAgent"},
			{Source: "DispatchAgent", Target: "OptimizerAgent"},
		},
		Sequence: []string{"TriageAgent", "HospitalAgent", "DispatchAgent", "OptimizerAgent"},
	}

	g, err := Normalize(rec)
	require.NoError(t, err)
	assert.False(t, g.FromSequence)

	want := []Edge{
		{Index: 0, Source: "TriageAgent", Target: "HospitalAgent", Data: json.RawMessage(`{"priority":5}`)},
		{Index: 1, Source: "TriageAgent", Target: "DispatchAgent"},
		{Index: 2, Source: "HospitalAgent", Target: "OptimizerAgent"},
		{Index: 3, Source: "DispatchAgent", Target: "OptimizerAgent"},
	}
	if diff := cmp.Diff(want, g.Edges, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalize_SequenceLengths(t *testing.T) {
	for _, tc := range []struct {
		name string
		seq  []string
		want int
	}{
		{"none", nil, 0},
		{"single", []string{"A"}, 0},
		{"pair", []string{"A", "B"}, 1},
		{"five", []string{"A", "B", "A", "B", "A"}, 4},
	} {
		t.Run(tc.name, func(t *testing.T) {
			g, err := Normalize(&traceflow.TraceRecord{Nodes: steps("A", "B"), Sequence: tc.seq})
			require.NoError(t, err)
			assert.Len(t, g.Edges, tc.want)
		})
	}
}

func TestNormalize_Empty(t *testing.T) {
	_, err := Normalize(&traceflow.TraceRecord{ID: "t1", Sequence: []string{"A", "B"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyGraph))

	var empty *EmptyGraphError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "t1", empty.TraceID)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, ErrEmptyGraph)
}

func TestNormalize_SingleIsolatedNode(t *testing.T) {
	g, err := Normalize(&traceflow.TraceRecord{Nodes: steps("Only")})
	require.NoError(t, err)
	assert.Equal(t, []NodeID{"Only"}, g.Nodes)
	assert.Empty(t, g.Edges)
}

func TestNormalize_DuplicatesAndSelfLoopsPassThrough(t *testing.T) {
	rec := &traceflow.TraceRecord{
		Nodes: steps("A", "B"),
		Edges: []traceflow.TraceEdge{
			{Source: "A", Target: "B"},
			{Source: "A", Target: "B"},
			{Source: "B", Target: "B"},
		},
	}
	g, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}, {"A", "B"}, {"B", "B"}}, pairs(g))
	assert.True(t, g.Edges[2].SelfLoop())
	assert.Equal(t, 3, g.Degree("B"))
}

func TestNormalize_MalformedEdgeDropped(t *testing.T) {
	rec := &traceflow.TraceRecord{
		Nodes: steps("A", "B"),
		Edges: []traceflow.TraceEdge{
			{Source: "A", Target: "Ghost"},
			{Source: "A", Target: "B"},
		},
	}
	g, err := Normalize(rec)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"A", "B"}}, pairs(g))
	assert.Equal(t, 0, g.Edges[0].Index)
	require.Len(t, g.Dropped, 1)
	assert.Equal(t, "Ghost", g.Dropped[0].Missing)
	assert.ErrorIs(t, g.Dropped[0], ErrMalformedEdge)
}

func TestNormalize_MalformedEdgeStrict(t *testing.T) {
	rec := &traceflow.TraceRecord{
		Nodes:    steps("A", "B"),
		Sequence: []string{"A", "Missing", "B"},
	}
	_, err := Normalize(rec, WithStrictEdges())
	var bad *MalformedEdgeError
	require.ErrorAs(t, err, &bad)
	assert.Equal(t, 0, bad.Index)
	assert.Equal(t, "Missing", bad.Missing)
}

func TestGraph_IndexOf(t *testing.T) {
	g, err := Normalize(&traceflow.TraceRecord{Nodes: steps("b", "a")})
	require.NoError(t, err)
	assert.Equal(t, 0, g.IndexOf("a"))
	assert.Equal(t, 1, g.IndexOf("b"))
	assert.Equal(t, -1, g.IndexOf("c"))
}
