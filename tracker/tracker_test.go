package tracker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow/memstore"
)

func TestTrackInMemory(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)

	require.NoError(t, tr.TrackNode(ctx, "TriageAgent", map[string]any{"patient_id": "P1"}, map[string]any{"priority": 5}))
	require.NoError(t, tr.TrackNode(ctx, "HospitalAgent", json.RawMessage(`{"a":1}`), nil))
	require.NoError(t, tr.TrackEdge(ctx, "TriageAgent", "HospitalAgent", nil))

	rec := tr.Record()
	assert.Equal(t, tr.ID(), rec.ID)
	assert.Equal(t, []string{"TriageAgent", "HospitalAgent"}, rec.Sequence)
	assert.JSONEq(t, `{"patient_id":"P1"}`, string(rec.Nodes["TriageAgent"].Input))
	assert.JSONEq(t, `{"a":1}`, string(rec.Nodes["HospitalAgent"].Input))
	assert.Nil(t, rec.Nodes["HospitalAgent"].Output)
	require.Len(t, rec.Edges, 1)
	assert.Nil(t, rec.Edges[0].Data)

	_, err := tr.Save(ctx)
	require.Error(t, err)
}

func TestRecordIsSnapshot(t *testing.T) {
	ctx := context.Background()
	tr := New(nil)
	require.NoError(t, tr.TrackNode(ctx, "A", nil, nil))

	rec := tr.Record()
	require.NoError(t, tr.TrackNode(ctx, "B", nil, nil))
	assert.Len(t, rec.Sequence, 1)
	assert.Len(t, rec.Nodes, 1)
}

func TestWriteThrough(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tr := New(store)
	require.NoError(t, tr.Start(ctx))
	require.NoError(t, tr.Start(ctx))

	require.NoError(t, tr.TrackNode(ctx, "A", map[string]int{"x": 1}, nil))
	require.NoError(t, tr.TrackNode(ctx, "B", nil, nil))
	require.NoError(t, tr.TrackEdge(ctx, "A", "B", map[string]int{"x": 1}))

	got, err := store.GetTrace(ctx, tr.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"A", "B"}, got.Sequence)
	require.Len(t, got.Edges, 1)
	assert.JSONEq(t, `{"x":1}`, string(got.Edges[0].Data))
}

func TestSaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	tr := New(store)
	require.NoError(t, tr.TrackNode(ctx, "A", nil, nil))

	rec, err := tr.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, tr.ID(), rec.ID)

	require.NoError(t, tr.TrackNode(ctx, "B", nil, nil))
	got, err := store.GetTrace(ctx, tr.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, got.Sequence)
}

func TestUnencodablePayload(t *testing.T) {
	err := New(nil).TrackNode(context.Background(), "A", make(chan int), nil)
	require.Error(t, err)
}
