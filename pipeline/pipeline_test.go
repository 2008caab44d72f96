package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/memstore"
	"github.com/meikuraledutech/traceflow/payload"
)

func TestRunProducesDiamond(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	pl := New(store)
	pl.now = func() time.Time { return time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC) }

	rec, err := pl.Run(ctx, DemoPatients[0])
	require.NoError(t, err)

	assert.Equal(t, []string{TriageStep, HospitalStep, DispatchStep, OptimizerStep}, rec.Sequence)
	require.Len(t, rec.Edges, 4)

	g, err := graph.Normalize(rec)
	require.NoError(t, err)
	assert.False(t, g.FromSequence)
	assert.Equal(t, 2, g.Degree(TriageStep))
	assert.Equal(t, 2, g.Degree(OptimizerStep))

	stored, err := store.GetTrace(ctx, rec.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 4)

	sum := stored.Summary()
	assert.Equal(t, "P12345", sum.PatientID)
	assert.Equal(t, "Cho Ray Hospital", sum.Hospital)
	assert.Equal(t, "Ambulance 1", sum.Ambulance)

	step, _ := rec.Step(TriageStep)
	out := payload.SummarizeRaw(step.Output)
	assert.Contains(t, out, "priority: 5")
	assert.Contains(t, out, "specialty: Cardiology")
}

func TestTriageRules(t *testing.T) {
	tri := triage(DemoPatients[1])
	assert.Equal(t, "Neurology", tri.Specialty)
	assert.Equal(t, 5, tri.Priority)
	assert.True(t, tri.NeedsEmergency)

	calm := triage(Patient{Description: "mild headache"})
	assert.Equal(t, 2, calm.Priority)
	assert.False(t, calm.NeedsEmergency)
	assert.NotNil(t, calm.Symptoms)
}

func TestOptimizePicksNearestAndFastest(t *testing.T) {
	now := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	plan, err := optimize(OptimizerInput{
		HospitalData: HospitalMatch{PatientID: "P1", Hospitals: []Hospital{
			{ID: "far", DistanceKM: 9}, {ID: "near", Name: "Near", DistanceKM: 2.3},
		}},
		DispatchData: Dispatch{Ambulances: []Ambulance{
			{ID: "slow", ETAMinutes: 12}, {ID: "fast", Name: "Fast", ETAMinutes: 7},
		}},
	}, now)
	require.NoError(t, err)
	assert.Equal(t, "near", plan.OptimizedHospital.ID)
	assert.Equal(t, "fast", plan.OptimizedAmbulance.ID)
	assert.Equal(t, 12, plan.ETAMinutes)
	assert.Equal(t, "14:12", plan.EstimatedArrivalTime)

	_, err = optimize(OptimizerInput{}, now)
	require.Error(t, err)
}

func TestTriggerRunReturnsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := memstore.New()
	pl := New(store)
	pl.StepDelay = 5 * time.Millisecond
	r := NewRunner(pl)

	var _ traceflow.Runner = r
	res := r.TriggerRun(ctx)
	cancel()
	require.True(t, res.Success)
	require.NotEmpty(t, res.TraceID)

	r.Wait()
	rec, err := store.GetTrace(context.Background(), res.TraceID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Nodes, 4)

	second := r.TriggerRun(context.Background())
	r.Wait()
	rec2, err := store.GetTrace(context.Background(), second.TraceID)
	require.NoError(t, err)
	assert.Equal(t, "P23456", rec2.Summary().PatientID)
}
