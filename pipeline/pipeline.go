// Package pipeline runs the mock emergency-coordination agents and records
// every run as a trace.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/tracker"
)

// Pipeline wires the agents: triage fans out to hospital matching and
// dispatch, which both feed the optimizer.
type Pipeline struct {
	store traceflow.Store
	// StepDelay pauses between agents so a live view can watch the run grow.
	StepDelay time.Duration
	now       func() time.Time
}

func New(store traceflow.Store) *Pipeline {
	return &Pipeline{store: store, now: time.Now}
}

// Run executes all agents for p and returns the finished trace. With a
// store, the trace is written through as it grows.
func (pl *Pipeline) Run(ctx context.Context, p Patient) (*traceflow.TraceRecord, error) {
	tr := tracker.New(pl.store)
	if err := tr.Start(ctx); err != nil {
		return nil, err
	}
	if err := pl.run(ctx, tr, p); err != nil {
		return tr.Record(), err
	}
	return tr.Record(), nil
}

func (pl *Pipeline) run(ctx context.Context, tr *tracker.Tracker, p Patient) error {
	log := ctxlog.FromContext(ctx).With("trace", tr.ID(), "patient", p.PatientID)

	tri := triage(p)
	if err := tr.TrackNode(ctx, TriageStep, p, tri); err != nil {
		return err
	}
	if err := pl.pause(ctx); err != nil {
		return err
	}

	fwd := tri
	fwd.PatientID = p.PatientID

	hm := matchHospitals(p.PatientID, tri)
	if err := tr.TrackNode(ctx, HospitalStep, fwd, hm); err != nil {
		return err
	}
	if err := tr.TrackEdge(ctx, TriageStep, HospitalStep, tri); err != nil {
		return err
	}
	if err := pl.pause(ctx); err != nil {
		return err
	}

	ds := dispatch(p.PatientID, tri)
	if err := tr.TrackNode(ctx, DispatchStep, fwd, ds); err != nil {
		return err
	}
	if err := tr.TrackEdge(ctx, TriageStep, DispatchStep, tri); err != nil {
		return err
	}
	if err := pl.pause(ctx); err != nil {
		return err
	}

	in := OptimizerInput{HospitalData: hm, DispatchData: ds}
	plan, err := optimize(in, pl.now())
	if err != nil {
		log.Warn("optimizer failed", "err", err)
		if terr := tr.TrackNode(ctx, OptimizerStep, in, map[string]string{"error": err.Error()}); terr != nil {
			return terr
		}
		return fmt.Errorf("traceflow: optimize: %w", err)
	}
	if err := tr.TrackNode(ctx, OptimizerStep, in, plan); err != nil {
		return err
	}
	if err := tr.TrackEdge(ctx, HospitalStep, OptimizerStep, hm); err != nil {
		return err
	}
	if err := tr.TrackEdge(ctx, DispatchStep, OptimizerStep, ds); err != nil {
		return err
	}

	log.Info("pipeline finished", "hospital", plan.OptimizedHospital.Name,
		"ambulance", plan.OptimizedAmbulance.Name, "eta_minutes", plan.ETAMinutes)
	return nil
}

func (pl *Pipeline) pause(ctx context.Context) error {
	if pl.StepDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(pl.StepDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runner starts demo runs in the background. It implements
// traceflow.Runner.
type Runner struct {
	pl *Pipeline

	next atomic.Uint64
	wg   sync.WaitGroup
}

func NewRunner(pl *Pipeline) *Runner {
	return &Runner{pl: pl}
}

// TriggerRun creates the trace, then runs the agents on their own goroutine
// and returns at once. The run outlives ctx's cancellation but keeps its
// logger.
func (r *Runner) TriggerRun(ctx context.Context) traceflow.RunResult {
	p := DemoPatients[int(r.next.Add(1)-1)%len(DemoPatients)]

	tr := tracker.New(r.pl.store)
	if err := tr.Start(ctx); err != nil {
		return traceflow.RunResult{Error: err.Error()}
	}

	bg := context.WithoutCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.pl.run(bg, tr, p); err != nil {
			ctxlog.FromContext(bg).Error("demo run failed", "trace", tr.ID(), "err", err)
		}
	}()
	return traceflow.RunResult{Success: true, TraceID: tr.ID()}
}

// Wait blocks until every triggered run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
