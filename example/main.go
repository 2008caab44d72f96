package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/memstore"
	"github.com/meikuraledutech/traceflow/payload"
	"github.com/meikuraledutech/traceflow/pipeline"
	"github.com/meikuraledutech/traceflow/postgres"
	"github.com/meikuraledutech/traceflow/view"
)

func main() {
	ctx := ctxlog.WithLogger(context.Background(), ctxlog.New(os.Stderr, "debug"))

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store traceflow.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	// ── Run the pipeline (trace is written through as it grows) ───────
	rec, err := pipeline.New(store).Run(ctx, pipeline.DemoPatients[0])
	if err != nil {
		log.Fatalf("run: %v", err)
	}
	fmt.Printf("trace %s: %v\n", rec.ID, rec.Sequence)

	// ── Bulk insert of a hand-written trace (sequence only) ───────────
	manual, err := store.SaveTrace(ctx, &traceflow.TraceRecord{
		Nodes: map[string]traceflow.StepResult{
			"TriageAgent":    {Input: json.RawMessage(`{"patient_id": "P99999", "vitals": "stable"}`)},
			"QAChatbotAgent": {Output: json.RawMessage(`{"answer": "Go to the nearest clinic."}`)},
		},
		Sequence: []string{"TriageAgent", "QAChatbotAgent"},
	})
	if err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Println("saved trace:", manual.ID)

	// ── History ───────────────────────────────────────────────────────
	list, err := store.ListTraces(ctx, 10)
	if err != nil {
		log.Fatalf("history: %v", err)
	}
	for _, s := range list {
		fmt.Printf("  %s  %s  patient=%s hospital=%q ambulance=%q steps=%d\n",
			s.ID, s.Timestamp.Format("2006-01-02 15:04:05"), s.PatientID, s.Hospital, s.Ambulance, s.Steps)
	}

	// ── Inspect a step the way the tooltip does ───────────────────────
	step, _ := rec.Step(pipeline.OptimizerStep)
	fmt.Println(payload.NodeTooltip(pipeline.OptimizerStep, step.Input, step.Output))

	// ── Render to SVG ─────────────────────────────────────────────────
	f, err := os.Create("flow.svg")
	if err != nil {
		log.Fatalf("create: %v", err)
	}
	defer f.Close()
	g, err := view.RenderStill(ctx, f, rec, view.DefaultConfig(), 1000)
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	fmt.Printf("wrote flow.svg (%d nodes, %d edges)\n", len(g.Nodes), len(g.Edges))

	// Cleanup
	if err := store.DeleteTrace(ctx, manual.ID); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("deleted trace:", manual.ID)
}
