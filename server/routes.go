package main

import (
	"bytes"
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/config"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
	"github.com/meikuraledutech/traceflow/view"
)

type api struct {
	store   traceflow.Store
	source  traceflow.Source
	runner  traceflow.Runner
	surface *view.Surface
	cfg     *config.Config
	logger  *slog.Logger
}

// flowEnvelope is what the flows endpoints return. Data is null when there
// is nothing to show.
type flowEnvelope struct {
	ID   string                 `json:"id,omitempty"`
	Data *traceflow.TraceRecord `json:"data"`
}

type showRequest struct {
	TraceID string `json:"trace_id"`
}

func newApp(a *api) *fiber.App {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(func(c fiber.Ctx) error {
		c.SetContext(ctxlog.WithLogger(c.Context(), a.logger.With("method", c.Method(), "path", c.Path())))
		return c.Next()
	})

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := a.store.CreateSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := a.store.DropSchema(c.Context()); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Flows ─────────────────────────────────────────────────────────
	app.Get("/api/flows/current", func(c fiber.Ctx) error {
		rec, err := a.source.Latest(c.Context())
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if rec == nil {
			return c.JSON(flowEnvelope{})
		}
		return c.JSON(flowEnvelope{ID: rec.ID, Data: rec})
	})

	app.Get("/api/flows/history", func(c fiber.Ctx) error {
		limit := a.cfg.Server.HistoryLimit
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return c.Status(400).JSON(fiber.Map{"error": "invalid limit"})
			}
			limit = n
		}
		list, err := a.store.ListTraces(c.Context(), limit)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(list)
	})

	app.Post("/api/flows", func(c fiber.Ctx) error {
		rec, err := traceflow.DecodeTrace(bytes.NewReader(c.Body()))
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		saved, err := a.store.SaveTrace(c.Context(), rec)
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(flowEnvelope{ID: saved.ID, Data: saved})
	})

	app.Get("/api/flows/:id", func(c fiber.Ctx) error {
		rec, err := a.source.Get(c.Context(), c.Params("id"))
		if errors.Is(err, traceflow.ErrTraceNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "flow not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(flowEnvelope{ID: rec.ID, Data: rec})
	})

	app.Delete("/api/flows/:id", func(c fiber.Ctx) error {
		if err := a.store.DeleteTrace(c.Context(), c.Params("id")); err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Get("/api/flows/:id/graph.svg", func(c fiber.Ctx) error {
		rec, err := a.source.Get(c.Context(), c.Params("id"))
		if errors.Is(err, traceflow.ErrTraceNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "flow not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		var buf bytes.Buffer
		_, err = view.RenderStill(c.Context(), &buf, rec, a.cfg.View(), a.cfg.Layout.MaxTicks)
		if err != nil && !errors.Is(err, graph.ErrEmptyGraph) {
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		return c.Send(buf.Bytes())
	})

	app.Post("/api/run-demo", func(c fiber.Ctx) error {
		res := a.runner.TriggerRun(c.Context())
		if !res.Success {
			return c.Status(500).JSON(res)
		}
		return c.JSON(fiber.Map{
			"success":          true,
			"trace_id":         res.TraceID,
			"refetch_after_ms": a.cfg.Demo.RefetchDelay.Milliseconds(),
		})
	})

	// ── Views ─────────────────────────────────────────────────────────
	app.Get("/api/views", func(c fiber.Ctx) error {
		return c.JSON(a.surface.Containers())
	})

	app.Post("/api/views/:container", func(c fiber.Ctx) error {
		a.surface.Register(c.Params("container"))
		return c.SendStatus(201)
	})

	app.Delete("/api/views/:container", func(c fiber.Ctx) error {
		name := c.Params("container")
		var err error
		if c.Query("unregister") == "true" {
			err = a.surface.Unregister(name)
		} else {
			err = a.surface.Teardown(name)
		}
		if errors.Is(err, view.ErrRenderTargetMissing) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})

	app.Post("/api/views/:container/show", func(c fiber.Ctx) error {
		var req showRequest
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&req); err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
			}
		}

		var rec *traceflow.TraceRecord
		var err error
		if req.TraceID == "" {
			rec, err = a.source.Latest(c.Context())
		} else {
			rec, err = a.source.Get(c.Context(), req.TraceID)
		}
		if errors.Is(err, traceflow.ErrTraceNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "flow not found"})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}

		name := c.Params("container")
		err = a.surface.ShowGraph(c.Context(), name, rec)
		switch {
		case errors.Is(err, view.ErrRenderTargetMissing):
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		case errors.Is(err, graph.ErrEmptyGraph):
			// the container shows the no-nodes placeholder
		case errors.Is(err, graph.ErrMalformedEdge):
			return c.Status(422).JSON(fiber.Map{"error": err.Error()})
		case err != nil:
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return a.frame(c, name)
	})

	app.Get("/api/views/:container/frame", func(c fiber.Ctx) error {
		return a.frame(c, c.Params("container"))
	})

	app.Post("/api/views/:container/events", func(c fiber.Ctx) error {
		var ev interact.Event
		if err := c.Bind().JSON(&ev); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid event"})
		}
		name := c.Params("container")
		err := a.surface.Dispatch(c.Context(), name, ev)
		if errors.Is(err, view.ErrRenderTargetMissing) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return a.frame(c, name)
	})

	app.Get("/api/views/:container/detail", func(c fiber.Ctx) error {
		d, err := a.surface.Detail(c.Params("container"))
		if errors.Is(err, view.ErrRenderTargetMissing) {
			return c.Status(404).JSON(fiber.Map{"error": err.Error()})
		}
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		if d == nil {
			return c.SendStatus(204)
		}
		if c.Query("format") == "text" {
			return c.SendString(d.Text())
		}
		return c.JSON(d)
	})

	return app
}

// frame writes the container's latest frame, as JSON or, with
// ?format=svg, as the bare drawing.
func (a *api) frame(c fiber.Ctx, container string) error {
	f, err := a.surface.Frame(container)
	if errors.Is(err, view.ErrRenderTargetMissing) {
		return c.Status(404).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	if c.Query("format") == "svg" {
		c.Set(fiber.HeaderContentType, "image/svg+xml")
		return c.SendString(f.SVG)
	}
	return c.JSON(f)
}
