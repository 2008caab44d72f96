package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/config"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/graph"
	"github.com/meikuraledutech/traceflow/interact"
	"github.com/meikuraledutech/traceflow/live"
	"github.com/meikuraledutech/traceflow/memstore"
	"github.com/meikuraledutech/traceflow/pipeline"
	"github.com/meikuraledutech/traceflow/postgres"
	"github.com/meikuraledutech/traceflow/view"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	logger := ctxlog.New(os.Stderr, cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.Store.AutoMigrate {
		if err := store.CreateSchema(ctx); err != nil {
			return err
		}
	}

	pl := pipeline.New(store)
	pl.StepDelay = cfg.Demo.StepDelay
	runner := pipeline.NewRunner(pl)

	var surface *view.Surface
	var hub *live.Hub
	hooks := view.Hooks{}
	if cfg.Live.Enabled {
		hub = live.NewHub(ctx, func(ctx context.Context, container string, ev interact.Event) error {
			return surface.Dispatch(ctx, container, ev)
		})
		hooks = hub.Hooks()
	}
	hooks = withInspectLog(hooks, logger)

	surface = view.NewSurface(ctx, cfg.View(), hooks)
	defer surface.Close()
	for _, name := range cfg.Server.Containers {
		surface.Register(name)
	}
	if hub != nil {
		go serveLive(ctx, cfg.Live, hub, logger)
	}

	app := newApp(&api{
		store:   store,
		source:  traceflow.StoreSource{Store: store},
		runner:  runner,
		surface: surface,
		cfg:     cfg,
		logger:  logger,
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Warn("shutdown", "err", err)
		}
	}()

	logger.Info("listening", "addr", cfg.Server.Addr, "store", cfg.Store.Driver)
	if err := app.Listen(cfg.Server.Addr); err != nil {
		return err
	}
	runner.Wait()
	return nil
}

func openStore(ctx context.Context, cfg *config.Config) (traceflow.Store, func(), error) {
	if cfg.Store.Driver != "postgres" {
		return memstore.New(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return postgres.New(pool), pool.Close, nil
}

func serveLive(ctx context.Context, lc config.LiveConfig, hub *live.Hub, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(lc.Path, hub)
	srv := &http.Server{Addr: lc.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("live feed listening", "addr", lc.Addr, "path", lc.Path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("live feed stopped", "err", err)
	}
}

// withInspectLog logs inspections before handing them to h.
func withInspectLog(h view.Hooks, logger *slog.Logger) view.Hooks {
	node, edge := h.OnNodeInspect, h.OnEdgeInspect
	h.OnNodeInspect = func(container string, id graph.NodeID, step traceflow.StepResult) {
		logger.Info("node inspected", "container", container, "node", id)
		if node != nil {
			node(container, id, step)
		}
	}
	h.OnEdgeInspect = func(container string, e graph.Edge) {
		logger.Info("edge inspected", "container", container, "source", e.Source, "target", e.Target)
		if edge != nil {
			edge(container, e)
		}
	}
	return h
}
