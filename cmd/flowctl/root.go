package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/config"
	"github.com/meikuraledutech/traceflow/ctxlog"
	"github.com/meikuraledutech/traceflow/memstore"
	"github.com/meikuraledutech/traceflow/postgres"
)

var version = "0.3.0"

type options struct {
	configPath string
	logLevel   string
	noColor    bool
}

func rootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "flowctl",
		Short:         "Inspect and render pipeline traces",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
			level := opts.logLevel
			if level == "" {
				level = "warn"
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(ctxlog.WithLogger(ctx, ctxlog.New(cmd.ErrOrStderr(), level)))
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "TOML config file (default $TRACEFLOW_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		renderCmd(opts),
		inspectCmd(opts),
		summaryCmd(opts),
		seedCmd(opts),
		historyCmd(opts),
	)
	return cmd
}

// run executes cmd and reports a failure in red.
func run(cmd *cobra.Command, fn func(ctx context.Context) error) error {
	if err := fn(cmd.Context()); err != nil {
		bad.Fprintf(cmd.ErrOrStderr(), "flowctl: %v\n", err)
		return err
	}
	return nil
}

func loadConfig(opts *options) (*config.Config, error) {
	return config.Load(opts.configPath)
}

// readTrace reads a trace from path, or stdin when path is "-".
func readTrace(cmd *cobra.Command, path string) (*traceflow.TraceRecord, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	return traceflow.DecodeTrace(r)
}

// openStore connects to the configured store.
func openStore(ctx context.Context, cfg *config.Config) (traceflow.Store, func(), error) {
	if cfg.Store.Driver != "postgres" {
		return memstore.New(), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	s := postgres.New(pool)
	if cfg.Store.AutoMigrate {
		if err := s.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("schema: %w", err)
		}
	}
	return s, pool.Close, nil
}
