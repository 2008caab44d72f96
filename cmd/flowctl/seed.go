package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/meikuraledutech/traceflow"
	"github.com/meikuraledutech/traceflow/pipeline"
)

func seedCmd(opts *options) *cobra.Command {
	var (
		count int
		out   string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Run the demo pipeline and store its traces",
		Long: "Runs the mock agents for the demo patients. Traces go to the configured\n" +
			"store; with --out the last trace is also written as JSON.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context) error {
				cfg, err := loadConfig(opts)
				if err != nil {
					return err
				}
				store, closeStore, err := openStore(ctx, cfg)
				if err != nil {
					return err
				}
				defer closeStore()

				pl := pipeline.New(store)
				w := cmd.OutOrStdout()
				var last *traceflow.TraceRecord
				for i := 0; i < count; i++ {
					p := pipeline.DemoPatients[i%len(pipeline.DemoPatients)]
					rec, err := pl.Run(ctx, p)
					if err != nil {
						return err
					}
					sum := rec.Summary()
					fmt.Fprintf(w, "  %s %s  %s\n", good.Sprint("✓"), rec.ID, subtle.Sprintf("%s -> %s", sum.PatientID, sum.Hospital))
					last = rec
				}

				if cfg.Store.Driver == "memory" && out == "" {
					warn.Fprintln(cmd.ErrOrStderr(), "  memory store: traces are discarded on exit, use --out or set DATABASE_URL")
				}
				if out == "" || last == nil {
					return nil
				}
				data, err := json.MarshalIndent(last, "", "  ")
				if err != nil {
					return err
				}
				return os.WriteFile(out, data, 0o644)
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of runs")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Write the last trace to this JSON file")
	return cmd
}
