package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func historyCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored traces, newest first",
		Args:  cobra.NoArgs,
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

				list, err := store.ListTraces(ctx, limit)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(w, "  No traces stored.")
					return nil
				}
				rows := make([][]string, 0, len(list))
				for _, s := range list {
					rows = append(rows, []string{
						s.ID,
						s.Timestamp.Format("2006-01-02 15:04:05"),
						s.PatientID,
						s.Hospital,
						s.Ambulance,
						fmt.Sprint(s.Steps),
					})
				}
				table(w, []string{"ID", "TIME", "PATIENT", "HOSPITAL", "AMBULANCE", "STEPS"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows")
	return cmd
}
