package main

import (
	"github.com/dogmatiq/dodeca/logging"
	"github.com/spf13/cobra"

	"github.com/permaweb/cu/config"
)

func newCheckpointCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Run one checkpointAll sweep over the process memory cache and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			log, closeLog := newLogger()
			defer closeLog()

			cfg := config.Load()

			svc, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.API.CheckpointAll(ctx); err != nil {
				return err
			}

			logging.Log(log, "checkpointAll: sweep complete")
			return nil
		},
	}
}
