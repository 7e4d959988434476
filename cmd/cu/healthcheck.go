package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/permaweb/cu/config"
)

func newHealthcheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "Report persistence and checkpoint-store reachability and exit",
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

			h := svc.API.Healthcheck(ctx)
			fmt.Printf("address: %s\npersistence: %v\ncheckpoints: %v\n", h.Address, h.PersistenceReachable, h.CheckpointsReachable)

			if !h.PersistenceReachable || !h.CheckpointsReachable {
				os.Exit(1)
			}
			return nil
		},
	}
}
