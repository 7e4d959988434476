package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dogmatiq/dodeca/logging"
	"github.com/spf13/cobra"

	"github.com/permaweb/cu/config"
)

// shutdownGrace bounds how long the HTTP server waits for in-flight
// requests to finish once a shutdown signal arrives.
const shutdownGrace = 15 * time.Second

// newContext returns a context canceled on SIGINT or SIGTERM.
func newContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
		case <-sig:
			cancel()
		}
	}()

	return ctx, cancel
}

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Compute Unit's read API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := newContext()
			defer cancel()

			log, closeLog := newLogger()
			defer closeLog()

			cfg := config.Load()

			svc, err := build(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer svc.Close()

			server := &httpServer{
				Address: addr,
				Handler: routes(svc.API),
				Logger:  log,
			}

			if err := server.Run(ctx); err != nil {
				return err
			}

			logging.Log(log, "shutdown complete")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envDefault("CU_LISTEN_ADDRESS", ":6363"), "address to listen on")

	return cmd
}

func envDefault(name, def string) string {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v
	}
	return def
}
