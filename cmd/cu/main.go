// Command cu runs the Compute Unit evaluation core: the read API, the
// evaluation pipeline, and the maintenance operations (checkpointAll,
// healthcheck) built on top of it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/permaweb/cu/internal/zaplog"
)

// newLogger builds the bootstrap logger used while other components are
// still being wired; once wiring is complete, the same logger is threaded
// through every dependency struct as its dodeca/logging.Logger.
func newLogger() (zaplog.Logger, func()) {
	debug := os.Getenv("CU_DEBUG") == "true"
	return zaplog.New(debug)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cu",
		Short: "Compute Unit evaluation core",
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newCheckpointCmd())
	cmd.AddCommand(newHealthcheckCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
