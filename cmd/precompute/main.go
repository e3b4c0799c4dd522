package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"topo_precompute/pkg/engine"
	"topo_precompute/pkg/poi"
	"topo_precompute/pkg/postprocess"
	"topo_precompute/pkg/solver"
)

var verbose bool

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "precompute",
		Short:         "Precompute POI path costs for a network topology",
		Long:          "Reduces a large network topology to a small POI graph annotated\nwith pairwise shortest-path latency and jitter, for use by a simulator.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newInfoCmd())
	root.AddCommand(newGenCmd())
	return root
}

func newLogger() *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           level,
	})
}

// exitCode maps the error taxonomy to distinct exit codes so wrapper
// scripts can tell input errors from result-invariant failures apart.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, poi.ErrEmptyTopology), errors.Is(err, poi.ErrNoAggregationNodes):
		return 2
	case errors.Is(err, solver.ErrNegativeWeight):
		return 3
	case errors.Is(err, postprocess.ErrDisconnectedResult):
		return 4
	case errors.Is(err, engine.ErrIncompleteAggregation):
		return 5
	default:
		return 1
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}
