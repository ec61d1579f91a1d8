// Package cmd provides the CLI commands for cadi.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ConflictingTheories/cadi/internal/logging"
	"github.com/ConflictingTheories/cadi/pkg/version"
)

var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the cadi CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cadi",
		Short: "Content-addressed chunk engine for code context",
		Long: `cadi atomizes source files into bounded, content-addressed chunks,
tracks their dependencies in a graph store, and rehydrates a bounded
context window around any seed chunk for downstream tooling.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: startLogging,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			stopLogging()
			return nil
		},
	}

	cmd.SetVersionTemplate("cadi version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.cadi/logs/")

	cmd.AddCommand(newAtomizeCmd())
	cmd.AddCommand(newViewCmd())
	cmd.AddCommand(newSimulateCmd())
	cmd.AddCommand(newWatchCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
