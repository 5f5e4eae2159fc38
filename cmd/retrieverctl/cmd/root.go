// Package cmd provides the CLI commands for retrieverctl.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/runbookhq/retriever/internal/logging"
	"github.com/runbookhq/retriever/pkg/version"
)

var (
	configPath string
	debugMode  bool

	loggingCleanup func()
)

// NewRootCmd creates the root command for the retrieverctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retrieverctl",
		Short: "Operational CLI for the hybrid retrieval engine",
		Long: `retrieverctl builds and queries the hybrid BM25 + dense retrieval
index over operational knowledge (docs, issues).

It is a manual-testing harness over the retriever library, not a
server — production deployments embed pkg/retriever directly.`,
		Version: version.Short(),
	}
	cmd.SetVersionTemplate("retrieverctl version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (optional; env RKB_* overrides still apply)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug-level structured logging to stderr")

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		logCfg := logging.DefaultConfig()
		if debugMode {
			logCfg = logging.DebugConfig()
		}
		logger, cleanup, err := logging.Setup(logCfg)
		if err != nil {
			return fmt.Errorf("failed to set up logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		return nil
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		if loggingCleanup != nil {
			loggingCleanup()
			loggingCleanup = nil
		}
		return nil
	}

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
