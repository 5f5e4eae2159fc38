package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/runbookhq/retriever/internal/config"
)

func newBuildCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a new index version from the metadata store",
		Long: `Reads every chunk from the configured metadata store, builds a new
BM25 index (and a dense index, if embedding_model is configured), and
activates the new version on success. A version built from an empty
metadata store is still written to disk but is only activated when
--force is given; otherwise the prior active version (if any) is
retained.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "activate the new version even if the metadata store has no chunks")
	return cmd
}

func runBuild(cmd *cobra.Command, force bool) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	r, err := openRetriever(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	version, err := r.BuildIndex(ctx, force)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	if r.Status().CurrentVersion == version {
		slog.Info("build_complete", slog.String("version", version))
		fmt.Fprintf(cmd.OutOrStdout(), "Built and activated index version %s\n", version)
	} else {
		slog.Warn("build_complete_not_activated", slog.String("version", version))
		fmt.Fprintf(cmd.OutOrStdout(), "Built index version %s from an empty metadata store; not activated (use --force to activate anyway)\n", version)
	}
	return nil
}
