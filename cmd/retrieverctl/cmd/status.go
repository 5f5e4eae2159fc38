package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runbookhq/retriever/internal/config"
	"github.com/runbookhq/retriever/internal/ui"
	"github.com/runbookhq/retriever/pkg/retriever"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool
	var watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show index readiness and query-cache health",
		Long: `Displays whether the BM25 and dense indexes are ready, which
version is active, and the query cache's current size and hit rate.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, jsonOutput, watch, interval)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&watch, "watch", false, "Continuously refresh the status in a live dashboard")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval for --watch")

	return cmd
}

func runStatus(cmd *cobra.Command, jsonOutput, watch bool, interval time.Duration) error {
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

	if _, err := r.LoadIndex(); err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	fetch := func() ui.StatusInfo { return toStatusInfo(r.Status()) }

	if watch {
		noColor := ui.DetectNoColor() || !ui.IsTTY(cmd.OutOrStdout())
		return ui.Watch(ctx, fetch, interval, noColor)
	}

	noColor := ui.DetectNoColor()
	renderer := ui.NewStatusRenderer(cmd.OutOrStdout(), noColor)
	info := fetch()

	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func toStatusInfo(s retriever.Status) ui.StatusInfo {
	return ui.StatusInfo{
		CurrentVersion: s.CurrentVersion,
		BM25Ready:      s.BM25Ready,
		BM25Chunks:     s.BM25Chunks,
		VectorReady:    s.VectorReady,
		VectorChunks:   s.VectorChunks,
		CacheSize:      s.Cache.Size,
		CacheMaxSize:   s.Cache.MaxSize,
		CacheHits:      s.Cache.Hits,
		CacheMisses:    s.Cache.Misses,
		CacheHitRate:   s.Cache.HitRate,
	}
}
