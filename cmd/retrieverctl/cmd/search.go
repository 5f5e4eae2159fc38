package cmd

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runbookhq/retriever/internal/config"
	"github.com/runbookhq/retriever/internal/search"
)

type searchOptions struct {
	topK        int
	format      string
	sourceTypes []string
	projects    []string
	tags        []string
	scores      bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search query against the active index",
		Long: `Runs a query through the cache/retrieve/fuse/enrich pipeline and
prints the ranked, snippet-highlighted results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.topK, "top-k", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	cmd.Flags().StringSliceVar(&opts.sourceTypes, "source-type", nil, "Filter by source type (repeatable)")
	cmd.Flags().StringSliceVar(&opts.projects, "project", nil, "Filter by project (repeatable)")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "Filter by tag (repeatable)")
	cmd.Flags().BoolVar(&opts.scores, "scores", false, "Include the BM25/vector/fused score breakdown")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
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

	if _, err := r.EnsureIndexPresent(ctx); err != nil {
		slog.Warn("ensure_indexes_present_failed", slog.String("error", err.Error()))
	}
	if _, err := r.LoadIndex(); err != nil {
		return fmt.Errorf("failed to load index: %w", err)
	}

	req := search.Request{
		Query: query,
		TopK:  opts.topK,
		Filters: search.Filters{
			SourceTypes: opts.sourceTypes,
			Projects:    opts.projects,
			Tags:        opts.tags,
		},
		IncludeScores: opts.scores,
	}

	resp, err := r.Search(ctx, req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	return renderSearchResults(cmd, resp, opts.scores)
}

func renderSearchResults(cmd *cobra.Command, resp *search.Response, withScores bool) error {
	out := cmd.OutOrStdout()

	if len(resp.Results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", resp.Query)
		return nil
	}

	fmt.Fprintf(out, "Found %d result(s) for %q (mode: %s, %.1fms%s):\n\n",
		resp.TotalResults, resp.Query, resp.RetrievalMode, resp.LatencyMS, cacheSuffix(resp.CacheHit))

	for i, r := range resp.Results {
		fmt.Fprintf(out, "%d. [%s] %s (%s)\n", i+1, r.SourceType, r.Title, r.URL)
		if withScores {
			fmt.Fprintf(out, "   score=%.4f %s\n", r.Scores.FinalScore, formatRankDetail(r.Scores))
		}
		fmt.Fprintf(out, "   %s\n\n", r.Snippet)
	}
	return nil
}

func cacheSuffix(hit bool) string {
	if hit {
		return ", cache hit"
	}
	return ""
}

func formatRankDetail(s search.Scores) string {
	var parts []string
	if s.BM25Rank != nil {
		parts = append(parts, fmt.Sprintf("bm25_rank=%d", *s.BM25Rank))
	}
	if s.VectorRank != nil {
		parts = append(parts, fmt.Sprintf("vector_rank=%d", *s.VectorRank))
	}
	return strings.Join(parts, " ")
}
