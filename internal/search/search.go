// Package search implements the single-entry-point query orchestrator:
// cache lookup, parallel BM25 + dense retrieval with graceful dense-side
// degradation, RRF fusion, metadata enrichment, snippet building,
// post-retrieval filtering, and cache insertion.
package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runbookhq/retriever/internal/bm25"
	"github.com/runbookhq/retriever/internal/cache"
	retrieverrors "github.com/runbookhq/retriever/internal/errors"
	"github.com/runbookhq/retriever/internal/fusion"
	"github.com/runbookhq/retriever/internal/indexmgr"
	"github.com/runbookhq/retriever/internal/metadata"
	"github.com/runbookhq/retriever/internal/snippet"
	"github.com/runbookhq/retriever/internal/vectorindex"
)

// fetchK is the number of candidates requested from each retriever
// before fusion; must be >= the largest top_k a request can carry.
const fetchK = 100

// Mode names the retrieval strategy a response was served under.
type Mode string

const (
	ModeHybrid     Mode = "hybrid"
	ModeBM25Only   Mode = "bm25_only"
	ModeVectorOnly Mode = "vector_only"
)

// Filters narrows results after fusion and enrichment.
type Filters struct {
	SourceTypes []string `json:"source_types,omitempty"`
	Projects    []string `json:"projects,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Request is a single search call's input.
type Request struct {
	Query         string  `json:"query"`
	Filters       Filters `json:"filters"`
	TopK          int     `json:"top_k"`
	IncludeScores bool    `json:"include_scores"`
}

// Scores is the score breakdown for one result.
type Scores struct {
	BM25Score   *float64 `json:"bm25_score,omitempty"`
	BM25Rank    *int     `json:"bm25_rank,omitempty"`
	VectorScore *float64 `json:"vector_score,omitempty"`
	VectorRank  *int     `json:"vector_rank,omitempty"`
	FinalScore  float64  `json:"final_score"`
}

// Result is one enriched, ranked chunk.
type Result struct {
	ChunkID    string    `json:"chunk_id"`
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	SourceType string    `json:"source_type"`
	Project    string    `json:"project"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
	Snippet    string    `json:"snippet"`
	Scores     Scores    `json:"scores"`
}

// Response is the orchestrator's full answer to a Request.
type Response struct {
	Query         string   `json:"query"`
	Results       []Result `json:"results"`
	TotalResults  int      `json:"total_results"`
	LatencyMS     float64  `json:"latency_ms"`
	RetrievalMode Mode     `json:"retrieval_mode"`
	CacheHit      bool     `json:"cache_hit"`
}

// EmbedFunc turns a query string into a unit-norm query vector.
type EmbedFunc func(ctx context.Context, query string) ([]float32, error)

// CacheEntry is what the query cache actually stores: the enriched
// results plus the mode they were served under, so a cache hit can report
// its original retrieval_mode instead of a guess.
type CacheEntry struct {
	Results []Result
	Mode    Mode
}

// Orchestrator is the C8 search entry point.
type Orchestrator struct {
	indexes *indexmgr.Manager
	store   metadata.Store
	cache   *cache.Cache[CacheEntry]
	embed   EmbedFunc
	fusion  fusion.Config
	logger  *slog.Logger
}

// New creates an Orchestrator over the given index manager, metadata
// store, and result cache. embed may be nil, in which case every search
// runs bm25_only regardless of whether a dense index is loaded.
func New(indexes *indexmgr.Manager, store metadata.Store, resultCache *cache.Cache[CacheEntry], embed EmbedFunc, fusionCfg fusion.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		indexes: indexes,
		store:   store,
		cache:   resultCache,
		embed:   embed,
		fusion:  fusionCfg,
		logger:  logger,
	}
}

// Search runs the full pipeline for one request.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	cacheKey := cache.Key(req.Query, filtersAsMap(req.Filters), req.TopK)
	if cached, ok := o.cache.Get(cacheKey); ok {
		return &Response{
			Query:         req.Query,
			Results:       cached.Results,
			TotalResults:  len(cached.Results),
			LatencyMS:     elapsedMS(start),
			RetrievalMode: cached.Mode,
			CacheHit:      true,
		}, nil
	}

	bm25Idx := o.indexes.BM25()
	vecIdx := o.indexes.Vector()
	bm25Ready := bm25Idx != nil && bm25Idx.IsReady()
	vecReady := vecIdx != nil && vecIdx.IsReady() && o.embed != nil

	if !bm25Ready && !vecReady {
		o.logger.Warn("search_not_ready", slog.String("query", req.Query))
		return &Response{
			Query:         req.Query,
			Results:       []Result{},
			TotalResults:  0,
			LatencyMS:     elapsedMS(start),
			RetrievalMode: ModeHybrid,
			CacheHit:      false,
		}, nil
	}

	fused, mode, err := o.retrieve(ctx, req.Query, bm25Idx, vecIdx, bm25Ready, vecReady)
	if err != nil {
		return nil, err
	}

	enriched, err := o.enrich(ctx, fused, req.Query)
	if err != nil {
		return nil, err
	}

	filtered := applyFilters(enriched, req.Filters)
	if len(filtered) > req.TopK {
		filtered = filtered[:req.TopK]
	}

	o.cache.Set(cacheKey, CacheEntry{Results: filtered, Mode: mode})

	o.logger.Info("search_complete",
		slog.String("query", req.Query),
		slog.Int("results_count", len(filtered)),
		slog.String("mode", string(mode)),
		slog.Bool("bm25_ready", bm25Ready),
		slog.Bool("vector_ready", vecReady),
	)

	return &Response{
		Query:         req.Query,
		Results:       filtered,
		TotalResults:  len(filtered),
		LatencyMS:     elapsedMS(start),
		RetrievalMode: mode,
		CacheHit:      false,
	}, nil
}

// retrieve fetches candidates from whichever retrievers are ready,
// running both in parallel when both are available, and degrades a
// hybrid request to bm25_only if the dense leg errors.
func (o *Orchestrator) retrieve(ctx context.Context, query string, bm25Idx *bm25.Index, vecIdx *vectorindex.Index, bm25Ready, vecReady bool) ([]fusion.Result, Mode, error) {
	switch {
	case bm25Ready && vecReady:
		return o.hybridRetrieve(ctx, query, bm25Idx, vecIdx)
	case bm25Ready:
		return fusion.FuseBM25Only(rankBM25(bm25Idx.Search(query, fetchK))), ModeBM25Only, nil
	default:
		queryVec, err := o.embed(ctx, query)
		if err != nil {
			return nil, ModeVectorOnly, retrieverrors.DenseSearchError(err)
		}
		vecResults, err := vecIdx.Search(queryVec, fetchK)
		if err != nil {
			return nil, ModeVectorOnly, retrieverrors.DenseSearchError(err)
		}
		return fusion.FuseVectorOnly(rankVector(vecResults)), ModeVectorOnly, nil
	}
}

func (o *Orchestrator) hybridRetrieve(ctx context.Context, query string, bm25Idx *bm25.Index, vecIdx *vectorindex.Index) ([]fusion.Result, Mode, error) {
	var bm25Results []bm25.Result
	var vecResults []vectorindex.Result
	var vecErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		bm25Results = bm25Idx.Search(query, fetchK)
		return nil
	})
	g.Go(func() error {
		queryVec, err := o.embed(gctx, query)
		if err != nil {
			vecErr = err
			return nil
		}
		vecResults, vecErr = vecIdx.Search(queryVec, fetchK)
		return nil
	})
	_ = g.Wait()

	if vecErr != nil {
		o.logger.Warn("dense_search_failed_degrading", slog.String("query", query), slog.String("error", vecErr.Error()))
		return fusion.FuseBM25Only(rankBM25(bm25Results)), ModeBM25Only, nil
	}

	fused := fusion.Fuse(rankBM25(bm25Results), rankVector(vecResults), o.fusion)
	return fused, ModeHybrid, nil
}

// enrich fetches chunk and document metadata for each fused candidate,
// dropping any candidate whose chunk or document is missing (race with
// concurrent ingest deletion), and builds the highlighted snippet.
func (o *Orchestrator) enrich(ctx context.Context, fused []fusion.Result, query string) ([]Result, error) {
	if len(fused) == 0 {
		return []Result{}, nil
	}

	ids := make([]string, len(fused))
	for i, f := range fused {
		ids[i] = f.ChunkID
	}

	chunks, err := o.store.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	chunkByID := make(map[string]metadata.Chunk, len(chunks))
	for _, c := range chunks {
		chunkByID[c.ID] = c
	}

	docCache := make(map[string]metadata.Document)
	out := make([]Result, 0, len(fused))
	for _, f := range fused {
		chunk, ok := chunkByID[f.ChunkID]
		if !ok {
			continue
		}

		doc, ok := docCache[chunk.DocumentID]
		if !ok {
			fetched, err := o.store.GetDocument(ctx, chunk.DocumentID)
			if err != nil {
				continue
			}
			doc = fetched
			docCache[chunk.DocumentID] = doc
		}

		out = append(out, Result{
			ChunkID:    f.ChunkID,
			DocumentID: doc.ID,
			Title:      doc.Title,
			URL:        doc.URL,
			SourceType: sourceTypeOf(doc.SourceID),
			Project:    doc.Project,
			UpdatedAt:  doc.UpdatedAt,
			Snippet:    snippet.Build(chunk.Content, query),
			Scores:     scoresOf(f),
		})
	}
	return out, nil
}

func sourceTypeOf(sourceID string) string {
	if strings.Contains(strings.ToLower(sourceID), "issues") {
		return "issues"
	}
	return "docs"
}

func scoresOf(f fusion.Result) Scores {
	s := Scores{FinalScore: f.FinalScore}
	if f.BM25Present {
		score := f.BM25Score
		rank := f.BM25Rank
		s.BM25Score = &score
		s.BM25Rank = &rank
	}
	if f.VecPresent {
		score := f.VecScore
		rank := f.VecRank
		s.VectorScore = &score
		s.VectorRank = &rank
	}
	return s
}

func applyFilters(results []Result, f Filters) []Result {
	out := results
	if len(f.SourceTypes) > 0 {
		out = filterBy(out, func(r Result) bool { return contains(f.SourceTypes, r.SourceType) })
	}
	if len(f.Projects) > 0 {
		out = filterBy(out, func(r Result) bool { return contains(f.Projects, r.Project) })
	}
	return out
}

func filterBy(results []Result, keep func(Result) bool) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func filtersAsMap(f Filters) map[string]any {
	m := map[string]any{}
	if len(f.SourceTypes) > 0 {
		m["source_types"] = f.SourceTypes
	}
	if len(f.Projects) > 0 {
		m["projects"] = f.Projects
	}
	if len(f.Tags) > 0 {
		m["tags"] = f.Tags
	}
	return m
}

func rankBM25(results []bm25.Result) []fusion.Ranked {
	out := make([]fusion.Ranked, len(results))
	for i, r := range results {
		out[i] = fusion.Ranked{ChunkID: r.ChunkID, Score: r.Score, Rank: i + 1}
	}
	return out
}

func rankVector(results []vectorindex.Result) []fusion.Ranked {
	out := make([]fusion.Ranked, len(results))
	for i, r := range results {
		out[i] = fusion.Ranked{ChunkID: r.ChunkID, Score: r.Score, Rank: i + 1}
	}
	return out
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
