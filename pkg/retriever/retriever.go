package retriever

import (
	"context"
	"log/slog"
	"time"

	retrievercache "github.com/runbookhq/retriever/internal/cache"
	retrieverrors "github.com/runbookhq/retriever/internal/errors"
	"github.com/runbookhq/retriever/internal/fusion"
	"github.com/runbookhq/retriever/internal/indexmgr"
	"github.com/runbookhq/retriever/internal/metadata"
	"github.com/runbookhq/retriever/internal/search"
)

// Status is a combined readiness snapshot: index-manager readiness plus
// query-cache counters, in one value for callers that don't want to
// depend on both internal packages directly.
type Status struct {
	indexmgr.Status
	Cache retrievercache.Stats
}

// Retriever wires an index manager, a search orchestrator, and a query
// cache over a caller-supplied metadata store into one handle.
type Retriever struct {
	indexes    *indexmgr.Manager
	search     *search.Orchestrator
	cache      *retrievercache.Cache[search.CacheEntry]
	store      metadata.Store
	batchEmbed indexmgr.EmbedFunc
	logger     *slog.Logger
}

// Option configures a Retriever under construction.
type Option func(*options)

type options struct {
	indexDir     string
	indexesURL   string
	store        metadata.Store
	embedQuery   search.EmbedFunc
	embedBatch   indexmgr.EmbedFunc
	embedModel   string
	embedDim     int
	bm25K1       float64
	bm25B        float64
	fusionCfg    fusion.Config
	cacheMaxSize int
	cacheTTL     time.Duration
	logger       *slog.Logger
}

func defaultOptions() *options {
	return &options{
		indexDir:     "./data/indexes",
		bm25K1:       1.5,
		bm25B:        0.75,
		fusionCfg:    fusion.DefaultConfig(),
		cacheMaxSize: 1000,
		cacheTTL:     time.Hour,
	}
}

// WithIndexDir sets the directory versioned index builds are written
// under. Defaults to "./data/indexes".
func WithIndexDir(dir string) Option {
	return func(o *options) { o.indexDir = dir }
}

// WithIndexesURL configures a fallback source to download a prebuilt
// index archive from when IndexDir has no active version yet.
func WithIndexesURL(url string) Option {
	return func(o *options) { o.indexesURL = url }
}

// WithMetadataStore sets the chunk/document metadata store. Required.
func WithMetadataStore(store metadata.Store) Option {
	return func(o *options) { o.store = store }
}

// WithEmbedder wires a dense embedder for both index builds (batched)
// and query-time embedding (single text). modelName and dim identify the
// embedding space for dimension-compatibility checks on load. Omit this
// option to run BM25-only.
func WithEmbedder(embedBatch func(ctx context.Context, texts []string) ([][]float32, error), modelName string, dim int) Option {
	return func(o *options) {
		o.embedBatch = embedBatch
		o.embedModel = modelName
		o.embedDim = dim
		o.embedQuery = func(ctx context.Context, query string) ([]float32, error) {
			rows, err := embedBatch(ctx, []string{query})
			if err != nil {
				return nil, err
			}
			if len(rows) == 0 {
				return nil, retrieverrors.DenseSearchError(nil)
			}
			return rows[0], nil
		}
	}
}

// WithBM25Params overrides the BM25 k1/b constants (defaults 1.5/0.75).
func WithBM25Params(k1, b float64) Option {
	return func(o *options) { o.bm25K1 = k1; o.bm25B = b }
}

// WithFusionConfig overrides the RRF fusion weights/constant.
func WithFusionConfig(cfg fusion.Config) Option {
	return func(o *options) { o.fusionCfg = cfg }
}

// WithCache overrides the query cache's capacity and entry TTL.
func WithCache(maxSize int, ttl time.Duration) Option {
	return func(o *options) { o.cacheMaxSize = maxSize; o.cacheTTL = ttl }
}

// WithLogger overrides the structured logger used for search-pipeline
// events. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// New constructs a Retriever. WithMetadataStore is required; every other
// option has a usable default.
func New(opts ...Option) (*Retriever, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		return nil, retrieverrors.ConfigError("retriever: WithMetadataStore is required", nil)
	}

	indexes := indexmgr.New(o.indexDir, o.indexesURL, o.embedModel, o.embedDim, o.bm25K1, o.bm25B, o.store)
	cache := retrievercache.New[search.CacheEntry](o.cacheMaxSize, o.cacheTTL)
	orchestrator := search.New(indexes, o.store, cache, o.embedQuery, o.fusionCfg, o.logger)

	return &Retriever{
		indexes:    indexes,
		search:     orchestrator,
		cache:      cache,
		store:      o.store,
		batchEmbed: o.embedBatch,
		logger:     o.logger,
	}, nil
}

// BuildIndex reads the full corpus from the metadata store and builds a
// new BM25 (and, if an embedder was configured, dense) index version. A
// non-empty corpus is activated unconditionally; an empty one is written
// to disk but only activated if forceActivate is true, leaving whatever
// version was previously current in place otherwise. Returns the new
// version name either way.
func (r *Retriever) BuildIndex(ctx context.Context, forceActivate bool) (string, error) {
	return r.indexes.BuildIndexes(ctx, r.batchEmbed, forceActivate)
}

// LoadIndex loads whichever version is currently marked active, without
// building a new one. Returns false if no version has ever been built.
func (r *Retriever) LoadIndex() (bool, error) {
	return r.indexes.LoadIndexes()
}

// EnsureIndexPresent reports whether an active version is present on
// disk, first downloading and extracting a prebuilt archive from the
// configured indexes URL when none is. It does not load the indexes;
// LoadIndex does that. Returns false if neither is available.
func (r *Retriever) EnsureIndexPresent(ctx context.Context) (bool, error) {
	return r.indexes.EnsureIndexesPresent(ctx)
}

// Search runs the full retrieval pipeline: cache lookup, parallel
// BM25/dense retrieval with degradation, RRF fusion, metadata
// enrichment, post-filtering, and cache insertion.
func (r *Retriever) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	return r.search.Search(ctx, req)
}

// Status reports index readiness and query-cache counters in one value.
func (r *Retriever) Status() Status {
	return Status{Status: r.indexes.GetStatus(), Cache: r.cache.Stats()}
}

// InvalidateCache drops every cached search response, forcing the next
// query for each key to recompute. Callers typically do this right
// after BuildIndex activates a new version.
func (r *Retriever) InvalidateCache() {
	r.cache.Invalidate()
}

// Close releases the underlying metadata store's resources.
func (r *Retriever) Close() error {
	return r.store.Close()
}
