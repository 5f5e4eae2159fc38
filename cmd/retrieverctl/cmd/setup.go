package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/runbookhq/retriever/internal/config"
	"github.com/runbookhq/retriever/internal/embed"
	"github.com/runbookhq/retriever/internal/fusion"
	"github.com/runbookhq/retriever/internal/metadata"
	"github.com/runbookhq/retriever/pkg/retriever"
)

// openRetriever opens the metadata store named by cfg and wires a
// Retriever over it. The caller owns the store's lifetime via
// Retriever.Close.
func openRetriever(ctx context.Context, cfg *config.Config) (*retriever.Retriever, error) {
	store, err := metadata.OpenSQLiteStore(cfg.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	opts := []retriever.Option{
		retriever.WithIndexDir(cfg.IndexDir),
		retriever.WithIndexesURL(cfg.IndexesURL),
		retriever.WithMetadataStore(store),
		retriever.WithBM25Params(cfg.BM25K1, cfg.BM25B),
		retriever.WithFusionConfig(fusion.Config{
			KR:         cfg.RRFConstant,
			BM25Weight: cfg.BM25Weight,
			VecWeight:  cfg.VectorWeight,
		}),
		retriever.WithCache(cfg.CacheMaxSize, time.Duration(cfg.CacheTTLSeconds)*time.Second),
	}

	if embedBatch, modelName, dim, ok := resolveEmbedder(ctx, cfg.EmbeddingModel); ok {
		opts = append(opts, retriever.WithEmbedder(embedBatch, modelName, dim))
	}

	r, err := retriever.New(opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return r, nil
}

// resolveEmbedder maps a config embedding_model name to a batch-embed
// function. "static" (the default) selects the deterministic,
// network-free embedder; "ollama" selects the local Ollama-backed one;
// anything else (including empty) disables the dense index and the
// retriever runs BM25-only.
func resolveEmbedder(ctx context.Context, modelName string) (func(ctx context.Context, texts []string) ([][]float32, error), string, int, bool) {
	var kind embed.Kind
	switch modelName {
	case "static":
		kind = embed.KindStatic
	case "ollama":
		kind = embed.KindOllama
	default:
		return nil, "", 0, false
	}

	embedder, err := embed.New(ctx, embed.FactoryConfig{Kind: kind})
	if err != nil {
		return nil, "", 0, false
	}

	return embedder.EmbedBatch, embedder.ModelName(), embedder.Dimensions(), true
}
