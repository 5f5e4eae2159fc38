package embed

import "context"

// Kind selects which Embedder implementation to construct.
type Kind string

const (
	// KindStatic is the deterministic, network-free embedder.
	KindStatic Kind = "static"
	// KindOllama is the HTTP embedder backed by a local Ollama server.
	KindOllama Kind = "ollama"
)

// FactoryConfig configures New.
type FactoryConfig struct {
	Kind      Kind
	Ollama    OllamaConfig
	CacheSize int // 0 disables caching
}

// New constructs an Embedder of the requested kind, wrapped in an LRU cache
// unless CacheSize is 0.
func New(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	var inner Embedder
	switch cfg.Kind {
	case KindOllama:
		e, err := NewOllamaEmbedder(ctx, cfg.Ollama)
		if err != nil {
			return nil, err
		}
		inner = e
	case KindStatic, "":
		inner = NewStaticEmbedder()
	default:
		inner = NewStaticEmbedder()
	}

	if cfg.CacheSize == 0 {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
