// Package config loads retriever configuration from defaults, an optional
// YAML file, and RKB_* environment variable overrides, in that order of
// increasing precedence.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	retrieverrors "github.com/runbookhq/retriever/internal/errors"
)

// Config is the complete retriever configuration.
type Config struct {
	// BM25K1 is the BM25 term-frequency saturation parameter.
	BM25K1 float64 `yaml:"bm25_k1"`

	// BM25B is the BM25 length-normalization parameter.
	BM25B float64 `yaml:"bm25_b"`

	// DefaultTopK is the result count used when a search request omits one.
	DefaultTopK int `yaml:"default_top_k"`

	// MaxTopK is the upper bound a search request's top_k may request.
	MaxTopK int `yaml:"max_top_k"`

	// CacheMaxSize is the query cache's maximum entry count.
	CacheMaxSize int `yaml:"cache_max_size"`

	// CacheTTLSeconds is how long a cached search response stays valid.
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`

	// IndexDir is the root directory the index manager stores versions under.
	IndexDir string `yaml:"index_dir"`

	// IndexesURL is an optional source to fetch a prebuilt index archive from
	// when IndexDir has no versions yet.
	IndexesURL string `yaml:"indexes_url"`

	// MetadataPath is the SQLite database file backing the chunk/document
	// metadata store consumed by the index manager and the orchestrator.
	MetadataPath string `yaml:"metadata_path"`

	// EmbeddingModel names the embedding model/provider to use for the dense index.
	EmbeddingModel string `yaml:"embedding_model"`

	// EmbeddingBatchSize is the batch size used when embedding chunks at build time.
	EmbeddingBatchSize int `yaml:"embedding_batch_size"`

	// BM25Weight and VectorWeight are the RRF fusion weights; must sum to 1.0.
	BM25Weight   float64 `yaml:"bm25_weight"`
	VectorWeight float64 `yaml:"vector_weight"`

	// RRFConstant is the RRF smoothing constant (k).
	RRFConstant int `yaml:"rrf_constant"`

	// LogLevel is the minimum structured-log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration defaults.
func Default() *Config {
	return &Config{
		BM25K1:             1.5,
		BM25B:              0.75,
		DefaultTopK:        10,
		MaxTopK:            50,
		CacheMaxSize:       1000,
		CacheTTLSeconds:    3600,
		IndexDir:           "./data/indexes",
		MetadataPath:       "./data/metadata.db",
		EmbeddingModel:     "static",
		EmbeddingBatchSize: 32,
		BM25Weight:         0.5,
		VectorWeight:       0.5,
		RRFConstant:        60,
		LogLevel:           "info",
	}
}

// Load builds a Config by layering an optional YAML file over the defaults,
// then applying RKB_* environment variable overrides, then validating the
// result. path may be empty, in which case only defaults and env vars apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return retrieverrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return retrieverrors.ConfigError(fmt.Sprintf("failed to parse config file %s", filepath.Base(path)), err)
	}
	return nil
}

// applyEnvOverrides applies RKB_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("RKB_BM25_K1"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BM25K1 = f
		}
	}
	if v := os.Getenv("RKB_BM25_B"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BM25B = f
		}
	}
	if v := os.Getenv("RKB_DEFAULT_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DefaultTopK = n
		}
	}
	if v := os.Getenv("RKB_MAX_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTopK = n
		}
	}
	if v := os.Getenv("RKB_CACHE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheMaxSize = n
		}
	}
	if v := os.Getenv("RKB_CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv("RKB_INDEX_DIR"); v != "" {
		c.IndexDir = v
	}
	if v := os.Getenv("RKB_INDEXES_URL"); v != "" {
		c.IndexesURL = v
	}
	if v := os.Getenv("RKB_METADATA_PATH"); v != "" {
		c.MetadataPath = v
	}
	if v := os.Getenv("RKB_EMBEDDING_MODEL"); v != "" {
		c.EmbeddingModel = v
	}
	if v := os.Getenv("RKB_EMBEDDING_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.EmbeddingBatchSize = n
		}
	}
	if v := os.Getenv("RKB_BM25_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.BM25Weight = f
		}
	}
	if v := os.Getenv("RKB_VECTOR_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.VectorWeight = f
		}
	}
	if v := os.Getenv("RKB_RRF_CONSTANT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RRFConstant = n
		}
	}
	if v := os.Getenv("RKB_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate checks the configuration for internally-inconsistent or
// out-of-range values, failing fast before any index or query runs.
func (c *Config) Validate() error {
	if c.BM25K1 <= 0 {
		return retrieverrors.ConfigError(fmt.Sprintf("bm25_k1 must be > 0, got %f", c.BM25K1), nil)
	}
	if c.BM25B < 0 || c.BM25B > 1 {
		return retrieverrors.ConfigError(fmt.Sprintf("bm25_b must be between 0 and 1, got %f", c.BM25B), nil)
	}
	if c.DefaultTopK < 1 {
		return retrieverrors.ConfigError(fmt.Sprintf("default_top_k must be >= 1, got %d", c.DefaultTopK), nil)
	}
	if c.MaxTopK < 1 {
		return retrieverrors.ConfigError(fmt.Sprintf("max_top_k must be >= 1, got %d", c.MaxTopK), nil)
	}
	if c.DefaultTopK > c.MaxTopK {
		return retrieverrors.ConfigError(fmt.Sprintf("default_top_k (%d) must not exceed max_top_k (%d)", c.DefaultTopK, c.MaxTopK), nil)
	}
	if c.CacheMaxSize < 0 {
		return retrieverrors.ConfigError(fmt.Sprintf("cache_max_size must be non-negative, got %d", c.CacheMaxSize), nil)
	}
	if c.CacheTTLSeconds < 0 {
		return retrieverrors.ConfigError(fmt.Sprintf("cache_ttl_seconds must be non-negative, got %d", c.CacheTTLSeconds), nil)
	}
	if c.BM25Weight < 0 || c.VectorWeight < 0 {
		return retrieverrors.ConfigError("bm25_weight and vector_weight must be non-negative", nil)
	}
	if sum := c.BM25Weight + c.VectorWeight; math.Abs(sum-1.0) > 0.01 {
		return retrieverrors.ConfigError(fmt.Sprintf("bm25_weight + vector_weight must equal 1.0, got %.2f", sum), nil)
	}
	if c.RRFConstant <= 0 {
		return retrieverrors.ConfigError(fmt.Sprintf("rrf_constant must be > 0, got %d", c.RRFConstant), nil)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return retrieverrors.ConfigError(fmt.Sprintf("log_level must be debug, info, warn, or error, got %s", c.LogLevel), nil)
	}
	return nil
}
