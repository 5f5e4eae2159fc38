package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/retriever/internal/metadata"
	"github.com/runbookhq/retriever/internal/search"
)

func TestNew_RequiresMetadataStore(t *testing.T) {
	_, err := New(WithIndexDir(t.TempDir()))
	require.Error(t, err)
}

func TestNew_SucceedsWithOnlyMetadataStore(t *testing.T) {
	r, err := New(WithIndexDir(t.TempDir()), WithMetadataStore(metadata.NewMemoryStore()))
	require.NoError(t, err)
	assert.NotNil(t, r)
}

func TestRetriever_BuildAndSearchRoundTrips(t *testing.T) {
	store := metadata.NewMemoryStore()
	store.PutDocument(metadata.Document{ID: "d1", Title: "Runbook", URL: "https://x/d1", SourceID: "docs", UpdatedAt: time.Now().UTC()})
	store.PutChunk(metadata.Chunk{ID: "c1", DocumentID: "d1", Content: "connection pool exhausted retry backoff"})

	r, err := New(WithIndexDir(t.TempDir()), WithMetadataStore(store))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	version, err := r.BuildIndex(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, version)

	resp, err := r.Search(context.Background(), search.Request{Query: "connection pool exhausted", TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "c1", resp.Results[0].ChunkID)
}

func TestRetriever_StatusReflectsBuiltIndex(t *testing.T) {
	store := metadata.NewMemoryStore()
	store.PutDocument(metadata.Document{ID: "d1", Title: "Runbook", URL: "https://x/d1", SourceID: "docs", UpdatedAt: time.Now().UTC()})
	store.PutChunk(metadata.Chunk{ID: "c1", DocumentID: "d1", Content: "timeout while dialing upstream"})

	r, err := New(WithIndexDir(t.TempDir()), WithMetadataStore(store))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, err = r.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	status := r.Status()
	assert.True(t, status.BM25Ready)
	assert.Equal(t, 1, status.BM25Chunks)
	assert.False(t, status.VectorReady)
}

func TestRetriever_InvalidateCacheClearsCounters(t *testing.T) {
	store := metadata.NewMemoryStore()
	store.PutDocument(metadata.Document{ID: "d1", Title: "Runbook", URL: "https://x/d1", SourceID: "docs", UpdatedAt: time.Now().UTC()})
	store.PutChunk(metadata.Chunk{ID: "c1", DocumentID: "d1", Content: "disk pressure eviction threshold"})

	r, err := New(WithIndexDir(t.TempDir()), WithMetadataStore(store))
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	_, err = r.BuildIndex(context.Background(), false)
	require.NoError(t, err)

	_, err = r.Search(context.Background(), search.Request{Query: "disk pressure", TopK: 5})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Status().Cache.Size)

	r.InvalidateCache()
	assert.Equal(t, 0, r.Status().Cache.Size)
}
