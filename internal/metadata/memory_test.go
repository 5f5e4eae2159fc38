package metadata

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_GetChunksByIDsReturnsOnlyPresentIDs(t *testing.T) {
	m := NewMemoryStore()
	m.PutChunk(Chunk{ID: "c1", DocumentID: "d1", Content: "hello"})
	m.PutChunk(Chunk{ID: "c2", DocumentID: "d1", Content: "world"})

	got, err := m.GetChunksByIDs(context.Background(), []string{"c1", "missing", "c2"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemoryStore_GetDocumentReturnsNotFoundError(t *testing.T) {
	m := NewMemoryStore()
	_, err := m.GetDocument(context.Background(), "nope")
	assert.Error(t, err)
}

func TestMemoryStore_GetDocumentReturnsStoredValue(t *testing.T) {
	m := NewMemoryStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.PutDocument(Document{ID: "d1", Title: "Runbook", URL: "https://x/d1", SourceID: "docs", UpdatedAt: now})

	got, err := m.GetDocument(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "Runbook", got.Title)
	assert.True(t, got.UpdatedAt.Equal(now))
}

func TestMemoryStore_GetAllChunksReturnsSortedByID(t *testing.T) {
	m := NewMemoryStore()
	m.PutChunk(Chunk{ID: "c2", DocumentID: "d1", Content: "b"})
	m.PutChunk(Chunk{ID: "c1", DocumentID: "d1", Content: "a"})

	got, err := m.GetAllChunks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c2", got[1].ID)
}

func TestMemoryStore_GetChunksByIDsEmptyInputReturnsEmpty(t *testing.T) {
	m := NewMemoryStore()
	got, err := m.GetChunksByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
