package metadata

import (
	"context"
	"sort"
	"sync"

	retrieverrors "github.com/runbookhq/retriever/internal/errors"
)

// MemoryStore is an in-memory Store, used by tests and by small
// deployments that rebuild metadata alongside the search indexes on
// every restart.
type MemoryStore struct {
	mu        sync.RWMutex
	chunks    map[string]Chunk
	documents map[string]Document
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chunks:    make(map[string]Chunk),
		documents: make(map[string]Document),
	}
}

// PutDocument inserts or replaces a document.
func (m *MemoryStore) PutDocument(doc Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
}

// PutChunk inserts or replaces a chunk.
func (m *MemoryStore) PutChunk(chunk Chunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[chunk.ID] = chunk
}

// GetChunksByIDs implements Store.
func (m *MemoryStore) GetChunksByIDs(_ context.Context, ids []string) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Chunk, 0, len(ids))
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetDocument implements Store.
func (m *MemoryStore) GetDocument(_ context.Context, docID string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.documents[docID]
	if !ok {
		return Document{}, retrieverrors.DocumentNotFound(docID)
	}
	return doc, nil
}

// GetAllChunks implements Store.
func (m *MemoryStore) GetAllChunks(_ context.Context) ([]Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Chunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close implements Store. No-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
