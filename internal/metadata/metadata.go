// Package metadata defines the chunk/document lookup surface the search
// orchestrator and index builder consume, and a SQLite-backed reference
// implementation.
package metadata

import (
	"context"
	"time"
)

// Chunk is a single searchable unit of a document's content.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
}

// Document is the page or issue a chunk was extracted from.
type Document struct {
	ID        string
	Title     string
	URL       string
	SourceID  string
	Project   string
	Tags      []string
	UpdatedAt time.Time
}

// Store is the metadata lookup surface consumed by the search
// orchestrator (enrichment) and the index builder (corpus read).
type Store interface {
	// GetChunksByIDs returns the chunks present for the given ids, in no
	// particular order. Ids with no matching row are simply absent from
	// the result (an enrichment miss, not an error).
	GetChunksByIDs(ctx context.Context, ids []string) ([]Chunk, error)

	// GetDocument returns the document with the given id, or an
	// ERR_DOCUMENT_NOT_FOUND error if it doesn't exist.
	GetDocument(ctx context.Context, docID string) (Document, error)

	// GetAllChunks returns every chunk in the store, ordered by id, for
	// index builds.
	GetAllChunks(ctx context.Context) ([]Chunk, error)

	// Close releases the store's resources.
	Close() error
}
