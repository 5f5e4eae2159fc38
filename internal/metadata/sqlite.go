package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGO

	retrieverrors "github.com/runbookhq/retriever/internal/errors"
)

// SQLiteStore is the reference Store implementation: documents and chunks
// held in a SQLite database opened in WAL mode for concurrent readers
// (the builder and the search server read the same file while a build is
// in progress against a separate version directory).
type SQLiteStore struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// validateIntegrity runs PRAGMA integrity_check against an existing
// database file before opening it for real use, so a corrupted metadata
// file is reported as an index-corrupt condition rather than surfacing as
// confusing query errors later.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}

// OpenSQLiteStore opens (creating if necessary) a metadata store backed by
// the SQLite file at path. An empty path opens an in-memory database,
// useful in tests.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		if err := validateIntegrity(path); err != nil {
			return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("metadata store at %s failed integrity check", path), err)
		}
		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store: %w", err)
	}

	// One connection serializes this process's reads and writes; WAL mode
	// lets other processes keep reading the file during a write.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize metadata schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		url        TEXT NOT NULL,
		source_id  TEXT NOT NULL,
		project    TEXT NOT NULL DEFAULT '',
		tags       TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id),
		content     TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// UpsertDocument inserts or replaces a document row.
func (s *SQLiteStore) UpsertDocument(ctx context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, url, source_id, project, tags, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, url=excluded.url, source_id=excluded.source_id,
			project=excluded.project, tags=excluded.tags, updated_at=excluded.updated_at
	`, doc.ID, doc.Title, doc.URL, doc.SourceID, doc.Project, joinTags(doc.Tags), doc.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

// UpsertChunk inserts or replaces a chunk row.
func (s *SQLiteStore) UpsertChunk(ctx context.Context, chunk Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("metadata store is closed")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chunks (id, document_id, content)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document_id=excluded.document_id, content=excluded.content
	`, chunk.ID, chunk.DocumentID, chunk.Content)
	return err
}

// GetChunksByIDs implements Store.
func (s *SQLiteStore) GetChunksByIDs(ctx context.Context, ids []string) ([]Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("metadata store is closed")
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, document_id, content FROM chunks WHERE id IN (%s)`, joinPlaceholders(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chunk lookup failed: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetDocument implements Store.
func (s *SQLiteStore) GetDocument(ctx context.Context, docID string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Document{}, fmt.Errorf("metadata store is closed")
	}

	var doc Document
	var tags, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, url, source_id, project, tags, updated_at FROM documents WHERE id = ?
	`, docID).Scan(&doc.ID, &doc.Title, &doc.URL, &doc.SourceID, &doc.Project, &tags, &updatedAt)
	if err == sql.ErrNoRows {
		return Document{}, retrieverrors.DocumentNotFound(docID)
	}
	if err != nil {
		return Document{}, fmt.Errorf("document lookup failed: %w", err)
	}

	doc.Tags = splitTags(tags)
	doc.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return doc, nil
}

// GetAllChunks implements Store.
func (s *SQLiteStore) GetAllChunks(ctx context.Context) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("metadata store is closed")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, document_id, content FROM chunks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("chunk scan failed: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Content); err != nil {
			return nil, fmt.Errorf("failed to scan chunk row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close implements Store. Idempotent.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

func joinPlaceholders(ps []string) string {
	out := ps[0]
	for _, p := range ps[1:] {
		out += "," + p
	}
	return out
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == ',' {
			out = append(out, raw[start:i])
			start = i + 1
		}
	}
	return out
}
