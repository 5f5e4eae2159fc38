// Package indexmgr builds, persists, and activates versioned BM25 and
// dense index pairs under a single index directory, and loads whichever
// version is currently marked active.
//
// Each build writes a new version directory named v<timestamp>. Once both
// indexes in a version are written successfully, the version is activated
// by atomically rewriting a pointer file naming it current — the same
// all-or-nothing guarantee a symlink swap gives, without requiring
// symlink support from the deployment filesystem.
package indexmgr

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/runbookhq/retriever/internal/bm25"
	retrieverrors "github.com/runbookhq/retriever/internal/errors"
	"github.com/runbookhq/retriever/internal/metadata"
	"github.com/runbookhq/retriever/internal/vectorindex"
)

const (
	bm25Filename       = "bm25_index.json"
	vectorMatrixFile   = "vectors.bin"
	vectorSidecarFile  = "vectors_sidecar.json"
	currentPointerFile = "current"
	versionTimeLayout  = "v20060102_150405"
	indexesZipFilename = "indexes.zip"
)

// EmbedFunc embeds a batch of chunk contents into dense vectors, in the
// same order as the input. Index builds pass the full chunk corpus
// through it in one call; callers that need batching do so internally.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// Status is a point-in-time readiness snapshot, surfaced by
// retrieverctl status through Retriever.Status.
type Status struct {
	BM25Ready      bool
	BM25Chunks     int
	VectorReady    bool
	VectorChunks   int
	CurrentVersion string
}

// Manager owns the active BM25 and dense indexes and the on-disk version
// directories backing them.
type Manager struct {
	indexDir   string
	indexesURL string
	embedModel string
	embedDim   int
	bm25K1     float64
	bm25B      float64

	store metadata.Store

	mu      sync.RWMutex
	bm25    *bm25.Index
	vector  *vectorindex.Index
	version string
}

// New creates a Manager rooted at indexDir. indexesURL, when non-empty,
// is used by EnsureIndexesPresent to fetch a prebuilt archive when no
// version is present locally yet.
func New(indexDir, indexesURL, embedModel string, embedDim int, bm25K1, bm25B float64, store metadata.Store) *Manager {
	return &Manager{
		indexDir:   indexDir,
		indexesURL: indexesURL,
		embedModel: embedModel,
		embedDim:   embedDim,
		bm25K1:     bm25K1,
		bm25B:      bm25B,
		store:      store,
	}
}

// BuildIndexes builds a fresh BM25 index, and — when embed is non-nil —
// a fresh dense index, from every chunk currently in the metadata store,
// and writes both into a new version directory. The new version is
// activated unconditionally when the corpus is non-empty. When the
// corpus is empty, the version directory is still written (holding
// ready-but-empty indexes) but is only activated if forceActivate is
// true; otherwise it is left on disk inactive and whatever version was
// previously current (if any) remains current. It returns the new
// version's name either way.
//
// A build lock serializes concurrent builds against the same index
// directory; a second build invoked while one is in flight blocks until
// the first completes rather than racing it.
func (m *Manager) BuildIndexes(ctx context.Context, embed EmbedFunc, forceActivate bool) (string, error) {
	lock := newBuildLock(m.indexDir)
	if err := lock.Lock(); err != nil {
		return "", err
	}
	defer lock.Unlock()

	chunks, err := m.store.GetAllChunks(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read chunks for build: %w", err)
	}

	version := m.nextVersion()
	versionDir := filepath.Join(m.indexDir, version)
	if err := os.MkdirAll(versionDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create version directory: %w", err)
	}

	bm25Chunks := make([]bm25.Chunk, len(chunks))
	contents := make([]string, len(chunks))
	chunkIDs := make([]string, len(chunks))
	for i, c := range chunks {
		bm25Chunks[i] = bm25.Chunk{ChunkID: c.ID, Content: c.Content}
		contents[i] = c.Content
		chunkIDs[i] = c.ID
	}

	bm25Idx := bm25.New(m.bm25K1, m.bm25B)
	bm25Idx.Build(bm25Chunks)
	if err := bm25Idx.Save(filepath.Join(versionDir, bm25Filename)); err != nil {
		return "", fmt.Errorf("failed to save bm25 index: %w", err)
	}

	var vecIdx *vectorindex.Index
	if embed != nil {
		rows, err := embed(ctx, contents)
		if err != nil {
			return "", fmt.Errorf("failed to embed chunks: %w", err)
		}
		vecIdx, err = vectorindex.Build(m.embedModel, m.embedDim, chunkIDs, rows)
		if err != nil {
			return "", fmt.Errorf("failed to build vector index: %w", err)
		}
		if err := vecIdx.Save(
			filepath.Join(versionDir, vectorMatrixFile),
			filepath.Join(versionDir, vectorSidecarFile),
		); err != nil {
			return "", fmt.Errorf("failed to save vector index: %w", err)
		}
	}

	if len(chunks) == 0 && !forceActivate {
		slog.Default().Warn("build_empty_not_activated",
			slog.String("version", version),
			slog.String("detail", retrieverrors.BuildEmpty("no chunks available; version created but not activated").Error()),
		)
		return version, nil
	}

	if err := m.activateVersion(version); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.bm25 = bm25Idx
	if vecIdx != nil {
		m.vector = vecIdx
	}
	m.version = version
	m.mu.Unlock()

	return version, nil
}

// LoadIndexes loads the BM25 and (if present) dense index from whichever
// version the current pointer names. It returns false, with no error, if
// no version has ever been activated.
func (m *Manager) LoadIndexes() (bool, error) {
	version, ok := m.currentVersion()
	if !ok {
		return false, nil
	}
	versionDir := filepath.Join(m.indexDir, version)

	bm25Path := filepath.Join(versionDir, bm25Filename)
	var bm25Idx *bm25.Index
	if _, err := os.Stat(bm25Path); err == nil {
		bm25Idx, err = bm25.Load(bm25Path)
		if err != nil {
			return false, fmt.Errorf("failed to load bm25 index: %w", err)
		}
	}

	matrixPath := filepath.Join(versionDir, vectorMatrixFile)
	sidecarPath := filepath.Join(versionDir, vectorSidecarFile)
	var vecIdx *vectorindex.Index
	if _, err := os.Stat(matrixPath); err == nil {
		vecIdx, err = vectorindex.Load(matrixPath, sidecarPath, m.embedDim)
		if err != nil {
			return false, fmt.Errorf("failed to load vector index: %w", err)
		}
	}

	m.mu.Lock()
	m.bm25 = bm25Idx
	m.vector = vecIdx
	m.version = version
	m.mu.Unlock()

	return true, nil
}

// EnsureIndexesPresent reports whether the active version already has a
// BM25 index file on disk; it does not load or validate the indexes. If
// none does and an indexes URL was configured,
// it downloads the archive at that URL and extracts it into the index
// directory before checking again.
func (m *Manager) EnsureIndexesPresent(ctx context.Context) (bool, error) {
	if m.versionReady() {
		return true, nil
	}

	if m.indexesURL == "" {
		return false, nil
	}

	if err := os.MkdirAll(m.indexDir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create index directory: %w", err)
	}
	zipPath := filepath.Join(m.indexDir, indexesZipFilename)

	if err := downloadFile(ctx, m.indexesURL, zipPath); err != nil {
		return false, fmt.Errorf("failed to download index archive: %w", err)
	}
	defer os.Remove(zipPath)

	if err := extractZip(zipPath, m.indexDir); err != nil {
		return false, fmt.Errorf("failed to extract index archive: %w", err)
	}

	return m.versionReady(), nil
}

// GetStatus reports the readiness of the currently loaded indexes.
func (m *Manager) GetStatus() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := Status{CurrentVersion: m.version}
	if m.bm25 != nil {
		st.BM25Ready = m.bm25.IsReady()
		st.BM25Chunks = m.bm25.ChunkCount()
	}
	if m.vector != nil {
		st.VectorReady = m.vector.IsReady()
		st.VectorChunks = m.vector.ChunkCount()
	}
	return st
}

// BM25 returns the currently loaded BM25 index, or nil if none is active.
func (m *Manager) BM25() *bm25.Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bm25
}

// Vector returns the currently loaded dense index, or nil if none is
// active or the active version has no dense index.
func (m *Manager) Vector() *vectorindex.Index {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vector
}

// versionReady reports whether the currently pointed-to version has at
// least a BM25 index file on disk.
func (m *Manager) versionReady() bool {
	version, ok := m.currentVersion()
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(m.indexDir, version, bm25Filename))
	return err == nil
}

// activateVersion atomically repoints current at version by writing the
// pointer to a temp file and renaming it into place — rename is atomic
// on the same filesystem, giving the same all-or-nothing visibility a
// symlink swap gives without requiring symlink support.
func (m *Manager) activateVersion(version string) error {
	pointerPath := filepath.Join(m.indexDir, currentPointerFile)
	tmpPath := pointerPath + ".tmp"

	if err := os.WriteFile(tmpPath, []byte(version), 0o644); err != nil {
		return fmt.Errorf("failed to write pointer file: %w", err)
	}
	if err := os.Rename(tmpPath, pointerPath); err != nil {
		return fmt.Errorf("failed to activate version %s: %w", version, err)
	}
	return nil
}

// nextVersion names a new version directory from the current timestamp,
// disambiguating with a numeric suffix on the rare occasion two builds
// land in the same directory within the same second.
func (m *Manager) nextVersion() string {
	base := time.Now().UTC().Format(versionTimeLayout)
	version := base
	for n := 2; ; n++ {
		if _, err := os.Stat(filepath.Join(m.indexDir, version)); os.IsNotExist(err) {
			return version
		}
		version = fmt.Sprintf("%s_%d", base, n)
	}
}

// currentVersion reads the active version name from the pointer file.
func (m *Manager) currentVersion() (string, bool) {
	raw, err := os.ReadFile(filepath.Join(m.indexDir, currentPointerFile))
	if err != nil {
		return "", false
	}
	version := strings.TrimSpace(string(raw))
	if version == "" {
		return "", false
	}
	return version, true
}

// downloadFile streams url to dest, failing on any non-2xx response.
func downloadFile(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

// extractZip extracts every file in the archive at zipPath into destDir,
// rejecting entries that would escape destDir via a path traversal.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("archive entry %q escapes destination directory", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}

		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, rc)
	return err
}
