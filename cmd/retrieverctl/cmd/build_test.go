package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runbookhq/retriever/internal/metadata"
)

func seedMetadataDB(t *testing.T, path string) {
	t.Helper()
	store, err := metadata.OpenSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.UpsertDocument(t.Context(), metadata.Document{
		ID: "d1", Title: "Runbook", URL: "https://x/d1", SourceID: "docs",
	}))
	require.NoError(t, store.UpsertChunk(t.Context(), metadata.Chunk{
		ID: "c1", DocumentID: "d1", Content: "connection pool exhausted retry backoff",
	}))
	require.NoError(t, store.Close())
}

func withIsolatedDataDirs(t *testing.T) (indexDir, metadataPath string) {
	t.Helper()
	dir := t.TempDir()
	indexDir = filepath.Join(dir, "indexes")
	metadataPath = filepath.Join(dir, "metadata.db")
	t.Setenv("RKB_INDEX_DIR", indexDir)
	t.Setenv("RKB_METADATA_PATH", metadataPath)
	t.Setenv("RKB_EMBEDDING_MODEL", "none")
	return indexDir, metadataPath
}

func TestBuildCmd_BuildsAndActivatesAVersion(t *testing.T) {
	_, metadataPath := withIsolatedDataDirs(t)
	seedMetadataDB(t, metadataPath)

	cmd := newBuildCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetContext(t.Context())

	err := cmd.RunE(cmd, nil)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Built and activated index version")
}

func TestBuildCmd_EmptyMetadataStoreBuildsButDoesNotActivate(t *testing.T) {
	withIsolatedDataDirs(t)

	cmd := newBuildCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetContext(t.Context())

	err := cmd.RunE(cmd, nil)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "not activated")
}

func TestBuildCmd_EmptyMetadataStoreWithForceActivates(t *testing.T) {
	withIsolatedDataDirs(t)

	cmd := newBuildCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetContext(t.Context())
	require.NoError(t, cmd.Flags().Set("force", "true"))

	err := cmd.RunE(cmd, nil)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Built and activated index version")
}
