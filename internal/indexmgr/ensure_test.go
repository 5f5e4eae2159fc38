package indexmgr

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	buf := &bufferWriteCloser{}
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

type bufferWriteCloser struct {
	data []byte
}

func (b *bufferWriteCloser) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *bufferWriteCloser) Bytes() []byte { return b.data }

func TestEnsureIndexesPresent_DownloadsAndExtractsWhenURLConfigured(t *testing.T) {
	dir := t.TempDir()
	archive := buildTestZip(t, map[string]string{
		"v20260101_000000/bm25_index.json": `{"k1":1.5,"b":0.75,"chunk_ids":[],"corpus":[]}`,
		"current":                          "v20260101_000000",
	})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	m := New(dir, srv.URL, "static", 4, 1.5, 0.75, nil)
	ok, err := m.EnsureIndexesPresent(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, filepath.Join(dir, "v20260101_000000", "bm25_index.json"))
}

func TestExtractZip_RejectsPathTraversal(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "evil.zip")
	data := buildTestZip(t, map[string]string{"../../escape.txt": "nope"})
	require.NoError(t, os.WriteFile(zipPath, data, 0o644))

	err := extractZip(zipPath, filepath.Join(dir, "dest"))
	assert.Error(t, err)
}
