package vectorindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() ([]string, [][]float32) {
	return []string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0},
			{0, 1, 0},
			{0.9, 0.1, 0},
		}
}

func TestBuild_NormalizesRows(t *testing.T) {
	ids, rows := sampleRows()
	idx, err := Build("static", 3, ids, rows)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestBuild_EmptyInputYieldsReadyEmptyIndex(t *testing.T) {
	idx, err := Build("static", 3, nil, nil)
	require.NoError(t, err)

	assert.True(t, idx.IsReady())
	assert.Equal(t, 0, idx.ChunkCount())

	results, err := idx.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuild_RejectsRowDimensionMismatch(t *testing.T) {
	_, err := Build("static", 3, []string{"a"}, [][]float32{{1, 0}})
	assert.Error(t, err)
}

func TestBuild_RejectsChunkIDRowCountMismatch(t *testing.T) {
	_, err := Build("static", 3, []string{"a", "b"}, [][]float32{{1, 0, 0}})
	assert.Error(t, err)
}

func TestSearch_RanksByInnerProductDescending(t *testing.T) {
	ids, rows := sampleRows()
	idx, err := Build("static", 3, ids, rows)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "a", results[0].ChunkID)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_TiesBreakByAscendingOrdinal(t *testing.T) {
	idx, err := Build("static", 2, []string{"first", "second"}, [][]float32{{1, 0}, {1, 0}})
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "first", results[0].ChunkID)
	assert.Equal(t, "second", results[1].ChunkID)
}

func TestSearch_RespectsTopK(t *testing.T) {
	ids, rows := sampleRows()
	idx, err := Build("static", 3, ids, rows)
	require.NoError(t, err)

	results, err := idx.Search([]float32{1, 0, 0}, 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSearch_RejectsQueryDimensionMismatch(t *testing.T) {
	ids, rows := sampleRows()
	idx, err := Build("static", 3, ids, rows)
	require.NoError(t, err)

	_, err = idx.Search([]float32{1, 0}, 10)
	assert.Error(t, err)
}

func TestSaveLoad_RoundTripsSearchResults(t *testing.T) {
	ids, rows := sampleRows()
	idx, err := Build("static", 3, ids, rows)
	require.NoError(t, err)

	dir := t.TempDir()
	matrixPath := filepath.Join(dir, "vectors.faiss")
	sidecarPath := filepath.Join(dir, "chunk_id_map.json")
	require.NoError(t, idx.Save(matrixPath, sidecarPath))

	loaded, err := Load(matrixPath, sidecarPath, 3)
	require.NoError(t, err)
	assert.Equal(t, idx.ChunkCount(), loaded.ChunkCount())
	assert.Equal(t, "static", loaded.ModelName())

	want, err := idx.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	got, err := loaded.Search([]float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoad_RejectsDimensionIncompatibleWithCurrentModel(t *testing.T) {
	ids, rows := sampleRows()
	idx, err := Build("static", 3, ids, rows)
	require.NoError(t, err)

	dir := t.TempDir()
	matrixPath := filepath.Join(dir, "vectors.faiss")
	sidecarPath := filepath.Join(dir, "chunk_id_map.json")
	require.NoError(t, idx.Save(matrixPath, sidecarPath))

	_, err = Load(matrixPath, sidecarPath, 768)
	assert.Error(t, err)
}

func TestLoad_RejectsMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(filepath.Join(dir, "vectors.faiss"), filepath.Join(dir, "chunk_id_map.json"), 3)
	assert.Error(t, err)
}
