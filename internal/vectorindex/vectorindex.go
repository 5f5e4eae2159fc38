// Package vectorindex implements a flat, exact inner-product search over
// a matrix of unit-norm float32 vectors. At the target corpus scale flat
// search is cache-friendly and keeps result ordering free of ANN-recall
// variability.
package vectorindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	retrieverrors "github.com/runbookhq/retriever/internal/errors"
)

// Result is a single scored hit returned by Search.
type Result struct {
	ChunkID string
	Score   float64
}

// sidecar is the exact on-disk JSON metadata accompanying the matrix file.
type sidecar struct {
	ChunkIDs  []string `json:"chunk_ids"`
	Dim       int      `json:"embedding_dim"`
	ModelName string   `json:"model_name"`
}

// Index is a flat inner-product vector index. The zero value is not
// ready; use Build or Load to populate it.
type Index struct {
	chunkIDs  []string
	modelName string
	dim       int
	vectors   [][]float32 // row i aligns with chunkIDs[i], already unit-norm
}

// New returns an empty, not-yet-built index for the given model and
// output dimension.
func New(modelName string, dim int) *Index {
	return &Index{modelName: modelName, dim: dim}
}

// Build L2-normalizes each provided vector and inserts it in input order.
// Building from zero rows yields a ready-but-empty index. Every row must
// match the index's configured dimension.
func Build(modelName string, dim int, chunkIDs []string, rows [][]float32) (*Index, error) {
	if len(chunkIDs) != len(rows) {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("chunk id count %d disagrees with row count %d", len(chunkIDs), len(rows)), nil)
	}

	idx := &Index{
		modelName: modelName,
		dim:       dim,
		chunkIDs:  append([]string(nil), chunkIDs...),
		vectors:   make([][]float32, len(rows)),
	}

	for i, row := range rows {
		if len(row) != dim {
			return nil, retrieverrors.DimensionMismatch(fmt.Sprintf("row %d has dimension %d, expected %d", i, len(row), dim))
		}
		vec := make([]float32, dim)
		copy(vec, row)
		normalize(vec)
		idx.vectors[i] = vec
	}

	return idx, nil
}

// normalize scales v to unit length in place. A zero vector is left as-is.
func normalize(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// Search embeds nothing itself — callers pass an already-embedded,
// normalized query vector. It returns the top-K chunks by descending
// inner product, ties broken by ascending ordinal.
func (idx *Index) Search(query []float32, topK int) ([]Result, error) {
	if !idx.IsReady() {
		return []Result{}, nil
	}
	if len(query) != idx.dim {
		return nil, retrieverrors.DimensionMismatch(fmt.Sprintf("query dimension %d, expected %d", len(query), idx.dim))
	}

	q := make([]float32, len(query))
	copy(q, query)
	normalize(q)

	type scored struct {
		ordinal int
		score   float64
	}
	scores := make([]scored, len(idx.vectors))
	for i, row := range idx.vectors {
		scores[i] = scored{ordinal: i, score: innerProduct(q, row)}
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].ordinal < scores[j].ordinal
	})

	if topK > 0 && len(scores) > topK {
		scores = scores[:topK]
	}

	results := make([]Result, len(scores))
	for i, s := range scores {
		results[i] = Result{ChunkID: idx.chunkIDs[s.ordinal], Score: s.score}
	}
	return results, nil
}

func innerProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Save writes the matrix as a flat row-major binary file at matrixPath
// and the sidecar metadata as JSON at sidecarPath, via temp-file-then-
// rename so a reader never observes a partially-written file.
func (idx *Index) Save(matrixPath, sidecarPath string) error {
	if err := os.MkdirAll(filepath.Dir(matrixPath), 0o755); err != nil {
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to create directory for %s", matrixPath), err)
	}
	if err := os.MkdirAll(filepath.Dir(sidecarPath), 0o755); err != nil {
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to create directory for %s", sidecarPath), err)
	}

	if err := writeMatrix(matrixPath, idx.vectors); err != nil {
		return err
	}

	side := sidecar{
		ChunkIDs:  idx.chunkIDs,
		Dim:       idx.dim,
		ModelName: idx.modelName,
	}
	if side.ChunkIDs == nil {
		side.ChunkIDs = []string{}
	}
	raw, err := json.Marshal(side)
	if err != nil {
		return retrieverrors.IndexCorrupt("failed to marshal vector index sidecar", err)
	}
	return writeAtomic(sidecarPath, raw)
}

func writeMatrix(path string, vectors [][]float32) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to create %s", tmp), err)
	}

	for _, row := range vectors {
		if err := binary.Write(f, binary.LittleEndian, row); err != nil {
			f.Close()
			os.Remove(tmp)
			return retrieverrors.IndexCorrupt("failed to write vector matrix", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to close %s", tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to rename %s", tmp), err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to write %s", tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to rename %s", tmp), err)
	}
	return nil
}

// Load reads the matrix and sidecar back into an Index. It rejects a
// sidecar whose embedding_dim disagrees with expectedDim (an incompatible
// index for the currently configured embedding model), and rejects a
// matrix file whose byte length doesn't divide evenly into embedding_dim
// float32 rows.
func Load(matrixPath, sidecarPath string, expectedDim int) (*Index, error) {
	rawSidecar, err := os.ReadFile(sidecarPath)
	if err != nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("failed to read %s", sidecarPath), err)
	}

	var side sidecar
	if err := json.Unmarshal(rawSidecar, &side); err != nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("failed to parse %s", sidecarPath), err)
	}
	if side.ChunkIDs == nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: missing chunk_ids", sidecarPath), nil)
	}
	if side.Dim == 0 {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: missing or zero embedding_dim", sidecarPath), nil)
	}
	if expectedDim != 0 && side.Dim != expectedDim {
		return nil, retrieverrors.DimensionMismatch(fmt.Sprintf("%s: index dimension %d incompatible with current model dimension %d", sidecarPath, side.Dim, expectedDim))
	}

	rawMatrix, err := os.ReadFile(matrixPath)
	if err != nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("failed to read %s", matrixPath), err)
	}

	const floatSize = 4
	rowBytes := side.Dim * floatSize
	if rowBytes == 0 || len(rawMatrix)%rowBytes != 0 {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: byte length %d does not divide evenly into %d-wide rows", matrixPath, len(rawMatrix), side.Dim), nil)
	}
	rowCount := len(rawMatrix) / rowBytes
	if rowCount != len(side.ChunkIDs) {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: row count %d disagrees with chunk_ids length %d", matrixPath, rowCount, len(side.ChunkIDs)), nil)
	}

	vectors := make([][]float32, rowCount)
	offset := 0
	for i := 0; i < rowCount; i++ {
		row := make([]float32, side.Dim)
		if err := binary.Read(bytes.NewReader(rawMatrix[offset:offset+rowBytes]), binary.LittleEndian, row); err != nil {
			return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: failed to decode row %d", matrixPath, i), err)
		}
		vectors[i] = row
		offset += rowBytes
	}

	return &Index{
		chunkIDs:  side.ChunkIDs,
		modelName: side.ModelName,
		dim:       side.Dim,
		vectors:   vectors,
	}, nil
}

// IsReady reports whether the index has been built or loaded.
func (idx *Index) IsReady() bool {
	return idx.vectors != nil
}

// ChunkCount returns the number of indexed chunks.
func (idx *Index) ChunkCount() int {
	return len(idx.chunkIDs)
}

// Dim returns the configured embedding dimension.
func (idx *Index) Dim() int {
	return idx.dim
}

// ModelName returns the embedding model name the vectors were built with.
func (idx *Index) ModelName() string {
	return idx.modelName
}
