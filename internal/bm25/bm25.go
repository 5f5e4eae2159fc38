// Package bm25 implements an Okapi BM25 inverted-index scorer over
// pre-tokenized documents, with a frozen on-disk representation that
// round-trips exactly through Build/Save/Load.
package bm25

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	retrieverrors "github.com/runbookhq/retriever/internal/errors"
	"github.com/runbookhq/retriever/internal/tokenizer"
)

// Chunk is a single document offered to Build, identified by ChunkID.
type Chunk struct {
	ChunkID string
	Content string
}

// Result is a single scored hit returned by Search.
type Result struct {
	ChunkID string
	Score   float64
}

// diskFormat is the exact on-disk JSON schema: k1, b, chunk_ids, and the
// tokenized corpus. Everything else (postings, document lengths, idf) is
// recomputed from this on Load.
type diskFormat struct {
	K1       float64    `json:"k1"`
	B        float64    `json:"b"`
	ChunkIDs []string   `json:"chunk_ids"`
	Corpus   [][]string `json:"corpus"`
}

// Index is a BM25 inverted index. The zero value is not ready; use Build
// or Load to populate it.
type Index struct {
	k1 float64
	b  float64

	chunkIDs []string
	corpus   [][]string

	postings map[string][]posting // term -> postings, ordinal-ascending
	docLen   []int
	avgdl    float64
	n        int
}

type posting struct {
	ordinal int
	tf      int
}

// DefaultK1 and DefaultB are the standard Okapi BM25 tuning constants.
const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// New returns an empty, not-yet-built index using the given k1/b.
func New(k1, b float64) *Index {
	return &Index{k1: k1, b: b}
}

// Build tokenizes each chunk and constructs the inverted index. Ordinals
// are assigned in input order. Building from an empty slice yields a
// ready-but-empty index whose searches return no results.
func (idx *Index) Build(chunks []Chunk) {
	idx.chunkIDs = make([]string, 0, len(chunks))
	idx.corpus = make([][]string, 0, len(chunks))
	idx.docLen = make([]int, 0, len(chunks))
	idx.postings = make(map[string][]posting)

	for _, c := range chunks {
		tokens := tokenizer.Tokenize(c.Content)
		idx.chunkIDs = append(idx.chunkIDs, c.ChunkID)
		idx.corpus = append(idx.corpus, tokens)
		idx.docLen = append(idx.docLen, len(tokens))
	}

	idx.n = len(idx.chunkIDs)
	idx.indexCorpus()
}

// indexCorpus derives postings and avgdl from idx.corpus/idx.chunkIDs. It
// is shared by Build and Load so the frozen structure is always rebuilt
// the same way from the same tokenized corpus.
func (idx *Index) indexCorpus() {
	idx.postings = make(map[string][]posting)
	idx.docLen = make([]int, len(idx.corpus))

	var totalLen int
	for ordinal, tokens := range idx.corpus {
		idx.docLen[ordinal] = len(tokens)
		totalLen += len(tokens)

		counts := make(map[string]int, len(tokens))
		for _, t := range tokens {
			counts[t]++
		}
		for term, tf := range counts {
			idx.postings[term] = append(idx.postings[term], posting{ordinal: ordinal, tf: tf})
		}
	}

	idx.n = len(idx.corpus)
	if idx.n > 0 {
		idx.avgdl = float64(totalLen) / float64(idx.n)
	} else {
		idx.avgdl = 0
	}
}

// idf computes the Okapi BM25 inverse-document-frequency term for a
// vocabulary entry with the given document frequency.
func (idx *Index) idf(df int) float64 {
	return math.Log((float64(idx.n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
}

// Search scores every chunk against the query's in-vocabulary tokens and
// returns at most topK results, ranked by descending score with ties
// broken by ascending ordinal (stable insertion order). Documents scoring
// at or below zero are discarded. A query with no in-vocabulary tokens
// returns an empty slice.
func (idx *Index) Search(query string, topK int) []Result {
	if !idx.IsReady() {
		return []Result{}
	}

	queryTokens := tokenizer.Tokenize(query)
	if len(queryTokens) == 0 {
		return []Result{}
	}

	scores := make(map[int]float64)
	seen := make(map[string]bool)
	for _, term := range queryTokens {
		if seen[term] {
			continue
		}
		seen[term] = true

		plist, ok := idx.postings[term]
		if !ok {
			continue
		}
		idf := idx.idf(len(plist))

		for _, p := range plist {
			dl := float64(idx.docLen[p.ordinal])
			tf := float64(p.tf)
			denom := tf + idx.k1*(1-idx.b+idx.b*dl/idx.avgdl)
			scores[p.ordinal] += idf * (tf * (idx.k1 + 1)) / denom
		}
	}

	ordinals := make([]int, 0, len(scores))
	for o, s := range scores {
		if s > 0 {
			ordinals = append(ordinals, o)
		}
	}
	sort.Slice(ordinals, func(i, j int) bool {
		oi, oj := ordinals[i], ordinals[j]
		if scores[oi] != scores[oj] {
			return scores[oi] > scores[oj]
		}
		return oi < oj
	})

	if topK > 0 && len(ordinals) > topK {
		ordinals = ordinals[:topK]
	}

	results := make([]Result, 0, len(ordinals))
	for _, o := range ordinals {
		results = append(results, Result{ChunkID: idx.chunkIDs[o], Score: scores[o]})
	}
	return results
}

// Save writes the frozen index to path as JSON, creating parent
// directories as needed.
func (idx *Index) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to create directory for %s", path), err)
	}

	data := diskFormat{
		K1:       idx.k1,
		B:        idx.b,
		ChunkIDs: idx.chunkIDs,
		Corpus:   idx.corpus,
	}
	if data.ChunkIDs == nil {
		data.ChunkIDs = []string{}
	}
	if data.Corpus == nil {
		data.Corpus = [][]string{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return retrieverrors.IndexCorrupt("failed to marshal bm25 index", err)
	}

	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return retrieverrors.IndexCorrupt(fmt.Sprintf("failed to write %s", path), err)
	}
	return nil
}

// Load reads a frozen index from path and rebuilds its postings. It
// rejects files missing k1/b/chunk_ids/corpus or whose chunk_ids and
// corpus lengths disagree.
func Load(path string) (*Index, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("failed to read %s", path), err)
	}

	var data diskFormat
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("failed to parse %s", path), err)
	}

	if data.K1 == 0 {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: missing or zero k1", path), nil)
	}
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(raw, &fields)
	if _, ok := fields["b"]; !ok {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: missing b", path), nil)
	}
	if data.ChunkIDs == nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: missing chunk_ids", path), nil)
	}
	if data.Corpus == nil {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: missing corpus", path), nil)
	}
	if len(data.ChunkIDs) != len(data.Corpus) {
		return nil, retrieverrors.IndexCorrupt(fmt.Sprintf("%s: chunk_ids length %d disagrees with corpus length %d", path, len(data.ChunkIDs), len(data.Corpus)), nil)
	}

	idx := &Index{
		k1:       data.K1,
		b:        data.B,
		chunkIDs: data.ChunkIDs,
		corpus:   data.Corpus,
	}
	idx.indexCorpus()
	return idx, nil
}

// IsReady reports whether the index has been built or loaded. An index
// built from zero chunks is ready but every search returns no results.
func (idx *Index) IsReady() bool {
	return idx.corpus != nil
}

// ChunkCount returns the number of indexed chunks.
func (idx *Index) ChunkCount() int {
	return len(idx.chunkIDs)
}
