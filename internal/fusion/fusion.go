// Package fusion combines ranked BM25 and dense-vector result lists with
// Reciprocal Rank Fusion, degrading gracefully to a single side when the
// other is unavailable.
package fusion

import "sort"

// Ranked is a single result from one retrieval leg, with its 1-based rank
// and raw score on that leg.
type Ranked struct {
	ChunkID string
	Score   float64
	Rank    int
}

// Config holds the fusion constants. Defaults are kR=60, weights 0.5/0.5.
type Config struct {
	KR         int
	BM25Weight float64
	VecWeight  float64
}

// DefaultConfig returns the standard RRF tuning constants.
func DefaultConfig() Config {
	return Config{KR: 60, BM25Weight: 0.5, VecWeight: 0.5}
}

// Result is a single fused hit. BM25Rank/VecRank and BM25Score/VecScore
// are zero-valued and BM25Present/VecPresent is false on the side that
// didn't produce this chunk. FinalScore is the RRF score in hybrid mode, or the raw
// single-side score when degraded.
type Result struct {
	ChunkID    string
	FinalScore float64

	BM25Rank    int
	BM25Score   float64
	BM25Present bool

	VecRank    int
	VecScore   float64
	VecPresent bool

	// Degraded is true when only one retrieval leg was available and
	// FinalScore is that leg's raw score rather than an RRF score.
	Degraded bool
}

// Fuse merges two ranked lists with Reciprocal Rank Fusion. Final
// ordering is descending rrf score; ties break by (1) presence in both
// lists before one, (2) smaller min(rank_b, rank_v), (3) ascending
// chunk id.
func Fuse(bm25, vec []Ranked, cfg Config) []Result {
	type acc struct {
		r       Result
		minRank int
		hasMin  bool
		inBoth  bool
	}
	byID := make(map[string]*acc)
	order := make([]string, 0, len(bm25)+len(vec))

	get := func(id string) *acc {
		a, ok := byID[id]
		if !ok {
			a = &acc{r: Result{ChunkID: id}}
			byID[id] = a
			order = append(order, id)
		}
		return a
	}

	for _, b := range bm25 {
		a := get(b.ChunkID)
		a.r.BM25Present = true
		a.r.BM25Rank = b.Rank
		a.r.BM25Score = b.Score
		a.r.FinalScore += cfg.BM25Weight / float64(cfg.KR+b.Rank)
		a.minRank, a.hasMin = b.Rank, true
	}
	for _, v := range vec {
		a := get(v.ChunkID)
		if a.r.BM25Present {
			a.inBoth = true
		}
		a.r.VecPresent = true
		a.r.VecRank = v.Rank
		a.r.VecScore = v.Score
		a.r.FinalScore += cfg.VecWeight / float64(cfg.KR+v.Rank)
		if !a.hasMin || v.Rank < a.minRank {
			a.minRank, a.hasMin = v.Rank, true
		}
	}

	results := make([]Result, 0, len(order))
	for _, id := range order {
		results = append(results, byID[id].r)
	}

	sort.Slice(results, func(i, j int) bool {
		ai, aj := byID[results[i].ChunkID], byID[results[j].ChunkID]
		if ai.r.FinalScore != aj.r.FinalScore {
			return ai.r.FinalScore > aj.r.FinalScore
		}
		if ai.inBoth != aj.inBoth {
			return ai.inBoth
		}
		if ai.minRank != aj.minRank {
			return ai.minRank < aj.minRank
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	return results
}

// FuseBM25Only builds a degraded result set from a single BM25 leg, used
// when dense retrieval is unavailable. FinalScore is the raw BM25 score,
// not an RRF score.
func FuseBM25Only(bm25 []Ranked) []Result {
	results := make([]Result, len(bm25))
	for i, b := range bm25 {
		results[i] = Result{
			ChunkID:     b.ChunkID,
			FinalScore:  b.Score,
			BM25Present: true,
			BM25Rank:    b.Rank,
			BM25Score:   b.Score,
			Degraded:    true,
		}
	}
	return results
}

// FuseVectorOnly builds a degraded result set from a single dense leg,
// used when BM25 retrieval is unavailable. FinalScore is the raw dense
// score, not an RRF score.
func FuseVectorOnly(vec []Ranked) []Result {
	results := make([]Result, len(vec))
	for i, v := range vec {
		results[i] = Result{
			ChunkID:    v.ChunkID,
			FinalScore: v.Score,
			VecPresent: true,
			VecRank:    v.Rank,
			VecScore:   v.Score,
			Degraded:   true,
		}
	}
	return results
}

// Truncate returns at most topK results.
func Truncate(results []Result, topK int) []Result {
	if topK <= 0 || len(results) <= topK {
		return results
	}
	return results[:topK]
}
