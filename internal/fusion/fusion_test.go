package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuse_CombinesScoresForChunksInBothLists(t *testing.T) {
	bm25 := []Ranked{{ChunkID: "a", Score: 5, Rank: 1}, {ChunkID: "b", Score: 3, Rank: 2}}
	vec := []Ranked{{ChunkID: "a", Score: 0.9, Rank: 1}, {ChunkID: "c", Score: 0.8, Rank: 2}}

	results := Fuse(bm25, vec, DefaultConfig())

	var a *Result
	for i := range results {
		if results[i].ChunkID == "a" {
			a = &results[i]
		}
	}
	if a == nil {
		t.Fatal("expected chunk a in fused results")
	}
	assert.True(t, a.BM25Present)
	assert.True(t, a.VecPresent)
	assert.InDelta(t, 0.5/61.0+0.5/61.0, a.FinalScore, 1e-9)
}

func TestFuse_ChunkInBothListsRanksAheadOfSingleSideTie(t *testing.T) {
	// "both" and "solo" land at the exact same rrf score by construction;
	// presence in both lists must win the tie.
	cfg := Config{KR: 60, BM25Weight: 0.5, VecWeight: 0.5}
	bm25 := []Ranked{{ChunkID: "both", Score: 1, Rank: 120}, {ChunkID: "solo", Score: 1, Rank: 30}}
	vec := []Ranked{{ChunkID: "both", Score: 1, Rank: 120}}

	results := Fuse(bm25, vec, cfg)
	require.InDelta(t, results[0].FinalScore, results[1].FinalScore, 1e-9)
	assert.Equal(t, "both", results[0].ChunkID)
}

func TestFuse_TieBreaksByMinRankWhenBothInBothLists(t *testing.T) {
	// p: 1/3 + 1/3 = 2/3, min rank 3. q: 1/2 + 1/6 = 2/3, min rank 2.
	// Equal rrf score, both present on both sides: smaller min(rank_b, rank_v) wins.
	cfg := Config{KR: 0, BM25Weight: 1, VecWeight: 1}
	bm25 := []Ranked{{ChunkID: "p", Score: 1, Rank: 3}, {ChunkID: "q", Score: 1, Rank: 2}}
	vec := []Ranked{{ChunkID: "p", Score: 1, Rank: 3}, {ChunkID: "q", Score: 1, Rank: 6}}

	results := Fuse(bm25, vec, cfg)
	require.InDelta(t, results[0].FinalScore, results[1].FinalScore, 1e-9)
	assert.Equal(t, "q", results[0].ChunkID)
	assert.Equal(t, "p", results[1].ChunkID)
}

func TestFuse_TieBreaksByAscendingChunkIDWhenRanksEqual(t *testing.T) {
	bm25 := []Ranked{{ChunkID: "zeta", Score: 1, Rank: 1}, {ChunkID: "alpha", Score: 1, Rank: 1}}

	results := Fuse(bm25, nil, DefaultConfig())
	assert.Equal(t, "alpha", results[0].ChunkID)
	assert.Equal(t, "zeta", results[1].ChunkID)
}

func TestFuse_MissingSideLeavesRankAndScoreZero(t *testing.T) {
	bm25 := []Ranked{{ChunkID: "a", Score: 5, Rank: 1}}

	results := Fuse(bm25, nil, DefaultConfig())
	got := results[0]
	assert.True(t, got.BM25Present)
	assert.False(t, got.VecPresent)
	assert.Zero(t, got.VecRank)
	assert.Zero(t, got.VecScore)
	assert.False(t, got.Degraded)
}

func TestFuseBM25Only_MarksDegradedWithRawScore(t *testing.T) {
	results := FuseBM25Only([]Ranked{{ChunkID: "a", Score: 4.2, Rank: 1}})
	got := results[0]
	assert.True(t, got.Degraded)
	assert.Equal(t, 4.2, got.FinalScore)
	assert.False(t, got.VecPresent)
}

func TestFuseVectorOnly_MarksDegradedWithRawScore(t *testing.T) {
	results := FuseVectorOnly([]Ranked{{ChunkID: "a", Score: 0.7, Rank: 1}})
	got := results[0]
	assert.True(t, got.Degraded)
	assert.Equal(t, 0.7, got.FinalScore)
	assert.False(t, got.BM25Present)
}

func TestTruncate_CapsAtTopK(t *testing.T) {
	results := []Result{{ChunkID: "a"}, {ChunkID: "b"}, {ChunkID: "c"}}
	assert.Len(t, Truncate(results, 2), 2)
	assert.Len(t, Truncate(results, 0), 3)
	assert.Len(t, Truncate(results, 10), 3)
}
