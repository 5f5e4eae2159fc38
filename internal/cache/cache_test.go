package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSet_RoundTripsValue(t *testing.T) {
	c := New[string](10, time.Minute)
	key := Key("timeout errors", nil, 10)

	_, ok := c.Get(key)
	assert.False(t, ok)

	c.Set(key, "cached-response")
	val, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "cached-response", val)
}

func TestKey_NormalizesQueryCaseAndWhitespace(t *testing.T) {
	a := Key("  Timeout Error  ", nil, 10)
	b := Key("timeout error", nil, 10)
	assert.Equal(t, a, b)
}

func TestKey_CanonicalizesFilterListOrder(t *testing.T) {
	a := Key("q", map[string]any{"source_types": []string{"docs", "issues"}}, 10)
	b := Key("q", map[string]any{"source_types": []string{"issues", "docs"}}, 10)
	assert.Equal(t, a, b)
}

func TestKey_DiffersByTopK(t *testing.T) {
	a := Key("q", nil, 10)
	b := Key("q", nil, 20)
	assert.NotEqual(t, a, b)
}

func TestKey_DiffersByFilterValue(t *testing.T) {
	a := Key("q", map[string]any{"project": "alpha"}, 10)
	b := Key("q", map[string]any{"project": "beta"}, 10)
	assert.NotEqual(t, a, b)
}

func TestKey_Is32HexChars(t *testing.T) {
	k := Key("q", nil, 10)
	assert.Len(t, k, 32)
}

func TestStats_TracksHitsMissesAndHitRate(t *testing.T) {
	c := New[string](10, time.Minute)
	key := Key("q", nil, 10)

	_, _ = c.Get(key) // miss
	c.Set(key, "v")
	_, _ = c.Get(key) // hit
	_, _ = c.Get(key) // hit

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Hits)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-9)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, 10, stats.MaxSize)
}

func TestSet_EvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := New[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3") // evicts "a", the LRU entry

	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)
}

func TestGet_MovesHitToMostRecentlyUsed(t *testing.T) {
	c := New[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // touch "a", making "b" the LRU entry
	c.Set("c", "3")

	_, ok := c.Get("b")
	assert.False(t, ok)
	_, ok = c.Get("a")
	assert.True(t, ok)
}

func TestGet_ExpiredEntryIsTreatedAsMiss(t *testing.T) {
	c := New[string](10, 10*time.Millisecond)
	c.Set("a", "1")

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestInvalidate_ClearsEntriesAndResetsCounters(t *testing.T) {
	c := New[string](10, time.Minute)
	c.Set("a", "1")
	c.Get("a")
	c.Get("missing")

	c.Invalidate()

	_, ok := c.Get("a")
	assert.False(t, ok)
	stats := c.Stats()
	assert.Equal(t, 0, stats.Size)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(0), stats.Hits)
}
