// Package cache implements a TTL + LRU query-result cache, keyed by a
// SHA-256 hash of the canonicalized query/filters/top_k tuple.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Size    int
	MaxSize int
	Hits    int64
	Misses  int64
	// HitRate is Hits / (Hits + Misses), or 0 if nothing has been
	// requested yet.
	HitRate float64
}

// Cache is a thread-safe TTL + LRU cache over an arbitrary result
// payload, keyed by query text, a filter set, and a result-count bound.
// All mutating operations are serialized by a single lock, held only for
// pointer manipulation and never across the value's I/O.
type Cache[T any] struct {
	mu      sync.Mutex
	lru     *lru.LRU[string, T]
	maxSize int
	hits    int64
	misses  int64
}

// New creates a Cache holding at most maxSize entries, each valid for
// ttl before being treated as a miss and evicted lazily on access.
func New[T any](maxSize int, ttl time.Duration) *Cache[T] {
	return &Cache[T]{
		lru:     lru.NewLRU[string, T](maxSize, nil, ttl),
		maxSize: maxSize,
	}
}

// Key builds the cache key for a query/filters/top_k tuple: the query is
// lowercased and trimmed, filters are canonicalized (sorted keys, sorted
// list values), and top_k is included. The key is the first 32 hex
// characters of the SHA-256 digest of the tuple's canonical JSON form.
func Key(query string, filters map[string]any, topK int) string {
	canon := canonicalTuple{
		Query:   strings.TrimSpace(strings.ToLower(query)),
		Filters: canonicalizeFilters(filters),
		TopK:    topK,
	}
	// json.Marshal sorts map keys by default, giving a canonical encoding.
	raw, _ := json.Marshal(canon)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])[:32]
}

type canonicalTuple struct {
	Query   string         `json:"query"`
	Filters map[string]any `json:"filters"`
	TopK    int            `json:"top_k"`
}

// canonicalizeFilters sorts any []string-valued filter entries so that
// the same filter set in a different order yields the same key.
func canonicalizeFilters(filters map[string]any) map[string]any {
	if filters == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(filters))
	for k, v := range filters {
		if list, ok := v.([]string); ok {
			sorted := append([]string(nil), list...)
			sort.Strings(sorted)
			out[k] = sorted
			continue
		}
		out[k] = v
	}
	return out
}

// Get returns the cached value for key and true on a hit; an expired or
// absent entry reports false and counts as a miss.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, ok := c.lru.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return val, ok
}

// Set inserts or replaces the value for key, evicting the least-recently
// used entry if the cache is at capacity.
func (c *Cache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(key, value)
}

// Invalidate clears every cached entry and resets the hit/miss counters.
func (c *Cache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.hits = 0
	c.misses = 0
}

// Stats returns a snapshot of the cache's current size and hit/miss
// counters.
func (c *Cache[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}

	return Stats{
		Size:    c.lru.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: hitRate,
	}
}
