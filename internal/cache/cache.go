// Package cache memoizes engine evaluations keyed by transposition-stable
// position fingerprint and search depth.
package cache

import (
	"container/list"
	"strings"
	"sync"

	"github.com/rajutkarsh07/chess-analysis-service/internal/engine"
)

// Key identifies one cache entry: the piece-placement, active color, and
// castling-rights portion of a FEN, plus the search depth. Halfmove and
// fullmove counters are deliberately excluded so transpositions collapse.
type Key struct {
	PositionFingerprint string
	Depth               int
}

// FingerprintFromFEN extracts the transposition-stable key fields from a
// full FEN string: piece placement, active color, castling rights.
func FingerprintFromFEN(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) < 3 {
		return fen
	}
	return fields[0] + " " + fields[1] + " " + fields[2]
}

type entry struct {
	key   Key
	value engine.NormalizedEvaluation
}

// Cache is a bounded, deterministic LRU memoizing (position, depth) ->
// evaluation. It sits outside all engine locks; Get/Put never block on
// engine I/O.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List
	index    map[Key]*list.Element

	hits   int64
	misses int64
}

// New builds a cache with the given capacity (entries).
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		index:    make(map[Key]*list.Element),
	}
}

// Get returns the cached evaluation for (fen, depth), promoting it to
// most-recently-used on hit.
func (c *Cache) Get(fen string, depth int) (engine.NormalizedEvaluation, bool) {
	key := Key{PositionFingerprint: FingerprintFromFEN(fen), Depth: depth}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return engine.NormalizedEvaluation{}, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return el.Value.(*entry).value, true
}

// Put inserts or updates the evaluation for (fen, depth), evicting the
// least-recently-used entry if the cache is at capacity.
func (c *Cache) Put(fen string, depth int, value engine.NormalizedEvaluation) {
	key := Key{PositionFingerprint: FingerprintFromFEN(fen), Depth: depth}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		el.Value.(*entry).value = value
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&entry{key: key, value: value})
	c.index[key] = el

	if c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *Cache) evictOldest() {
	oldest := c.ll.Back()
	if oldest == nil {
		return
	}
	c.ll.Remove(oldest)
	delete(c.index, oldest.Value.(*entry).key)
}

// Stats exposes hit/miss counters for observability.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Hits: c.hits, Misses: c.misses, Entries: c.ll.Len()}
}

// Len returns the current number of entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
