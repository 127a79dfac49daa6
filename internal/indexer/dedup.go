package indexer

import (
	"container/list"
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"PerpScan/internal/observability"
	"PerpScan/internal/store"
)

// DedupGuard implements two-tier deduplication for redelivered events:
// an in-memory LRU in front of the store's processed_events table.
// At-least-once delivery means exact duplicates are normal traffic,
// not errors.
type DedupGuard struct {
	lru     *dedupLRU
	store   store.EntityStore
	metrics *observability.Metrics
	log     zerolog.Logger
}

func NewDedupGuard(capacity int, st store.EntityStore, metrics *observability.Metrics, log zerolog.Logger) *DedupGuard {
	return &DedupGuard{
		lru:     newDedupLRU(capacity),
		store:   st,
		metrics: metrics,
		log:     log,
	}
}

func dedupKey(eventType, idempotencyKey string) string {
	return fmt.Sprintf("%s:%s", eventType, idempotencyKey)
}

// IsDuplicate checks whether the event was already applied. On a store
// error it answers false: re-applying is safe, blocking ingestion on a
// flaky lookup is not.
func (g *DedupGuard) IsDuplicate(ctx context.Context, eventType, idempotencyKey string) bool {
	key := dedupKey(eventType, idempotencyKey)

	// Tier 1: LRU (hot path)
	if g.lru.Contains(key) {
		g.metrics.DuplicatesDropped.WithLabelValues("lru").Inc()
		return true
	}

	// Tier 2: store (cold path)
	seen, err := g.store.HasProcessed(ctx, key)
	if err != nil {
		g.log.Warn().Err(err).Str("key", key).Msg("dedup store lookup failed, assuming new")
		return false
	}
	if seen {
		g.metrics.DuplicatesDropped.WithLabelValues("store").Inc()
		// Cache so the next redelivery stays off the store.
		g.add(key)
		return true
	}
	return false
}

// MarkProcessed records the event in both tiers after a successful
// apply. A failed durable mark is an error: better to re-apply the
// event later than to lose the marker silently.
func (g *DedupGuard) MarkProcessed(ctx context.Context, eventType, idempotencyKey string, ts int64) error {
	key := dedupKey(eventType, idempotencyKey)
	if err := g.store.MarkProcessed(ctx, key, ts); err != nil {
		return err
	}
	g.add(key)
	return nil
}

func (g *DedupGuard) add(key string) {
	if g.lru.Add(key) {
		g.metrics.DedupLRUEvictions.Inc()
	}
	g.metrics.DedupLRUSize.Set(float64(g.lru.Size()))
}

// --- LRU Implementation ---

// dedupLRU is an LRU cache of composite dedup keys.
// Not thread-safe — only accessed from the single indexing goroutine.
type dedupLRU struct {
	capacity int
	cache    map[string]*list.Element
	lruList  *list.List
}

type lruEntry struct {
	key string
}

func newDedupLRU(capacity int) *dedupLRU {
	return &dedupLRU{
		capacity: capacity,
		cache:    make(map[string]*list.Element, capacity),
		lruList:  list.New(),
	}
}

// Contains checks if key exists (promotes to front).
func (lru *dedupLRU) Contains(key string) bool {
	elem, exists := lru.cache[key]
	if exists {
		lru.lruList.MoveToFront(elem)
		return true
	}
	return false
}

// Add inserts a key (or promotes if it exists) and reports whether the
// insertion pushed the oldest key out.
func (lru *dedupLRU) Add(key string) bool {
	if elem, exists := lru.cache[key]; exists {
		lru.lruList.MoveToFront(elem)
		return false
	}

	entry := &lruEntry{key: key}
	elem := lru.lruList.PushFront(entry)
	lru.cache[key] = elem

	if lru.lruList.Len() > lru.capacity {
		lru.evictOldest()
		return true
	}
	return false
}

func (lru *dedupLRU) evictOldest() {
	elem := lru.lruList.Back()
	if elem != nil {
		lru.lruList.Remove(elem)
		entry := elem.Value.(*lruEntry)
		delete(lru.cache, entry.key)
	}
}

// Size returns the current number of entries.
func (lru *dedupLRU) Size() int {
	return lru.lruList.Len()
}
