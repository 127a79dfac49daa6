package indexer_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"PerpScan/internal/indexer"
	"PerpScan/internal/store"
)

func TestDedupGuard_TwoTiers(t *testing.T) {
	st := store.NewMemoryStore()
	g := indexer.NewDedupGuard(8, st, testMetrics, zerolog.Nop())
	ctx := context.Background()

	if g.IsDuplicate(ctx, "TradeExecuted", "0x1-0") {
		t.Error("unseen event flagged as duplicate")
	}
	if err := g.MarkProcessed(ctx, "TradeExecuted", "0x1-0", 1700000000); err != nil {
		t.Fatalf("mark processed: %v", err)
	}
	if !g.IsDuplicate(ctx, "TradeExecuted", "0x1-0") {
		t.Error("marked event not flagged as duplicate")
	}
	// Same idempotency key under a different event type is distinct.
	if g.IsDuplicate(ctx, "OrderRemoved", "0x1-0") {
		t.Error("key collided across event types")
	}
}

func TestDedupGuard_StoreTierBacksColdCache(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	g := indexer.NewDedupGuard(8, st, testMetrics, zerolog.Nop())
	if err := g.MarkProcessed(ctx, "TradeExecuted", "0x1-0", 1700000000); err != nil {
		t.Fatalf("mark processed: %v", err)
	}

	// A fresh guard has an empty cache; the durable tier must answer.
	fresh := indexer.NewDedupGuard(8, st, testMetrics, zerolog.Nop())
	if !fresh.IsDuplicate(ctx, "TradeExecuted", "0x1-0") {
		t.Error("durable tier missed a processed event")
	}
}

func TestDedupGuard_EvictionCounted(t *testing.T) {
	st := store.NewMemoryStore()
	g := indexer.NewDedupGuard(2, st, testMetrics, zerolog.Nop())
	ctx := context.Background()

	before := testutil.ToFloat64(testMetrics.DedupLRUEvictions)

	for i, key := range []string{"0x1-0", "0x2-0", "0x3-0"} {
		if err := g.MarkProcessed(ctx, "TradeExecuted", key, int64(1700000000+i)); err != nil {
			t.Fatalf("mark processed %s: %v", key, err)
		}
	}

	if got := testutil.ToFloat64(testMetrics.DedupLRUEvictions) - before; got != 1 {
		t.Errorf("evictions: got %v, want 1", got)
	}

	// The evicted key falls back to the durable tier, not to re-apply.
	if !g.IsDuplicate(ctx, "TradeExecuted", "0x1-0") {
		t.Error("evicted key lost from both tiers")
	}
}
