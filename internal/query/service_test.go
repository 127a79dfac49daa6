package query_test

import (
	"context"
	"fmt"
	"math/big"
	"testing"

	"PerpScan/internal/entity"
	"PerpScan/internal/query"
	"PerpScan/internal/store"
)

func seedCandles(t *testing.T, st *store.MemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		bucket := int64(1700000040 + i*60)
		c := &entity.Candle{
			ID:          entity.CandleID(entity.Resolution1m, bucket),
			Resolution:  entity.Resolution1m,
			BucketStart: bucket,
			OpenPrice:   big.NewInt(2000),
			HighPrice:   big.NewInt(2000),
			LowPrice:    big.NewInt(2000),
			ClosePrice:  big.NewInt(2000),
			Volume:      big.NewInt(1),
		}
		if err := st.PutCandle(context.Background(), c); err != nil {
			t.Fatalf("seed candle: %v", err)
		}
	}
}

func TestCandles_DefaultLimit(t *testing.T) {
	st := store.NewMemoryStore()
	seedCandles(t, st, 100)
	svc := query.NewService(st)

	candles, err := svc.Candles(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	if len(candles) != query.DefaultCandleLimit {
		t.Errorf("got %d candles, want %d", len(candles), query.DefaultCandleLimit)
	}
}

func TestCandles_NewestFirst(t *testing.T) {
	st := store.NewMemoryStore()
	seedCandles(t, st, 5)
	svc := query.NewService(st)

	candles, err := svc.Candles(context.Background(), entity.Resolution1m, 5)
	if err != nil {
		t.Fatalf("candles: %v", err)
	}
	for i := 1; i < len(candles); i++ {
		if candles[i-1].BucketStart <= candles[i].BucketStart {
			t.Fatalf("candles not newest-first at index %d", i)
		}
	}
}

func TestCandles_LimitClamped(t *testing.T) {
	st := store.NewMemoryStore()
	svc := query.NewService(st)

	// Clamp happens before the store sees the limit, so an empty store
	// is fine here.
	if _, err := svc.Candles(context.Background(), "", query.MaxCandleLimit+500); err != nil {
		t.Fatalf("candles: %v", err)
	}
}

func TestCandles_UnsupportedResolution(t *testing.T) {
	svc := query.NewService(store.NewMemoryStore())

	if _, err := svc.Candles(context.Background(), "5m", 10); err == nil {
		t.Fatal("expected error for unsupported resolution")
	}
}

func TestLatestCandle_FreshStore(t *testing.T) {
	svc := query.NewService(store.NewMemoryStore())

	if _, err := svc.LatestCandle(context.Background()); err != store.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestOpenPositions_ExcludesFlat(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()

	for i, size := range []int64{5, 0, -3} {
		p := &entity.Position{
			ID:         fmt.Sprintf("0xtrader%d", i),
			Trader:     fmt.Sprintf("0xtrader%d", i),
			Size:       big.NewInt(size),
			EntryPrice: big.NewInt(2000),
		}
		if err := st.PutPosition(ctx, p); err != nil {
			t.Fatalf("seed position: %v", err)
		}
	}

	svc := query.NewService(st)
	positions, err := svc.OpenPositions(ctx)
	if err != nil {
		t.Fatalf("open positions: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d open positions, want 2", len(positions))
	}
	for _, p := range positions {
		if p.Size.Sign() == 0 {
			t.Errorf("flat position %s should be excluded", p.Trader)
		}
	}
}

func TestCheckpoint_FreshStore(t *testing.T) {
	svc := query.NewService(store.NewMemoryStore())

	if _, err := svc.Checkpoint(context.Background()); err != store.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
