package store_test

import (
	"context"
	"testing"

	"PerpScan/internal/entity"
	"PerpScan/internal/fixed"
	"PerpScan/internal/store"
	"PerpScan/internal/testutil"
)

// setupStore opens the test database, runs migrations, and returns a
// PostgresStore. Skips unless INTEGRATION_TEST=1 and the compose
// Postgres is up.
func setupStore(t *testing.T) *store.PostgresStore {
	t.Helper()
	testutil.RequireIntegration(t)

	db, cleanup := testutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := store.NewMigrator(db, "../../migrations").Up(context.Background()); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	return store.NewPostgresStore(db)
}

func TestPostgres_MarginEventRoundTrip(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	in := &entity.MarginEvent{
		ID:        "0xabc-2",
		Kind:      entity.MarginDeposit,
		Trader:    "0xalice",
		Amount:    fixed.MustParse("1000000000000000000"),
		Timestamp: 1700000000,
		TxHash:    "0xabc",
	}
	if err := st.PutMarginEvent(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}

	out, err := st.GetMarginEvent(ctx, "0xabc-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out.Kind != entity.MarginDeposit || out.Trader != "0xalice" {
		t.Errorf("row mismatch: %+v", out)
	}
	if out.Amount.Cmp(in.Amount) != 0 {
		t.Errorf("amount: got %s, want %s", out.Amount, in.Amount)
	}
}

func TestPostgres_GetMissing_ErrNotFound(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	if _, err := st.GetOrder(ctx, "nope"); err != store.ErrNotFound {
		t.Errorf("order: want ErrNotFound, got %v", err)
	}
	if _, err := st.GetLatestCandle(ctx); err != store.ErrNotFound {
		t.Errorf("latest candle: want ErrNotFound, got %v", err)
	}
	if _, err := st.GetCheckpoint(ctx); err != store.ErrNotFound {
		t.Errorf("checkpoint: want ErrNotFound, got %v", err)
	}
}

func TestPostgres_OrderUpsertReplaces(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	o := &entity.Order{
		ID:            "42",
		Trader:        "0xalice",
		IsBuy:         true,
		Price:         fixed.MustParse("2000"),
		InitialAmount: fixed.MustParse("10"),
		Amount:        fixed.MustParse("10"),
		Status:        entity.OrderStatusOpen,
		Timestamp:     1700000000,
	}
	if err := st.PutOrder(ctx, o); err != nil {
		t.Fatalf("put: %v", err)
	}

	o.Amount = fixed.MustParse("6")
	if err := st.PutOrder(ctx, o); err != nil {
		t.Fatalf("re-put: %v", err)
	}

	got, err := st.GetOrder(ctx, "42")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.String() != "6" {
		t.Errorf("amount: got %s, want 6", got.Amount)
	}
	if got.InitialAmount.String() != "10" {
		t.Errorf("initial amount: got %s, want 10", got.InitialAmount)
	}
}

func TestPostgres_CandleUpsertKeepsOpen(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	c := &entity.Candle{
		ID:          entity.CandleID(entity.Resolution1m, 1700000040),
		Resolution:  entity.Resolution1m,
		BucketStart: 1700000040,
		OpenPrice:   fixed.MustParse("2000"),
		HighPrice:   fixed.MustParse("2000"),
		LowPrice:    fixed.MustParse("2000"),
		ClosePrice:  fixed.MustParse("2000"),
		Volume:      fixed.MustParse("1"),
	}
	if err := st.PutCandle(ctx, c); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Conflicting write must fold high/low/close/volume but leave the
	// stored open untouched.
	c.OpenPrice = fixed.MustParse("9999")
	c.HighPrice = fixed.MustParse("2100")
	c.ClosePrice = fixed.MustParse("2100")
	c.Volume = fixed.MustParse("3")
	if err := st.PutCandle(ctx, c); err != nil {
		t.Fatalf("re-put: %v", err)
	}

	got, err := st.GetCandle(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.OpenPrice.String() != "2000" {
		t.Errorf("open: got %s, want 2000 (immutable)", got.OpenPrice)
	}
	if got.HighPrice.String() != "2100" || got.Volume.String() != "3" {
		t.Errorf("fold: got high=%s volume=%s", got.HighPrice, got.Volume)
	}
}

func TestPostgres_ListCandles_NewestFirst(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for _, bucket := range []int64{1700000040, 1700000100, 1700000160} {
		c := &entity.Candle{
			ID:          entity.CandleID(entity.Resolution1m, bucket),
			Resolution:  entity.Resolution1m,
			BucketStart: bucket,
			OpenPrice:   fixed.MustParse("1"),
			HighPrice:   fixed.MustParse("1"),
			LowPrice:    fixed.MustParse("1"),
			ClosePrice:  fixed.MustParse("1"),
			Volume:      fixed.MustParse("1"),
		}
		if err := st.PutCandle(ctx, c); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	out, err := st.ListCandles(ctx, entity.Resolution1m, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d candles, want 2", len(out))
	}
	if out[0].BucketStart != 1700000160 || out[1].BucketStart != 1700000100 {
		t.Errorf("order: got %d, %d", out[0].BucketStart, out[1].BucketStart)
	}
}

func TestPostgres_FundingEventVariants(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	global := &entity.FundingEvent{
		ID:        "0xa-0",
		Detail:    entity.GlobalFundingUpdate{CumulativeRate: fixed.MustParse("123456")},
		Timestamp: 1700000000,
	}
	if err := st.PutFundingEvent(ctx, global); err != nil {
		t.Fatalf("put global: %v", err)
	}

	user := &entity.FundingEvent{
		ID:        "0xb-0",
		Detail:    entity.UserFundingPayment{Trader: "0xalice", Payment: fixed.MustParse("-42")},
		Timestamp: 1700000060,
	}
	if err := st.PutFundingEvent(ctx, user); err != nil {
		t.Fatalf("put user: %v", err)
	}

	g, err := st.GetFundingEvent(ctx, "0xa-0")
	if err != nil {
		t.Fatalf("get global: %v", err)
	}
	gd, ok := g.Detail.(entity.GlobalFundingUpdate)
	if !ok {
		t.Fatalf("global detail: got %T", g.Detail)
	}
	if gd.CumulativeRate.String() != "123456" {
		t.Errorf("rate: got %s", gd.CumulativeRate)
	}

	u, err := st.GetFundingEvent(ctx, "0xb-0")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	ud, ok := u.Detail.(entity.UserFundingPayment)
	if !ok {
		t.Fatalf("user detail: got %T", u.Detail)
	}
	if ud.Trader != "0xalice" || ud.Payment.String() != "-42" {
		t.Errorf("payment: got %+v", ud)
	}
}

func TestPostgres_OrderFillInsertOnce(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	f := &entity.OrderFill{
		ID:      entity.OrderFillID("42", "0xabc-0"),
		OrderID: "42",
		TradeID: "0xabc-0",
		Amount:  fixed.MustParse("4"),
	}
	if err := st.PutOrderFill(ctx, f); err != nil {
		t.Fatalf("put: %v", err)
	}

	// The second insert is a no-op, not an error or an overwrite.
	f.Amount = fixed.MustParse("999")
	if err := st.PutOrderFill(ctx, f); err != nil {
		t.Fatalf("re-put: %v", err)
	}

	fills, err := st.ListOrderFills(ctx, "42")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(fills))
	}
	if fills[0].Amount.String() != "4" {
		t.Errorf("amount: got %s, want 4 (first write wins)", fills[0].Amount)
	}

	has, err := st.HasOrderFill(ctx, f.ID)
	if err != nil || !has {
		t.Errorf("has: got (%v, %v), want (true, nil)", has, err)
	}
}

func TestPostgres_ProcessedEvents(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	key := "TradeExecuted:0xabc-2"
	seen, err := st.HasProcessed(ctx, key)
	if err != nil || seen {
		t.Fatalf("before mark: got (%v, %v)", seen, err)
	}

	if err := st.MarkProcessed(ctx, key, 1700000000); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if err := st.MarkProcessed(ctx, key, 1700000000); err != nil {
		t.Fatalf("re-mark should be a no-op: %v", err)
	}

	seen, err = st.HasProcessed(ctx, key)
	if err != nil || !seen {
		t.Fatalf("after mark: got (%v, %v)", seen, err)
	}
}

func TestPostgres_CheckpointSingleRow(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for i, tx := range []string{"0xa", "0xb", "0xc"} {
		cp := &entity.Checkpoint{
			TxHash:         tx,
			LogIndex:       uint32(i),
			BlockTimestamp: 1700000000 + int64(i)*60,
			EventsApplied:  int64(i + 1),
		}
		if err := st.PutCheckpoint(ctx, cp); err != nil {
			t.Fatalf("put checkpoint: %v", err)
		}
	}

	cp, err := st.GetCheckpoint(ctx)
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if cp.TxHash != "0xc" || cp.LogIndex != 2 || cp.EventsApplied != 3 {
		t.Errorf("checkpoint: got %+v", cp)
	}
}

func TestPostgres_PositionPartialIndexFilter(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	for _, p := range []*entity.Position{
		{ID: "0xa", Trader: "0xa", Size: fixed.MustParse("5"), EntryPrice: fixed.MustParse("2000")},
		{ID: "0xb", Trader: "0xb", Size: fixed.MustParse("0"), EntryPrice: fixed.MustParse("2000")},
		{ID: "0xc", Trader: "0xc", Size: fixed.MustParse("-3"), EntryPrice: fixed.MustParse("2100")},
	} {
		if err := st.PutPosition(ctx, p); err != nil {
			t.Fatalf("put position: %v", err)
		}
	}

	open, err := st.ListOpenPositions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("got %d open positions, want 2", len(open))
	}
	if open[0].Trader != "0xa" || open[1].Trader != "0xc" {
		t.Errorf("order: got %s, %s", open[0].Trader, open[1].Trader)
	}
}
