package store

import (
	"context"
	"errors"

	"PerpScan/internal/entity"
)

// ErrNotFound is returned by every Get when no row matches the key.
// Handlers treat it as a missing referent, not a failure.
var ErrNotFound = errors.New("store: not found")

// EntityStore is the single shared resource of the indexer. All
// handler reads and writes go through it, so one implementation backs
// tests and replay (memory) and another backs the service (Postgres).
//
// Puts are upserts: writing the same key twice replaces the row. That
// property plus the OrderFill guard is what makes redelivery safe.
type EntityStore interface {
	PutMarginEvent(ctx context.Context, m *entity.MarginEvent) error
	GetMarginEvent(ctx context.Context, id string) (*entity.MarginEvent, error)

	PutOrder(ctx context.Context, o *entity.Order) error
	GetOrder(ctx context.Context, id string) (*entity.Order, error)

	PutTrade(ctx context.Context, t *entity.Trade) error
	GetTrade(ctx context.Context, id string) (*entity.Trade, error)

	PutCandle(ctx context.Context, c *entity.Candle) error
	GetCandle(ctx context.Context, id string) (*entity.Candle, error)
	// ListCandles returns up to limit candles for one resolution,
	// newest bucket first.
	ListCandles(ctx context.Context, resolution string, limit int) ([]*entity.Candle, error)

	PutLatestCandle(ctx context.Context, lc *entity.LatestCandle) error
	GetLatestCandle(ctx context.Context) (*entity.LatestCandle, error)

	PutPosition(ctx context.Context, p *entity.Position) error
	GetPosition(ctx context.Context, id string) (*entity.Position, error)
	// ListOpenPositions returns positions with non-zero size.
	ListOpenPositions(ctx context.Context) ([]*entity.Position, error)

	PutFundingEvent(ctx context.Context, f *entity.FundingEvent) error
	GetFundingEvent(ctx context.Context, id string) (*entity.FundingEvent, error)

	PutLiquidation(ctx context.Context, l *entity.Liquidation) error
	GetLiquidation(ctx context.Context, id string) (*entity.Liquidation, error)

	// OrderFill guard rows; see entity.OrderFill.
	PutOrderFill(ctx context.Context, f *entity.OrderFill) error
	HasOrderFill(ctx context.Context, id string) (bool, error)
	// ListOrderFills returns every fill applied against one order.
	ListOrderFills(ctx context.Context, orderID string) ([]*entity.OrderFill, error)

	// Processed-event markers: the durable tier of the idempotency
	// guard, keyed "{eventType}:{txHash}-{logIndex}".
	MarkProcessed(ctx context.Context, key string, ts int64) error
	HasProcessed(ctx context.Context, key string) (bool, error)

	PutCheckpoint(ctx context.Context, cp *entity.Checkpoint) error
	GetCheckpoint(ctx context.Context) (*entity.Checkpoint, error)
}
