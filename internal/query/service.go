package query

import (
	"context"
	"fmt"

	"PerpScan/internal/entity"
	"PerpScan/internal/store"
)

const (
	// DefaultCandleLimit is one hour of 1m candles.
	DefaultCandleLimit = 60
	// MaxCandleLimit bounds a single candle query.
	MaxCandleLimit = 1000
)

// Service is the read side of the indexer. It never writes; it serves
// whatever the indexing goroutine has materialized so far.
type Service struct {
	store store.EntityStore
}

func NewService(st store.EntityStore) *Service {
	return &Service{store: st}
}

// Candles returns up to limit candles for one resolution, newest
// first. Zero limit means DefaultCandleLimit.
func (s *Service) Candles(ctx context.Context, resolution string, limit int) ([]*entity.Candle, error) {
	if resolution == "" {
		resolution = entity.Resolution1m
	}
	if resolution != entity.Resolution1m {
		return nil, fmt.Errorf("unsupported resolution %q", resolution)
	}
	if limit <= 0 {
		limit = DefaultCandleLimit
	}
	if limit > MaxCandleLimit {
		limit = MaxCandleLimit
	}
	return s.store.ListCandles(ctx, resolution, limit)
}

// LatestCandle returns the last-trade-price singleton.
func (s *Service) LatestCandle(ctx context.Context) (*entity.LatestCandle, error) {
	return s.store.GetLatestCandle(ctx)
}

// OpenPositions returns every position with non-zero size.
func (s *Service) OpenPositions(ctx context.Context) ([]*entity.Position, error) {
	return s.store.ListOpenPositions(ctx)
}

// Position returns one trader's position, flat or not.
func (s *Service) Position(ctx context.Context, trader string) (*entity.Position, error) {
	return s.store.GetPosition(ctx, trader)
}

func (s *Service) Order(ctx context.Context, id string) (*entity.Order, error) {
	return s.store.GetOrder(ctx, id)
}

func (s *Service) Trade(ctx context.Context, id string) (*entity.Trade, error) {
	return s.store.GetTrade(ctx, id)
}

func (s *Service) MarginEvent(ctx context.Context, id string) (*entity.MarginEvent, error) {
	return s.store.GetMarginEvent(ctx, id)
}

func (s *Service) FundingEvent(ctx context.Context, id string) (*entity.FundingEvent, error) {
	return s.store.GetFundingEvent(ctx, id)
}

func (s *Service) Liquidation(ctx context.Context, id string) (*entity.Liquidation, error) {
	return s.store.GetLiquidation(ctx, id)
}

// Checkpoint returns the indexer's sync position, or ErrNotFound on a
// fresh database.
func (s *Service) Checkpoint(ctx context.Context) (*entity.Checkpoint, error) {
	return s.store.GetCheckpoint(ctx)
}
