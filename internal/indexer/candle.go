package indexer

import (
	"context"
	"math/big"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
	"PerpScan/internal/store"
)

// updateCandles folds one trade into its 1m bucket and refreshes the
// latest-price singleton. A new bucket opens at the previous close so
// the chart never gaps between minutes; the very first bucket of a
// fresh database opens at the trade's own price.
func (ix *Indexer) updateCandles(ctx context.Context, e *event.TradeExecuted) error {
	bucket := entity.CandleBucket(e.BlockTimestamp)
	id := entity.CandleID(entity.Resolution1m, bucket)

	c, err := ix.store.GetCandle(ctx, id)
	switch {
	case err == store.ErrNotFound:
		open, err := ix.openingPrice(ctx, e.Price)
		if err != nil {
			return err
		}
		c = &entity.Candle{
			ID:          id,
			Resolution:  entity.Resolution1m,
			BucketStart: bucket,
			OpenPrice:   open,
			HighPrice:   fixed.Max(e.Price, open),
			LowPrice:    fixed.Min(e.Price, open),
			ClosePrice:  fixed.Clone(e.Price),
			Volume:      fixed.Clone(e.Amount),
		}
	case err != nil:
		return err
	default:
		c.HighPrice = fixed.Max(c.HighPrice, e.Price)
		c.LowPrice = fixed.Min(c.LowPrice, e.Price)
		c.ClosePrice = fixed.Clone(e.Price)
		c.Volume = new(big.Int).Add(c.Volume, e.Amount)
	}

	if err := ix.store.PutCandle(ctx, c); err != nil {
		return ix.storeErr("candle", err)
	}
	ix.metrics.CandlesUpdated.Inc()

	lc := &entity.LatestCandle{
		ID:         entity.LatestCandleID,
		ClosePrice: fixed.Clone(e.Price),
		Timestamp:  e.BlockTimestamp,
	}
	if err := ix.store.PutLatestCandle(ctx, lc); err != nil {
		return ix.storeErr("latest_candle", err)
	}
	return nil
}

// openingPrice seeds a fresh bucket from the last trade price.
func (ix *Indexer) openingPrice(ctx context.Context, tradePrice *big.Int) (*big.Int, error) {
	lc, err := ix.store.GetLatestCandle(ctx)
	if err == store.ErrNotFound {
		return fixed.Clone(tradePrice), nil
	}
	if err != nil {
		return nil, err
	}
	return fixed.Clone(lc.ClosePrice), nil
}
