package indexer

import (
	"context"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
)

// applyTradeExecuted writes the trade audit row, folds the trade into
// the 1m candle series, and settles both resting orders.
func (ix *Indexer) applyTradeExecuted(ctx context.Context, e *event.TradeExecuted) error {
	t := &entity.Trade{
		ID:          e.Ref(),
		Buyer:       e.Buyer,
		Seller:      e.Seller,
		Price:       fixed.Clone(e.Price),
		Amount:      fixed.Clone(e.Amount),
		Timestamp:   e.BlockTimestamp,
		TxHash:      e.TxHash,
		BuyOrderID:  e.BuyOrderID,
		SellOrderID: e.SellOrderID,
	}
	if err := ix.store.PutTrade(ctx, t); err != nil {
		return ix.storeErr("trade", err)
	}

	if err := ix.updateCandles(ctx, e); err != nil {
		return err
	}

	if err := ix.applyFill(ctx, e, e.BuyOrderID); err != nil {
		return err
	}
	if err := ix.applyFill(ctx, e, e.SellOrderID); err != nil {
		return err
	}
	return nil
}
