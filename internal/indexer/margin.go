package indexer

import (
	"context"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
)

func (ix *Indexer) applyMarginDeposited(ctx context.Context, e *event.MarginDeposited) error {
	m := &entity.MarginEvent{
		ID:        e.Ref(),
		Kind:      entity.MarginDeposit,
		Trader:    e.Trader,
		Amount:    fixed.Clone(e.Amount),
		Timestamp: e.BlockTimestamp,
		TxHash:    e.TxHash,
	}
	if err := ix.store.PutMarginEvent(ctx, m); err != nil {
		return ix.storeErr("margin_event", err)
	}
	return nil
}

func (ix *Indexer) applyMarginWithdrawn(ctx context.Context, e *event.MarginWithdrawn) error {
	m := &entity.MarginEvent{
		ID:        e.Ref(),
		Kind:      entity.MarginWithdraw,
		Trader:    e.Trader,
		Amount:    fixed.Clone(e.Amount),
		Timestamp: e.BlockTimestamp,
		TxHash:    e.TxHash,
	}
	if err := ix.store.PutMarginEvent(ctx, m); err != nil {
		return ix.storeErr("margin_event", err)
	}
	return nil
}

// storeErr counts a failed entity write before handing the error back
// up for retry.
func (ix *Indexer) storeErr(entityName string, err error) error {
	ix.metrics.StoreWriteErrors.WithLabelValues(entityName).Inc()
	return err
}
