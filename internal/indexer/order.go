package indexer

import (
	"context"
	"math/big"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
	"PerpScan/internal/store"
)

func (ix *Indexer) applyOrderPlaced(ctx context.Context, e *event.OrderPlaced) error {
	o := &entity.Order{
		ID:            e.OrderID,
		Trader:        e.Trader,
		IsBuy:         e.IsBuy,
		Price:         fixed.Clone(e.Price),
		InitialAmount: fixed.Clone(e.Amount),
		Amount:        fixed.Clone(e.Amount),
		Status:        entity.OrderStatusOpen,
		Timestamp:     e.BlockTimestamp,
	}
	if err := ix.store.PutOrder(ctx, o); err != nil {
		return ix.storeErr("order", err)
	}
	return nil
}

// applyOrderRemoved closes out an order that left the book. The log
// does not distinguish a full fill from a cancel, so the remaining
// amount decides: zero means every fill landed first, anything else is
// a cancel and the remainder is wiped.
func (ix *Indexer) applyOrderRemoved(ctx context.Context, e *event.OrderRemoved) error {
	o, err := ix.store.GetOrder(ctx, e.OrderID)
	if err == store.ErrNotFound {
		ix.skip(e, "missing_order", e.OrderID)
		return nil
	}
	if err != nil {
		return err
	}

	next := entity.OrderStatusCancelled
	if o.Amount.Sign() == 0 {
		next = entity.OrderStatusFilled
	}
	if !o.Status.CanTransitionTo(next) {
		ix.skip(e, "terminal_order", e.OrderID)
		return nil
	}
	o.Status = next
	o.Amount = new(big.Int)

	if err := ix.store.PutOrder(ctx, o); err != nil {
		return ix.storeErr("order", err)
	}
	ix.metrics.OrderTransitions.WithLabelValues(string(o.Status)).Inc()
	return nil
}

// applyFill applies one side of a trade against its resting order.
// Instead of decrementing in place, the fill is recorded and the
// remaining amount recomputed as initialAmount minus the sum of all
// recorded fills. Both steps are idempotent on their own, so a
// redelivered or half-applied trade converges to the same order state
// no matter where the previous attempt stopped.
func (ix *Indexer) applyFill(ctx context.Context, t *event.TradeExecuted, orderID string) error {
	fillID := entity.OrderFillID(orderID, t.Ref())

	has, err := ix.store.HasOrderFill(ctx, fillID)
	if err != nil {
		return err
	}
	if has {
		ix.metrics.FillGuardHits.Inc()
	}

	o, err := ix.store.GetOrder(ctx, orderID)
	if err == store.ErrNotFound {
		ix.skip(t, "missing_order", orderID)
		return nil
	}
	if err != nil {
		return err
	}

	fill := &entity.OrderFill{
		ID:      fillID,
		OrderID: orderID,
		TradeID: t.Ref(),
		Amount:  fixed.Clone(t.Amount),
	}
	if err := ix.store.PutOrderFill(ctx, fill); err != nil {
		return ix.storeErr("order_fill", err)
	}

	// A fill landing after the order left the book keeps its audit row
	// but must not reopen a terminal order.
	if o.Status.IsTerminal() {
		ix.skip(t, "terminal_order", orderID)
		return nil
	}

	fills, err := ix.store.ListOrderFills(ctx, orderID)
	if err != nil {
		return err
	}
	filled := new(big.Int)
	for _, f := range fills {
		filled.Add(filled, f.Amount)
	}

	o.Amount = new(big.Int).Sub(o.InitialAmount, filled)
	if o.Amount.Sign() == 0 {
		o.Status = entity.OrderStatusFilled
		ix.metrics.OrderTransitions.WithLabelValues(string(o.Status)).Inc()
	}
	if err := ix.store.PutOrder(ctx, o); err != nil {
		return ix.storeErr("order", err)
	}
	return nil
}
