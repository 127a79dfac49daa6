package indexer

import (
	"context"
	"math/big"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
	"PerpScan/internal/store"
)

// applyPositionUpdated overwrites the trader's position with the
// contract's own view. The contract is the single source of truth for
// size and entry price; nothing here derives or reconciles.
func (ix *Indexer) applyPositionUpdated(ctx context.Context, e *event.PositionUpdated) error {
	p := &entity.Position{
		ID:         e.Trader,
		Trader:     e.Trader,
		Size:       fixed.Clone(e.Size),
		EntryPrice: fixed.Clone(e.EntryPrice),
	}
	if err := ix.store.PutPosition(ctx, p); err != nil {
		return ix.storeErr("position", err)
	}
	return nil
}

// applyLiquidated writes the liquidation audit row and moves the
// trader's recorded size toward zero by the closed amount. The next
// PositionUpdated for the trader overwrites regardless, so the nudge
// only keeps the read side honest between the two logs of the same
// forced close.
func (ix *Indexer) applyLiquidated(ctx context.Context, e *event.Liquidated) error {
	l := &entity.Liquidation{
		ID:         e.Ref(),
		Trader:     e.Trader,
		Liquidator: e.Liquidator,
		Amount:     fixed.Clone(e.Amount),
		Fee:        fixed.Clone(e.Reward),
		Price:      fixed.Clone(e.Price),
		Timestamp:  e.BlockTimestamp,
		TxHash:     e.TxHash,
	}
	if err := ix.store.PutLiquidation(ctx, l); err != nil {
		return ix.storeErr("liquidation", err)
	}
	ix.metrics.LiquidationsSeen.Inc()

	p, err := ix.store.GetPosition(ctx, e.Trader)
	if err == store.ErrNotFound {
		ix.skip(e, "missing_position", e.Trader)
		return nil
	}
	if err != nil {
		return err
	}

	// Longs shrink toward zero by subtracting, shorts by adding.
	if p.SideSign() > 0 {
		p.Size = new(big.Int).Sub(p.Size, e.Amount)
	} else {
		p.Size = new(big.Int).Add(p.Size, e.Amount)
	}
	if err := ix.store.PutPosition(ctx, p); err != nil {
		return ix.storeErr("position", err)
	}
	return nil
}
