package indexer

import (
	"context"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/fixed"
)

func (ix *Indexer) applyFundingUpdated(ctx context.Context, e *event.FundingUpdated) error {
	f := &entity.FundingEvent{
		ID: e.Ref(),
		Detail: entity.GlobalFundingUpdate{
			CumulativeRate: fixed.Clone(e.CumulativeFundingRate),
		},
		Timestamp: e.BlockTimestamp,
	}
	if err := ix.store.PutFundingEvent(ctx, f); err != nil {
		return ix.storeErr("funding_event", err)
	}
	ix.metrics.FundingEventsSeen.WithLabelValues(string(entity.FundingGlobalUpdate)).Inc()
	return nil
}

func (ix *Indexer) applyFundingPaid(ctx context.Context, e *event.FundingPaid) error {
	f := &entity.FundingEvent{
		ID: e.Ref(),
		Detail: entity.UserFundingPayment{
			Trader:  e.Trader,
			Payment: fixed.Clone(e.Amount),
		},
		Timestamp: e.BlockTimestamp,
	}
	if err := ix.store.PutFundingEvent(ctx, f); err != nil {
		return ix.storeErr("funding_event", err)
	}
	ix.metrics.FundingEventsSeen.WithLabelValues(string(entity.FundingUserPaid)).Inc()
	return nil
}
