package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"PerpScan/internal/entity"
	"PerpScan/internal/event"
	"PerpScan/internal/observability"
	"PerpScan/internal/store"
)

// DefaultDedupCapacity bounds the in-memory dedup LRU. Roughly one
// hour of events at peak chain throughput.
const DefaultDedupCapacity = 65536

// Indexer folds the ordered chain event log into derived entities.
// Apply is strictly sequential: exactly one goroutine calls it, so
// every handler sees the store state left by the previous event.
type Indexer struct {
	store    store.EntityStore
	dedup    *DedupGuard
	ordering *OrderingMonitor
	metrics  *observability.Metrics
	log      zerolog.Logger

	applied int64 // lifetime count, restored from the checkpoint
}

func New(st store.EntityStore, metrics *observability.Metrics, log zerolog.Logger) *Indexer {
	return &Indexer{
		store:    st,
		dedup:    NewDedupGuard(DefaultDedupCapacity, st, metrics, log),
		ordering: NewOrderingMonitor(metrics, log),
		metrics:  metrics,
		log:      log,
	}
}

// Restore seeds the indexer from the store's checkpoint. Call once
// before the first Apply; a missing checkpoint means a fresh database.
func (ix *Indexer) Restore(ctx context.Context) error {
	cp, err := ix.store.GetCheckpoint(ctx)
	if err == store.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore checkpoint: %w", err)
	}
	ix.applied = cp.EventsApplied
	ix.ordering.SetLast(cp.BlockTimestamp, fmt.Sprintf("%s-%d", cp.TxHash, cp.LogIndex))
	ix.log.Info().
		Str("tx_hash", cp.TxHash).
		Uint32("log_index", cp.LogIndex).
		Int64("block_ts", cp.BlockTimestamp).
		Int64("events_applied", cp.EventsApplied).
		Msg("restored checkpoint")
	return nil
}

// Applied returns the lifetime count of applied events.
func (ix *Indexer) Applied() int64 {
	return ix.applied
}

// Apply processes one chain event end to end: dedup check, validation,
// dispatch, durable processed marker, checkpoint. A returned error
// means the event must be redelivered; everything a handler wrote
// before the failure is an upsert or guarded, so re-applying is safe.
func (ix *Indexer) Apply(ctx context.Context, evt event.Event) error {
	start := time.Now()
	eventType := evt.EventType().String()

	if err := validate(evt); err != nil {
		ix.metrics.EventsFailed.WithLabelValues(eventType, "malformed").Inc()
		return fmt.Errorf("malformed %s %s: %w", eventType, evt.IdempotencyKey(), err)
	}

	if ix.dedup.IsDuplicate(ctx, eventType, evt.IdempotencyKey()) {
		ix.log.Debug().
			Str("event_type", eventType).
			Str("ref", evt.IdempotencyKey()).
			Msg("duplicate event dropped")
		return nil
	}

	ix.ordering.Observe(evt)

	if err := ix.dispatch(ctx, evt); err != nil {
		ix.metrics.EventsFailed.WithLabelValues(eventType, "apply").Inc()
		return fmt.Errorf("apply %s %s: %w", eventType, evt.IdempotencyKey(), err)
	}

	if err := ix.dedup.MarkProcessed(ctx, eventType, evt.IdempotencyKey(), evt.Timestamp()); err != nil {
		ix.metrics.EventsFailed.WithLabelValues(eventType, "mark").Inc()
		return fmt.Errorf("mark %s %s: %w", eventType, evt.IdempotencyKey(), err)
	}

	ix.applied++
	if err := ix.writeCheckpoint(ctx, evt); err != nil {
		return err
	}

	ix.metrics.EventsApplied.WithLabelValues(eventType).Inc()
	ix.metrics.EventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	return nil
}

// dispatch routes over the closed event union. A type outside the
// union is a programming error, not data to tolerate.
func (ix *Indexer) dispatch(ctx context.Context, evt event.Event) error {
	switch e := evt.(type) {
	case *event.MarginDeposited:
		return ix.applyMarginDeposited(ctx, e)
	case *event.MarginWithdrawn:
		return ix.applyMarginWithdrawn(ctx, e)
	case *event.OrderPlaced:
		return ix.applyOrderPlaced(ctx, e)
	case *event.OrderRemoved:
		return ix.applyOrderRemoved(ctx, e)
	case *event.TradeExecuted:
		return ix.applyTradeExecuted(ctx, e)
	case *event.PositionUpdated:
		return ix.applyPositionUpdated(ctx, e)
	case *event.FundingUpdated:
		return ix.applyFundingUpdated(ctx, e)
	case *event.FundingPaid:
		return ix.applyFundingPaid(ctx, e)
	case *event.Liquidated:
		return ix.applyLiquidated(ctx, e)
	default:
		return fmt.Errorf("unhandled event type %T", evt)
	}
}

func (ix *Indexer) writeCheckpoint(ctx context.Context, evt event.Event) error {
	m, ok := metaOf(evt)
	if !ok {
		return fmt.Errorf("event %T has no chain coordinates", evt)
	}
	cp := &entity.Checkpoint{
		TxHash:         m.TxHash,
		LogIndex:       m.LogIndex,
		BlockTimestamp: m.BlockTimestamp,
		EventsApplied:  ix.applied,
	}
	if err := ix.store.PutCheckpoint(ctx, cp); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	ix.metrics.CheckpointTime.Set(float64(m.BlockTimestamp))
	return nil
}

func metaOf(evt event.Event) (event.Meta, bool) {
	switch e := evt.(type) {
	case *event.MarginDeposited:
		return e.Meta, true
	case *event.MarginWithdrawn:
		return e.Meta, true
	case *event.OrderPlaced:
		return e.Meta, true
	case *event.OrderRemoved:
		return e.Meta, true
	case *event.TradeExecuted:
		return e.Meta, true
	case *event.PositionUpdated:
		return e.Meta, true
	case *event.FundingUpdated:
		return e.Meta, true
	case *event.FundingPaid:
		return e.Meta, true
	case *event.Liquidated:
		return e.Meta, true
	default:
		return event.Meta{}, false
	}
}

// skip logs one suppressed mutation for a missing referent. The rest
// of the event still applies.
func (ix *Indexer) skip(evt event.Event, reason, detail string) {
	ix.metrics.EventsSkipped.WithLabelValues(evt.EventType().String(), reason).Inc()
	ix.log.Warn().
		Str("event_type", evt.EventType().String()).
		Str("ref", evt.IdempotencyKey()).
		Str("detail", detail).
		Msg("mutation skipped: " + reason)
}
