package indexer

import (
	"github.com/rs/zerolog"

	"PerpScan/internal/event"
	"PerpScan/internal/observability"
)

// OrderingMonitor watches block timestamps flowing through the
// indexer. The scanner delivers logs in block order, so a non-duplicate
// event older than the last applied one signals a reorg replay or a
// misbehaving upstream. Regressions are counted and logged, never
// fatal: the idempotency and fill guards make replays harmless.
//
// Not thread-safe — only accessed from the single indexing goroutine.
type OrderingMonitor struct {
	lastTimestamp int64
	lastRef       string
	regressions   int64

	metrics *observability.Metrics
	log     zerolog.Logger
}

func NewOrderingMonitor(metrics *observability.Metrics, log zerolog.Logger) *OrderingMonitor {
	return &OrderingMonitor{
		metrics: metrics,
		log:     log,
	}
}

// Observe records one applied event's position in the stream.
func (om *OrderingMonitor) Observe(evt event.Event) {
	ts := evt.Timestamp()
	if ts < om.lastTimestamp {
		om.regressions++
		om.metrics.TimestampRegress.Inc()
		om.log.Warn().
			Str("ref", evt.IdempotencyKey()).
			Int64("block_ts", ts).
			Int64("last_block_ts", om.lastTimestamp).
			Str("last_ref", om.lastRef).
			Msg("block timestamp regression, possible reorg replay")
		return
	}
	om.lastTimestamp = ts
	om.lastRef = evt.IdempotencyKey()
}

// SetLast seeds the monitor from the checkpoint during startup.
func (om *OrderingMonitor) SetLast(ts int64, ref string) {
	om.lastTimestamp = ts
	om.lastRef = ref
}

// Regressions returns the number of regressions seen since start.
func (om *OrderingMonitor) Regressions() int64 {
	return om.regressions
}
