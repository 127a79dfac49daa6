package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for PerpScan.
type Metrics struct {
	// --- Indexing ---
	EventsApplied  *prometheus.CounterVec
	EventsSkipped  *prometheus.CounterVec
	EventsFailed   *prometheus.CounterVec
	EventDuration  *prometheus.HistogramVec
	CheckpointTime prometheus.Gauge

	// --- Idempotency & Ordering ---
	DuplicatesDropped *prometheus.CounterVec
	DedupLRUSize      prometheus.Gauge
	DedupLRUEvictions prometheus.Counter
	TimestampRegress  prometheus.Counter
	FillGuardHits     prometheus.Counter

	// --- Derived entities ---
	CandlesUpdated    prometheus.Counter
	OrderTransitions  *prometheus.CounterVec
	LiquidationsSeen  prometheus.Counter
	FundingEventsSeen *prometheus.CounterVec

	// --- Store ---
	StoreWriteErrors *prometheus.CounterVec

	// --- Ingestion ---
	IngestReceived prometheus.Counter
	IngestNaks     prometheus.Counter
	ParseFailures  *prometheus.CounterVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	applyBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005,
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5,
	}

	queryBuckets := []float64{
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25,
	}

	return &Metrics{
		EventsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_events_applied_total",
			Help: "Chain events fully applied to the entity store",
		}, []string{"event_type"}),

		EventsSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_events_skipped_total",
			Help: "Mutations skipped for missing referents",
		}, []string{"event_type", "reason"}),

		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_events_failed_total",
			Help: "Events whose apply returned an error",
		}, []string{"event_type", "reason"}),

		EventDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpscan_event_apply_duration_seconds",
			Help:    "Time to apply a single event including store writes",
			Buckets: applyBuckets,
		}, []string{"event_type"}),

		CheckpointTime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perpscan_checkpoint_block_timestamp",
			Help: "Block timestamp of the last applied event",
		}),

		DuplicatesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_duplicates_dropped_total",
			Help: "Redelivered events dropped by the idempotency guard",
		}, []string{"tier"}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "perpscan_dedup_lru_size",
			Help: "Entries currently in the in-memory dedup LRU",
		}),

		DedupLRUEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_dedup_lru_evictions_total",
			Help: "Dedup LRU entries evicted by capacity",
		}),

		TimestampRegress: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_timestamp_regressions_total",
			Help: "Non-duplicate events older than the checkpoint (reorg signal)",
		}),

		FillGuardHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_fill_guard_hits_total",
			Help: "Order decrements suppressed by an existing fill record",
		}),

		CandlesUpdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_candles_updated_total",
			Help: "Candle bucket upserts from trades",
		}),

		OrderTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_order_transitions_total",
			Help: "Order status transitions",
		}, []string{"to"}),

		LiquidationsSeen: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_liquidations_total",
			Help: "Liquidated events applied",
		}),

		FundingEventsSeen: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_funding_events_total",
			Help: "Funding events applied by variant",
		}, []string{"kind"}),

		StoreWriteErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_store_write_errors_total",
			Help: "Entity store writes that returned an error",
		}, []string{"entity"}),

		IngestReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_ingest_received_total",
			Help: "Raw messages received from the stream",
		}),

		IngestNaks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "perpscan_ingest_naks_total",
			Help: "Messages negatively acknowledged for redelivery",
		}),

		ParseFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_parse_failures_total",
			Help: "Raw messages that failed to parse",
		}, []string{"event_type"}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_query_requests_total",
			Help: "HTTP API requests",
		}, []string{"endpoint"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "perpscan_query_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: queryBuckets,
		}, []string{"endpoint"}),

		QueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "perpscan_query_errors_total",
			Help: "HTTP API requests that returned an error status",
		}, []string{"endpoint", "code"}),
	}
}
