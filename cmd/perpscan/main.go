package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"PerpScan/internal/config"
	"PerpScan/internal/indexer"
	"PerpScan/internal/ingestion"
	"PerpScan/internal/observability"
	"PerpScan/internal/query"
	"PerpScan/internal/server"
	"PerpScan/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("INFO: PerpScan starting...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: load config: %v", err)
	}

	// --- Context with graceful shutdown ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Postgres ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("FATAL: postgres open: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("FATAL: postgres ping: %v", err)
	}
	log.Println("INFO: Postgres connected")

	// --- Run SQL migrations ---
	migrator := store.NewMigrator(db, cfg.Indexer.MigrationsDir)
	if err := migrator.Up(ctx); err != nil {
		log.Fatalf("FATAL: run migrations: %v", err)
	}
	log.Println("INFO: migrations applied")

	// --- Observability ---
	metrics := observability.NewMetrics()
	healthChecker := observability.NewHealthChecker()

	// --- Entity store + indexer ---
	entityStore := store.NewPostgresStore(db)
	ix := indexer.New(entityStore, metrics, observability.NewLogger("indexer"))
	if err := ix.Restore(ctx); err != nil {
		log.Fatalf("FATAL: restore checkpoint: %v", err)
	}

	// --- NATS ---
	nc, js, err := ingestion.Connect(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("FATAL: nats connect: %v", err)
	}
	defer nc.Close()
	log.Println("INFO: NATS connected")

	if err := ingestion.EnsureStream(ctx, js); err != nil {
		log.Fatalf("FATAL: ensure NATS stream: %v", err)
	}

	// --- Event channel from NATS to the indexing loop ---
	rawEventChan := make(chan ingestion.RawEvent, cfg.Indexer.EventBuffer)
	subscriber := ingestion.NewSubscriber(js, rawEventChan)
	if err := subscriber.Subscribe(ctx); err != nil {
		log.Fatalf("FATAL: nats subscribe: %v", err)
	}

	// --- Read side ---
	queryService := query.NewService(entityStore)
	apiServer := server.NewServer(
		server.Config{Addr: cfg.HTTP.Addr},
		queryService,
		healthChecker,
		metrics,
		observability.NewLogger("api"),
	)

	// --- Start goroutines ---
	errChan := make(chan error, 4)

	// 1. The single indexing loop: parse, apply, ack.
	go func() {
		runIndexingLoop(ctx, rawEventChan, ix, metrics)
	}()

	// 2. HTTP API
	go func() {
		errChan <- apiServer.Run(ctx)
	}()

	// 3. Prometheus metrics server
	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    cfg.HTTP.MetricsAddr,
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
			defer c()
			metricsServer.Shutdown(shutCtx)
		}()
		log.Printf("INFO: Metrics server listening on %s/metrics", cfg.HTTP.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// Mark service as ready after all goroutines started.
	healthChecker.SetReady(true)

	log.Printf("INFO: PerpScan ready (events_applied=%d, http=%s, metrics=%s)",
		ix.Applied(), cfg.HTTP.Addr, cfg.HTTP.MetricsAddr)

	// --- Wait for shutdown signal ---
	select {
	case sig := <-sigChan:
		log.Printf("INFO: received signal %s, shutting down...", sig)
	case err := <-errChan:
		log.Printf("ERROR: goroutine failed: %v, shutting down...", err)
	}

	// --- Graceful shutdown ---
	healthChecker.SetReady(false)
	cancel()
	subscriber.Stop()

	// In-flight message handling finishes or naks via ctx; nothing to
	// flush since every applied event is already durable.
	time.Sleep(500 * time.Millisecond)
	log.Println("INFO: PerpScan stopped")
}

// runIndexingLoop is the one goroutine that mutates derived state.
// Messages ack only after the event is fully applied and durable;
// failures nak for redelivery and block everything behind them, which
// is what an order-sensitive log wants.
func runIndexingLoop(ctx context.Context, rawEventChan <-chan ingestion.RawEvent, ix *indexer.Indexer, metrics *observability.Metrics) {
	logger := observability.NewLogger("indexing-loop")

	for {
		select {
		case <-ctx.Done():
			return
		case raw := <-rawEventChan:
			metrics.IngestReceived.Inc()

			evt, err := ingestion.ParseRawEvent(raw.Data)
			if err != nil {
				// A malformed payload can never become parseable;
				// redelivering it would wedge the stream. Drop it loudly.
				metrics.ParseFailures.WithLabelValues(ingestion.EventTypeOf(raw.Data)).Inc()
				logger.Error().Err(err).Int("bytes", len(raw.Data)).Msg("malformed event dropped")
				raw.AckFunc()
				continue
			}

			if err := ix.Apply(ctx, evt); err != nil {
				if errors.Is(err, indexer.ErrMalformed) {
					logger.Error().Err(err).Msg("malformed event dropped after parse")
					raw.AckFunc()
					continue
				}
				metrics.IngestNaks.Inc()
				logger.Error().Err(err).
					Str("event_type", evt.EventType().String()).
					Str("ref", evt.IdempotencyKey()).
					Msg("apply failed, requesting redelivery")
				raw.NakFunc()
				continue
			}

			raw.AckFunc()
		}
	}
}
