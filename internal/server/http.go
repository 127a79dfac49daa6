package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"PerpScan/internal/observability"
	"PerpScan/internal/query"
	"PerpScan/internal/store"
)

// Config for the HTTP API server
type Config struct {
	Addr string
}

// Server exposes the read-side HTTP/JSON API: candles for charts,
// positions and per-entity lookups for analytics, status for
// freshness monitoring.
type Server struct {
	config  Config
	svc     *query.Service
	health  *observability.HealthChecker
	metrics *observability.Metrics
	log     zerolog.Logger
	router  *mux.Router
}

func NewServer(cfg Config, svc *query.Service, health *observability.HealthChecker, metrics *observability.Metrics, log zerolog.Logger) *Server {
	s := &Server{
		config:  cfg,
		svc:     svc,
		health:  health,
		metrics: metrics,
		log:     log,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.health.LivenessHandler).Methods("GET")
	s.router.HandleFunc("/readyz", s.health.ReadinessHandler).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.requestIDMiddleware)

	api.HandleFunc("/candles", s.instrument("candles", s.handleCandles)).Methods("GET")
	api.HandleFunc("/candles/latest", s.instrument("candles_latest", s.handleLatestCandle)).Methods("GET")
	api.HandleFunc("/positions", s.instrument("positions", s.handleOpenPositions)).Methods("GET")
	api.HandleFunc("/positions/{trader}", s.instrument("position", s.handlePosition)).Methods("GET")
	api.HandleFunc("/orders/{id}", s.instrument("order", s.handleOrder)).Methods("GET")
	api.HandleFunc("/trades/{id}", s.instrument("trade", s.handleTrade)).Methods("GET")
	api.HandleFunc("/margin-events/{id}", s.instrument("margin_event", s.handleMarginEvent)).Methods("GET")
	api.HandleFunc("/funding-events/{id}", s.instrument("funding_event", s.handleFundingEvent)).Methods("GET")
	api.HandleFunc("/liquidations/{id}", s.instrument("liquidation", s.handleLiquidation)).Methods("GET")
	api.HandleFunc("/status", s.instrument("status", s.handleStatus)).Methods("GET")
}

// CORS middleware: the chart frontend is served from another origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r)
	})
}

// instrument wraps a handler with per-endpoint request counting and
// latency observation.
func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.QueryRequests.WithLabelValues(endpoint).Inc()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		if rec.status >= 400 {
			s.metrics.QueryErrors.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
		}
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Run starts the API server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	handler := corsMiddleware(s.router)
	server := &http.Server{
		Addr:         s.config.Addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", s.config.Addr).Msg("HTTP API listening")
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Router returns the HTTP router for testing.
func (s *Server) Router() *mux.Router {
	return s.router
}

// --- Handlers ---

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	resolution := r.URL.Query().Get("resolution")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", raw))
			return
		}
		limit = n
	}

	candles, err := s.svc.Candles(r.Context(), resolution, limit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := make([]CandleResponse, 0, len(candles))
	for _, c := range candles {
		resp = append(resp, toCandleResponse(c))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleLatestCandle(w http.ResponseWriter, r *http.Request) {
	lc, err := s.svc.LatestCandle(r.Context())
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "no trades indexed yet")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, LatestCandleResponse{
		ClosePrice: lc.ClosePrice.String(),
		Timestamp:  lc.Timestamp,
	})
}

func (s *Server) handleOpenPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.svc.OpenPositions(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		resp = append(resp, toPositionResponse(p))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	trader := mux.Vars(r)["trader"]
	p, err := s.svc.Position(r.Context(), trader)
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "position not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toPositionResponse(p))
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.Order(r.Context(), mux.Vars(r)["id"])
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Trade(r.Context(), mux.Vars(r)["id"])
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "trade not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toTradeResponse(t))
}

func (s *Server) handleMarginEvent(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.MarginEvent(r.Context(), mux.Vars(r)["id"])
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "margin event not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toMarginEventResponse(m))
}

func (s *Server) handleFundingEvent(w http.ResponseWriter, r *http.Request) {
	f, err := s.svc.FundingEvent(r.Context(), mux.Vars(r)["id"])
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "funding event not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toFundingEventResponse(f))
}

func (s *Server) handleLiquidation(w http.ResponseWriter, r *http.Request) {
	l, err := s.svc.Liquidation(r.Context(), mux.Vars(r)["id"])
	if err == store.ErrNotFound {
		s.writeError(w, http.StatusNotFound, "liquidation not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toLiquidationResponse(l))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cp, err := s.svc.Checkpoint(r.Context())
	if err == store.ErrNotFound {
		// Fresh database: nothing applied yet.
		s.writeJSON(w, http.StatusOK, StatusResponse{Synced: false})
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, StatusResponse{
		TxHash:         cp.TxHash,
		LogIndex:       cp.LogIndex,
		BlockTimestamp: cp.BlockTimestamp,
		EventsApplied:  cp.EventsApplied,
		Synced:         s.health.IsReady(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, ErrorResponse{Message: message})
}
