package server_test

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PerpScan/internal/entity"
	"PerpScan/internal/observability"
	"PerpScan/internal/query"
	"PerpScan/internal/server"
	"PerpScan/internal/store"
)

// Prometheus collectors register globally, so the whole test binary
// shares one Metrics instance.
var testMetrics = observability.NewMetrics()

func newTestServer(t *testing.T) (*server.Server, *store.MemoryStore, *observability.HealthChecker) {
	t.Helper()
	st := store.NewMemoryStore()
	health := observability.NewHealthChecker()
	srv := server.NewServer(
		server.Config{Addr: ":0"},
		query.NewService(st),
		health,
		testMetrics,
		zerolog.Nop(),
	)
	return srv, st, health
}

func get(t *testing.T, srv *server.Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, health := newTestServer(t)

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	health.SetReady(true)
	rec = get(t, srv, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCandlesEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)

	c := &entity.Candle{
		ID:          entity.CandleID(entity.Resolution1m, 1700000040),
		Resolution:  entity.Resolution1m,
		BucketStart: 1700000040,
		OpenPrice:   big.NewInt(2000),
		HighPrice:   big.NewInt(2100),
		LowPrice:    big.NewInt(1900),
		ClosePrice:  big.NewInt(2050),
		Volume:      big.NewInt(9),
	}
	require.NoError(t, st.PutCandle(context.Background(), c))

	rec := get(t, srv, "/api/v1/candles?limit=10")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []server.CandleResponse
	decode(t, rec, &resp)
	require.Len(t, resp, 1)
	assert.Equal(t, "2000", resp[0].OpenPrice)
	assert.Equal(t, "2100", resp[0].HighPrice)
	assert.Equal(t, "1900", resp[0].LowPrice)
	assert.Equal(t, "2050", resp[0].ClosePrice)
	assert.Equal(t, "9", resp[0].Volume)
	assert.Equal(t, int64(1700000040), resp[0].BucketStart)
}

func TestCandlesEndpoint_BadLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/v1/candles?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCandlesEndpoint_UnsupportedResolution(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/v1/candles?resolution=5m")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLatestCandleEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)

	rec := get(t, srv, "/api/v1/candles/latest")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, st.PutLatestCandle(context.Background(), &entity.LatestCandle{
		ID:         entity.LatestCandleID,
		ClosePrice: big.NewInt(2050),
		Timestamp:  1700000042,
	}))

	rec = get(t, srv, "/api/v1/candles/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp server.LatestCandleResponse
	decode(t, rec, &resp)
	assert.Equal(t, "2050", resp.ClosePrice)
	assert.Equal(t, int64(1700000042), resp.Timestamp)
}

func TestPositionEndpoints(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, st.PutPosition(ctx, &entity.Position{
		ID: "0xalice", Trader: "0xalice", Size: big.NewInt(5), EntryPrice: big.NewInt(2000),
	}))
	require.NoError(t, st.PutPosition(ctx, &entity.Position{
		ID: "0xflat", Trader: "0xflat", Size: big.NewInt(0), EntryPrice: big.NewInt(2000),
	}))

	rec := get(t, srv, "/api/v1/positions")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []server.PositionResponse
	decode(t, rec, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "0xalice", list[0].Trader)
	assert.Equal(t, "5", list[0].Size)

	rec = get(t, srv, "/api/v1/positions/0xalice")
	require.Equal(t, http.StatusOK, rec.Code)
	var one server.PositionResponse
	decode(t, rec, &one)
	assert.Equal(t, "2000", one.EntryPrice)

	rec = get(t, srv, "/api/v1/positions/0xnobody")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderEndpoint(t *testing.T) {
	srv, st, _ := newTestServer(t)

	require.NoError(t, st.PutOrder(context.Background(), &entity.Order{
		ID:            "42",
		Trader:        "0xalice",
		IsBuy:         true,
		Price:         big.NewInt(2000),
		InitialAmount: big.NewInt(10),
		Amount:        big.NewInt(6),
		Status:        entity.OrderStatusOpen,
		Timestamp:     1700000000,
	}))

	rec := get(t, srv, "/api/v1/orders/42")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp server.OrderResponse
	decode(t, rec, &resp)
	assert.Equal(t, "10", resp.InitialAmount)
	assert.Equal(t, "6", resp.Amount)
	assert.Equal(t, "OPEN", resp.Status)

	rec = get(t, srv, "/api/v1/orders/404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFundingEventEndpoint_Variants(t *testing.T) {
	srv, st, _ := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, st.PutFundingEvent(ctx, &entity.FundingEvent{
		ID:        "0xa-0",
		Detail:    entity.GlobalFundingUpdate{CumulativeRate: big.NewInt(123)},
		Timestamp: 1700000000,
	}))
	require.NoError(t, st.PutFundingEvent(ctx, &entity.FundingEvent{
		ID:        "0xb-0",
		Detail:    entity.UserFundingPayment{Trader: "0xalice", Payment: big.NewInt(-42)},
		Timestamp: 1700000060,
	}))

	rec := get(t, srv, "/api/v1/funding-events/0xa-0")
	require.Equal(t, http.StatusOK, rec.Code)
	var global server.FundingEventResponse
	decode(t, rec, &global)
	assert.Equal(t, string(entity.FundingGlobalUpdate), global.Kind)
	assert.Equal(t, "123", global.CumulativeRate)
	assert.Empty(t, global.Trader)
	assert.Empty(t, global.Payment)

	rec = get(t, srv, "/api/v1/funding-events/0xb-0")
	require.Equal(t, http.StatusOK, rec.Code)
	var user server.FundingEventResponse
	decode(t, rec, &user)
	assert.Equal(t, string(entity.FundingUserPaid), user.Kind)
	assert.Equal(t, "0xalice", user.Trader)
	assert.Equal(t, "-42", user.Payment)
	assert.Empty(t, user.CumulativeRate)
}

func TestStatusEndpoint(t *testing.T) {
	srv, st, health := newTestServer(t)

	// Fresh database: no checkpoint yet.
	rec := get(t, srv, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var fresh server.StatusResponse
	decode(t, rec, &fresh)
	assert.False(t, fresh.Synced)
	assert.Equal(t, int64(0), fresh.EventsApplied)

	require.NoError(t, st.PutCheckpoint(context.Background(), &entity.Checkpoint{
		TxHash:         "0xabc",
		LogIndex:       2,
		BlockTimestamp: 1700000000,
		EventsApplied:  17,
	}))
	health.SetReady(true)

	rec = get(t, srv, "/api/v1/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp server.StatusResponse
	decode(t, rec, &resp)
	assert.Equal(t, "0xabc", resp.TxHash)
	assert.Equal(t, uint32(2), resp.LogIndex)
	assert.Equal(t, int64(17), resp.EventsApplied)
	assert.True(t, resp.Synced)
}

func TestRequestIDHeader(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := get(t, srv, "/api/v1/status")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	req.Header.Set("X-Request-ID", "req-123")
	echo := httptest.NewRecorder()
	srv.Router().ServeHTTP(echo, req)
	assert.Equal(t, "req-123", echo.Header().Get("X-Request-ID"))
}
