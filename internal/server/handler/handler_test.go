package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

type fakeLedger struct {
	positions []domain.ArbitragePosition
}

func (f *fakeLedger) Positions() []domain.ArbitragePosition { return f.positions }
func (f *fakeLedger) Count() int                            { return len(f.positions) }

func (f *fakeLedger) OpenValue() float64 {
	var v float64
	for _, p := range f.positions {
		v += p.EntryCost
	}
	return v
}

type fakeTrades struct {
	recs []domain.TradeRecord
	err  error
}

func (f *fakeTrades) Recent(_ context.Context, limit int) ([]domain.TradeRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > len(f.recs) {
		limit = len(f.recs)
	}
	return f.recs[:limit], nil
}

func (f *fakeTrades) Stats(context.Context) (domain.TradeStats, error) {
	if f.err != nil {
		return domain.TradeStats{}, f.err
	}
	return domain.TradeStats{Trades: 4, Wins: 3, TotalProfit: 12.5, AvgProfit: 3.125}, nil
}

func (f *fakeTrades) Report(context.Context) (string, error) {
	return "Trades: 4", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	h := NewStatusHandler("arbitrage", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestStatusIncludesPositionSummary(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.ArbitragePosition{
		{ID: "p1", EntryCost: 42.5},
		{ID: "p2", EntryCost: 10},
	}}
	h := NewStatusHandler("monitor", ledger)
	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "monitor", body["mode"])
	assert.EqualValues(t, 2, body["open_positions"])
	assert.InDelta(t, 52.5, body["open_value"].(float64), 1e-9)
}

func TestListPositions(t *testing.T) {
	ledger := &fakeLedger{positions: []domain.ArbitragePosition{{
		ID: "pos-1",
		Pair: domain.ContractPair{
			EventID:           "evt-1",
			Outcome:           "yes",
			PolymarketTokenID: "tok-1",
			KalshiTicker:      "KX-TEST",
		},
		Mode:            domain.ModeTakerTaker,
		PolymarketPrice: 0.40,
		KalshiPrice:     0.45,
		MatchedQuantity: 100,
		EntryCost:       85,
		ExpectedProfit:  15,
		OpenedAt:        time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}}}
	h := NewPositionHandler(ledger)
	rec := httptest.NewRecorder()
	h.ListPositions(rec, httptest.NewRequest(http.MethodGet, "/api/positions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["count"])
	positions := body["positions"].([]any)
	first := positions[0].(map[string]any)
	assert.Equal(t, "evt-1", first["event_id"])
	assert.Equal(t, "KX-TEST", first["kalshi_ticker"])
	assert.Equal(t, "T2T", first["mode"])
	assert.Equal(t, "2026-05-01T12:00:00Z", first["opened_at"])
}

func TestListTradesHonorsLimit(t *testing.T) {
	trades := &fakeTrades{recs: []domain.TradeRecord{
		{ID: "t1", Success: true}, {ID: "t2"}, {ID: "t3"},
	}}
	h := NewTradeHandler(trades, testLogger())
	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decodeBody(t, rec)["count"])
}

func TestListTradesStoreError(t *testing.T) {
	h := NewTradeHandler(&fakeTrades{err: errors.New("db down")}, testLogger())
	rec := httptest.NewRecorder()
	h.ListTrades(rec, httptest.NewRequest(http.MethodGet, "/api/trades", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "failed to load trades")
}

func TestGetReport(t *testing.T) {
	h := NewTradeHandler(&fakeTrades{}, testLogger())
	rec := httptest.NewRecorder()
	h.GetReport(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 4, body["trades"])
	assert.InDelta(t, 0.75, body["win_rate"].(float64), 1e-9)
	assert.Contains(t, body["report"], "Trades: 4")
}
