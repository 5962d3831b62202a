package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// TradeSource exposes recorded trade history to the API.
type TradeSource interface {
	Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error)
	Stats(ctx context.Context) (domain.TradeStats, error)
	Report(ctx context.Context) (string, error)
}

// TradeHandler serves the trade history and the aggregate report.
type TradeHandler struct {
	trades TradeSource
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler backed by the given trade source.
func NewTradeHandler(trades TradeSource, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger.With(slog.String("handler", "trades")),
	}
}

type tradeResponse struct {
	ID          string  `json:"id"`
	EventID     string  `json:"event_id"`
	Outcome     string  `json:"outcome"`
	Mode        string  `json:"mode"`
	Kind        string  `json:"kind"`
	Quantity    float64 `json:"quantity"`
	PMPrice     float64 `json:"pm_price"`
	KalshiPrice float64 `json:"kalshi_price"`
	Profit      float64 `json:"profit"`
	Success     bool    `json:"success"`
	Message     string  `json:"message,omitempty"`
	ExecutedAt  string  `json:"executed_at"`
}

// ListTrades responds with the most recent trades, newest first.
// GET /api/trades?limit=N
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := parseLimit(r, 50, 500)

	recs, err := h.trades.Recent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list trades failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load trades")
		return
	}

	out := make([]tradeResponse, 0, len(recs))
	for _, t := range recs {
		out = append(out, tradeResponse{
			ID:          t.ID,
			EventID:     t.EventID,
			Outcome:     t.Outcome,
			Mode:        string(t.Mode),
			Kind:        string(t.Kind),
			Quantity:    t.Quantity,
			PMPrice:     t.PolymarketPrice,
			KalshiPrice: t.KalshiPrice,
			Profit:      t.Profit,
			Success:     t.Success,
			Message:     t.Message,
			ExecutedAt:  t.ExecutedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trades": out,
		"count":  len(out),
	})
}

// GetReport responds with aggregate trade statistics plus the rendered
// text report.
// GET /api/report
func (h *TradeHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	stats, err := h.trades.Stats(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "trade stats failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to load trade stats")
		return
	}

	report, err := h.trades.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"trades":       stats.Trades,
		"wins":         stats.Wins,
		"win_rate":     stats.WinRate(),
		"total_profit": stats.TotalProfit,
		"avg_profit":   stats.AvgProfit,
		"report":       report,
	})
}
