package handler

import (
	"net/http"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// PositionLister exposes the full open-position list to the API.
type PositionLister interface {
	Positions() []domain.ArbitragePosition
}

// PositionHandler serves the open positions held by the engine.
type PositionHandler struct {
	ledger PositionLister
}

// NewPositionHandler creates a PositionHandler backed by the given ledger.
func NewPositionHandler(ledger PositionLister) *PositionHandler {
	return &PositionHandler{ledger: ledger}
}

type positionResponse struct {
	ID                string  `json:"id"`
	EventID           string  `json:"event_id"`
	Outcome           string  `json:"outcome"`
	PolymarketTokenID string  `json:"pm_token_id"`
	KalshiTicker      string  `json:"kalshi_ticker"`
	Mode              string  `json:"mode"`
	PolymarketPrice   float64 `json:"pm_price"`
	KalshiPrice       float64 `json:"kalshi_price"`
	MatchedQuantity   float64 `json:"matched_quantity"`
	EntryCost         float64 `json:"entry_cost"`
	ExpectedProfit    float64 `json:"expected_profit"`
	OpenedAt          string  `json:"opened_at"`
}

// ListPositions responds with all open positions, oldest first.
// GET /api/positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions := h.ledger.Positions()
	out := make([]positionResponse, 0, len(positions))
	for _, p := range positions {
		out = append(out, positionResponse{
			ID:                p.ID,
			EventID:           p.Pair.EventID,
			Outcome:           p.Pair.Outcome,
			PolymarketTokenID: p.Pair.PolymarketTokenID,
			KalshiTicker:      p.Pair.KalshiTicker,
			Mode:              string(p.Mode),
			PolymarketPrice:   p.PolymarketPrice,
			KalshiPrice:       p.KalshiPrice,
			MatchedQuantity:   p.MatchedQuantity,
			EntryCost:         p.EntryCost,
			ExpectedProfit:    p.ExpectedProfit,
			OpenedAt:          p.OpenedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"positions": out,
		"count":     len(out),
	})
}
