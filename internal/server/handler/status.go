package handler

import (
	"net/http"
	"time"
)

// PositionSource exposes the in-memory position ledger to the API.
type PositionSource interface {
	Count() int
	OpenValue() float64
}

// StatusHandler serves liveness and engine-status endpoints.
type StatusHandler struct {
	mode      string
	startedAt time.Time
	positions PositionSource
}

// NewStatusHandler creates a StatusHandler for the given run mode.
func NewStatusHandler(mode string, positions PositionSource) *StatusHandler {
	return &StatusHandler{
		mode:      mode,
		startedAt: time.Now().UTC(),
		positions: positions,
	}
}

// Health responds with a simple JSON status indicating the server is alive.
// GET /health
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports the run mode, uptime, and open-position summary.
// GET /api/status
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"mode":       h.mode,
		"started_at": h.startedAt.Format(time.RFC3339),
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
	}
	if h.positions != nil {
		resp["open_positions"] = h.positions.Count()
		resp["open_value"] = h.positions.OpenValue()
	}
	writeJSON(w, http.StatusOK, resp)
}
