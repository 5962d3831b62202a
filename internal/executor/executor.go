// Package executor drives one arbitrage opportunity to a terminal trade
// result, including the compensating unwind when only one leg fills.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// Config holds the execution timing parameters.
type Config struct {
	// MakerTimeout bounds how long a resting maker order may wait for fills.
	MakerTimeout time.Duration
	// PollInterval is the delay between fill-status polls on a resting order.
	PollInterval time.Duration
}

// Executor places the two legs of an opportunity and reconciles their fills.
// It owns every order it creates: on every exit path a resting order is
// either confirmed terminal or actively cancelled.
type Executor struct {
	polymarket domain.VenueClient
	kalshi     domain.VenueClient
	cfg        Config
	log        *slog.Logger

	mu     sync.Mutex
	active map[string]domain.Venue // resting order ID -> venue
}

func New(pm, kl domain.VenueClient, cfg Config, log *slog.Logger) *Executor {
	return &Executor{
		polymarket: pm,
		kalshi:     kl,
		cfg:        cfg,
		log:        log.With(slog.String("component", "executor")),
		active:     make(map[string]domain.Venue),
	}
}

// Execute runs one opportunity to completion.
func (e *Executor) Execute(ctx context.Context, opp domain.ArbitrageOpportunity) domain.TradeResult {
	e.log.Info("executing opportunity",
		slog.String("opportunity_id", opp.ID),
		slog.String("event", opp.Pair.EventID),
		slog.String("mode", string(opp.Mode)),
		slog.Float64("quantity", opp.Quantity),
		slog.Float64("profit_rate", opp.ProfitRate),
	)

	switch opp.Mode {
	case domain.ModeMakerTaker:
		return e.executeMakerTaker(ctx, opp)
	case domain.ModeTakerTaker:
		return e.executeTakerTaker(ctx, opp)
	default:
		return failure(opp.ID, fmt.Sprintf("unknown execution mode %q", opp.Mode))
	}
}

// CancelAllOrders cancels every resting order the executor still tracks.
// Failures are logged per order and do not stop the sweep.
func (e *Executor) CancelAllOrders(ctx context.Context) {
	e.mu.Lock()
	orders := make(map[string]domain.Venue, len(e.active))
	for id, v := range e.active {
		orders[id] = v
	}
	e.mu.Unlock()

	for id, venue := range orders {
		client := e.clientFor(venue)
		if err := client.CancelOrder(ctx, id); err != nil {
			e.log.Error("cancel on shutdown failed",
				slog.String("order_id", id),
				slog.String("venue", string(venue)),
				slog.String("error", err.Error()))
			continue
		}
		e.untrack(id)
		e.log.Info("order cancelled on shutdown",
			slog.String("order_id", id),
			slog.String("venue", string(venue)))
	}
}

func (e *Executor) clientFor(venue domain.Venue) domain.VenueClient {
	if venue == domain.VenueKalshi {
		return e.kalshi
	}
	return e.polymarket
}

func (e *Executor) track(orderID string, venue domain.Venue) {
	e.mu.Lock()
	e.active[orderID] = venue
	e.mu.Unlock()
}

func (e *Executor) untrack(orderID string) {
	e.mu.Lock()
	delete(e.active, orderID)
	e.mu.Unlock()
}

// panicSell closes an accidentally one-sided fill with a best-effort market
// sell. Its own failure is logged, never raised.
func (e *Executor) panicSell(ctx context.Context, venue domain.Venue, contractID string, quantity float64) bool {
	e.log.Warn("panic sell triggered",
		slog.String("venue", string(venue)),
		slog.String("contract", contractID),
		slog.Float64("quantity", quantity))

	res, err := e.clientFor(venue).PlaceMarketOrder(ctx, contractID, domain.OrderSideSell, quantity)
	if err != nil {
		e.log.Error("panic sell failed",
			slog.String("venue", string(venue)),
			slog.String("contract", contractID),
			slog.String("error", err.Error()))
		return false
	}
	if res.FilledQuantity <= 0 {
		e.log.Error("panic sell placed but did not fill",
			slog.String("venue", string(venue)),
			slog.String("order_id", res.OrderID))
		return false
	}

	e.log.Info("panic sell filled",
		slog.String("venue", string(venue)),
		slog.Float64("quantity", res.FilledQuantity),
		slog.Float64("avg_price", res.AvgFillPrice))
	return true
}

// buildPosition constructs the position for a matched two-legged fill.
// Entry prices use actual average fills, falling back to the planned prices.
func buildPosition(opp domain.ArbitrageOpportunity, pmPrice, klPrice, matched float64) *domain.ArbitragePosition {
	if pmPrice <= 0 {
		pmPrice = opp.PolymarketPrice
	}
	if klPrice <= 0 {
		klPrice = opp.KalshiPrice
	}

	return &domain.ArbitragePosition{
		ID:              uuid.New().String(),
		Pair:            opp.Pair,
		Mode:            opp.Mode,
		PolymarketPrice: pmPrice,
		KalshiPrice:     klPrice,
		MatchedQuantity: matched,
		EntryCost:       (pmPrice + klPrice) * matched,
		ExpectedProfit:  (1 - pmPrice - klPrice) * matched,
		OpenedAt:        time.Now(),
	}
}

func failure(oppID, msg string) domain.TradeResult {
	return domain.TradeResult{
		OpportunityID: oppID,
		Success:       false,
		Message:       msg,
		ExecutedAt:    time.Now(),
	}
}

func compensated(oppID, msg string) domain.TradeResult {
	r := failure(oppID, msg)
	r.RequiresPanicSell = true
	return r
}
