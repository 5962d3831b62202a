package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// executeMakerTaker rests a limit buy on Polymarket, waits for fills up to
// the maker timeout, then hedges whatever filled with a Kalshi market order.
func (e *Executor) executeMakerTaker(ctx context.Context, opp domain.ArbitrageOpportunity) domain.TradeResult {
	res, err := e.polymarket.PlaceLimitOrder(ctx,
		opp.Pair.PolymarketTokenID, domain.OrderSideBuy, opp.PolymarketPrice, opp.Quantity)
	if err != nil {
		return failure(opp.ID, fmt.Sprintf("maker leg rejected: %v", err))
	}
	if !res.Success {
		return failure(opp.ID, "maker leg rejected: "+res.Message)
	}

	e.track(res.OrderID, domain.VenuePolymarket)

	filled, avgPrice := res.FilledQuantity, res.AvgFillPrice
	if res.Status != domain.OrderStatusFilled {
		filled, avgPrice = e.awaitMakerFill(ctx, res.OrderID, filled, avgPrice)
	}
	e.untrack(res.OrderID)

	if filled <= 0 {
		return failure(opp.ID, "maker order expired unfilled")
	}

	e.log.Info("maker leg filled",
		slog.String("order_id", res.OrderID),
		slog.Float64("filled", filled),
		slog.Float64("requested", opp.Quantity),
		slog.Float64("avg_price", avgPrice))

	// Hedge exactly what filled, never the requested quantity.
	hedge, err := e.kalshi.PlaceMarketOrder(ctx,
		opp.Pair.KalshiTicker, domain.OrderSideBuy, filled)
	if err != nil || hedge.FilledQuantity <= 0 {
		msg := "hedge leg failed"
		if err != nil {
			msg = fmt.Sprintf("hedge leg failed: %v", err)
		}
		e.panicSell(ctx, domain.VenuePolymarket, opp.Pair.PolymarketTokenID, filled)
		return compensated(opp.ID, msg)
	}

	matched := filled
	msg := ""
	if hedge.FilledQuantity < filled {
		// Partial hedge: keep the matched core, unwind the excess.
		matched = hedge.FilledQuantity
		excess := filled - matched
		e.panicSell(ctx, domain.VenuePolymarket, opp.Pair.PolymarketTokenID, excess)
		msg = fmt.Sprintf("hedge filled %.0f of %.0f; excess unwound", matched, filled)
	}

	pos := buildPosition(opp, avgPrice, hedge.AvgFillPrice, matched)
	return domain.TradeResult{
		OpportunityID: opp.ID,
		Success:       true,
		Position:      pos,
		Message:       msg,
		ExecutedAt:    time.Now(),
	}
}

// awaitMakerFill polls the resting order until it fills or the maker timeout
// elapses, then cancels the remainder. It returns the final filled quantity
// and average price, including fills that land during cancellation.
func (e *Executor) awaitMakerFill(ctx context.Context, orderID string, filled, avgPrice float64) (float64, float64) {
	deadline := time.NewTimer(e.cfg.MakerTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return e.cancelAndSettle(orderID, filled, avgPrice)
		case <-deadline.C:
			e.log.Info("maker timeout, cancelling remainder",
				slog.String("order_id", orderID),
				slog.Float64("filled", filled))
			return e.cancelAndSettle(orderID, filled, avgPrice)
		case <-ticker.C:
			order, err := e.polymarket.GetOrder(ctx, orderID)
			if err != nil {
				e.log.Warn("maker poll failed",
					slog.String("order_id", orderID),
					slog.String("error", err.Error()))
				continue
			}
			if order.FilledQuantity > 0 {
				filled, avgPrice = order.FilledQuantity, order.AvgFillPrice
			}
			if order.Status == domain.OrderStatusFilled {
				return filled, avgPrice
			}
			if order.Status.Terminal() {
				// Cancelled or failed externally; keep whatever filled.
				return filled, avgPrice
			}
		}
	}
}

// cancelAndSettle cancels the resting order and re-reads it once, since a
// fill can race the cancel. It uses a fresh context so settlement still
// happens during shutdown.
func (e *Executor) cancelAndSettle(orderID string, filled, avgPrice float64) (float64, float64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.polymarket.CancelOrder(ctx, orderID); err != nil {
		e.log.Warn("maker cancel failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()))
	}

	order, err := e.polymarket.GetOrder(ctx, orderID)
	if err != nil {
		return filled, avgPrice
	}
	if order.FilledQuantity > filled {
		return order.FilledQuantity, order.AvgFillPrice
	}
	return filled, avgPrice
}
