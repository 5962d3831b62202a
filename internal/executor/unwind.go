package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// UnwindPosition closes both legs of an open position with concurrent market
// sells. Success requires both legs to sell; a one-sided unwind reports the
// compensation flag so the operator can reconcile the remainder.
func (e *Executor) UnwindPosition(ctx context.Context, pos domain.ArbitragePosition) domain.TradeResult {
	e.log.Info("unwinding position",
		slog.String("position_id", pos.ID),
		slog.String("event", pos.Pair.EventID),
		slog.Float64("quantity", pos.MatchedQuantity))

	var pm, kl legOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pm = e.sellLeg(gctx, e.polymarket, pos.Pair.PolymarketTokenID, pos.MatchedQuantity)
		return nil
	})
	g.Go(func() error {
		kl = e.sellLeg(gctx, e.kalshi, pos.Pair.KalshiTicker, pos.MatchedQuantity)
		return nil
	})
	_ = g.Wait()

	switch {
	case pm.filled <= 0 && kl.filled <= 0:
		return failure(pos.ID, fmt.Sprintf("unwind failed on both legs (polymarket: %v; kalshi: %v)",
			legError(pm), legError(kl)))

	case pm.filled <= 0 || kl.filled <= 0:
		return compensated(pos.ID, fmt.Sprintf(
			"unwind one-sided (polymarket sold %.0f, kalshi sold %.0f); manual reconciliation required",
			pm.filled, kl.filled))
	}

	proceeds := pm.avgPrice*pm.filled + kl.avgPrice*kl.filled
	return domain.TradeResult{
		OpportunityID: pos.ID,
		Success:       true,
		Position:      &pos,
		Message:       fmt.Sprintf("unwound for %.2f against entry cost %.2f", proceeds, pos.EntryCost),
		ExecutedAt:    time.Now(),
	}
}

func (e *Executor) sellLeg(ctx context.Context, client domain.VenueClient, contractID string, quantity float64) legOutcome {
	res, err := client.PlaceMarketOrder(ctx, contractID, domain.OrderSideSell, quantity)
	if err != nil {
		return legOutcome{err: err}
	}
	if !res.Success {
		return legOutcome{err: fmt.Errorf("order rejected: %s", res.Message)}
	}
	return legOutcome{filled: res.FilledQuantity, avgPrice: res.AvgFillPrice}
}
