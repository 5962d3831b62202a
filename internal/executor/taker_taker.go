package executor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

type legOutcome struct {
	filled   float64
	avgPrice float64
	err      error
}

// executeTakerTaker submits market orders on both venues concurrently and
// reconciles the two outcomes. A failure on one leg never blocks observing
// the other's result.
func (e *Executor) executeTakerTaker(ctx context.Context, opp domain.ArbitrageOpportunity) domain.TradeResult {
	var pm, kl legOutcome

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pm = e.takerLeg(gctx, e.polymarket, opp.Pair.PolymarketTokenID, opp.Quantity)
		return nil
	})
	g.Go(func() error {
		kl = e.takerLeg(gctx, e.kalshi, opp.Pair.KalshiTicker, opp.Quantity)
		return nil
	})
	_ = g.Wait() // legs record their own errors

	switch {
	case pm.filled <= 0 && kl.filled <= 0:
		return failure(opp.ID, fmt.Sprintf("both legs unfilled (polymarket: %v; kalshi: %v)",
			legError(pm), legError(kl)))

	case pm.filled > 0 && kl.filled <= 0:
		e.panicSell(ctx, domain.VenuePolymarket, opp.Pair.PolymarketTokenID, pm.filled)
		return compensated(opp.ID, fmt.Sprintf("kalshi leg unfilled (%v), polymarket fill unwound", legError(kl)))

	case kl.filled > 0 && pm.filled <= 0:
		e.panicSell(ctx, domain.VenueKalshi, opp.Pair.KalshiTicker, kl.filled)
		return compensated(opp.ID, fmt.Sprintf("polymarket leg unfilled (%v), kalshi fill unwound", legError(pm)))
	}

	// Both filled. Keep the matched core; unwind any excess on the larger
	// leg so no unhedged exposure survives the trade.
	matched := pm.filled
	if kl.filled < matched {
		matched = kl.filled
	}

	msg := ""
	switch {
	case pm.filled > matched:
		e.panicSell(ctx, domain.VenuePolymarket, opp.Pair.PolymarketTokenID, pm.filled-matched)
		msg = fmt.Sprintf("polymarket overfilled by %.0f; excess unwound", pm.filled-matched)
	case kl.filled > matched:
		e.panicSell(ctx, domain.VenueKalshi, opp.Pair.KalshiTicker, kl.filled-matched)
		msg = fmt.Sprintf("kalshi overfilled by %.0f; excess unwound", kl.filled-matched)
	}

	pos := buildPosition(opp, pm.avgPrice, kl.avgPrice, matched)
	return domain.TradeResult{
		OpportunityID: opp.ID,
		Success:       true,
		Position:      pos,
		Message:       msg,
		ExecutedAt:    time.Now(),
	}
}

// takerLeg places one market buy and normalizes the outcome. Transport
// errors become a zero-fill outcome; they never propagate further.
func (e *Executor) takerLeg(ctx context.Context, client domain.VenueClient, contractID string, quantity float64) legOutcome {
	res, err := client.PlaceMarketOrder(ctx, contractID, domain.OrderSideBuy, quantity)
	if err != nil {
		return legOutcome{err: err}
	}
	if !res.Success {
		return legOutcome{err: fmt.Errorf("order rejected: %s", res.Message)}
	}
	return legOutcome{filled: res.FilledQuantity, avgPrice: res.AvgFillPrice}
}

func legError(l legOutcome) string {
	if l.err != nil {
		return l.err.Error()
	}
	return "no fill"
}
