package executor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

type placedOrder struct {
	contractID string
	side       domain.OrderSide
	typ        domain.OrderType
	price      float64
	quantity   float64
}

// fakeVenue scripts order outcomes per side and records every placement.
type fakeVenue struct {
	venue domain.Venue

	mu     sync.Mutex
	placed []placedOrder

	limitResult domain.OrderResult
	limitErr    error

	marketBuyResult domain.OrderResult
	marketBuyErr    error

	// sells (panic unwinds, exits) fill in full unless overridden
	marketSellResult *domain.OrderResult
	marketSellErr    error

	orderStates []domain.Order // consumed by successive GetOrder calls
	cancelled   []string
}

func (f *fakeVenue) Venue() domain.Venue { return f.venue }

func (f *fakeVenue) PlaceLimitOrder(_ context.Context, contractID string, side domain.OrderSide, price, quantity float64) (domain.OrderResult, error) {
	f.record(placedOrder{contractID, side, domain.OrderTypeLimit, price, quantity})
	return f.limitResult, f.limitErr
}

func (f *fakeVenue) PlaceMarketOrder(_ context.Context, contractID string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	f.record(placedOrder{contractID, side, domain.OrderTypeMarket, 0, quantity})

	if side == domain.OrderSideSell {
		if f.marketSellErr != nil {
			return domain.OrderResult{}, f.marketSellErr
		}
		if f.marketSellResult != nil {
			return *f.marketSellResult, nil
		}
		return domain.OrderResult{
			Success:        true,
			OrderID:        "sell-1",
			Status:         domain.OrderStatusFilled,
			FilledQuantity: quantity,
			AvgFillPrice:   0.5,
		}, nil
	}

	return f.marketBuyResult, f.marketBuyErr
}

func (f *fakeVenue) CancelOrder(_ context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, orderID)
	return nil
}

func (f *fakeVenue) GetOrder(_ context.Context, orderID string) (domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.orderStates) == 0 {
		return domain.Order{ID: orderID, Status: domain.OrderStatusOpen}, nil
	}
	o := f.orderStates[0]
	if len(f.orderStates) > 1 {
		f.orderStates = f.orderStates[1:]
	}
	return o, nil
}

func (f *fakeVenue) record(p placedOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.placed = append(f.placed, p)
}

func (f *fakeVenue) sells() []placedOrder {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []placedOrder
	for _, p := range f.placed {
		if p.side == domain.OrderSideSell {
			out = append(out, p)
		}
	}
	return out
}

var _ domain.VenueClient = (*fakeVenue)(nil)

func filledResult(id string, qty, avg float64) domain.OrderResult {
	return domain.OrderResult{
		Success:        true,
		OrderID:        id,
		Status:         domain.OrderStatusFilled,
		FilledQuantity: qty,
		AvgFillPrice:   avg,
	}
}

func testOpportunity(mode domain.ExecutionMode) domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID: "opp-1",
		Pair: domain.ContractPair{
			EventID:           "fed-hike-sep",
			Outcome:           "yes",
			PolymarketTokenID: "tok-1",
			KalshiTicker:      "FED-25SEP-HIKE",
		},
		Mode:            mode,
		PolymarketPrice: 0.40,
		KalshiPrice:     0.45,
		Quantity:        100,
		ProfitRate:      0.17,
	}
}

func newTestExecutor(pm, kl *fakeVenue) *Executor {
	return New(pm, kl, Config{
		MakerTimeout: 50 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestTakerTakerBothFill(t *testing.T) {
	pm := &fakeVenue{venue: domain.VenuePolymarket, marketBuyResult: filledResult("pm-1", 100, 0.41)}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("kl-1", 100, 0.46)}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeTakerTaker))

	assert.True(t, res.Success)
	assert.False(t, res.RequiresPanicSell)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 100, res.Position.MatchedQuantity, 1e-9)
	assert.InDelta(t, 0.41, res.Position.PolymarketPrice, 1e-9)
	assert.InDelta(t, 0.46, res.Position.KalshiPrice, 1e-9)
	assert.InDelta(t, (1-0.41-0.46)*100, res.Position.ExpectedProfit, 1e-9)
	assert.Empty(t, pm.sells())
	assert.Empty(t, kl.sells())
}

func TestTakerTakerOneLegTransportError(t *testing.T) {
	// Polymarket errors, Kalshi fills 50: the Kalshi fill must be unwound.
	pm := &fakeVenue{venue: domain.VenuePolymarket, marketBuyErr: errors.New("dial tcp: connection refused")}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("kl-1", 50, 0.46)}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeTakerTaker))

	assert.False(t, res.Success)
	assert.True(t, res.RequiresPanicSell)
	assert.Nil(t, res.Position)

	sells := kl.sells()
	require.Len(t, sells, 1)
	assert.InDelta(t, 50, sells[0].quantity, 1e-9)
	assert.Equal(t, "FED-25SEP-HIKE", sells[0].contractID)
}

func TestTakerTakerBothUnfilled(t *testing.T) {
	pm := &fakeVenue{venue: domain.VenuePolymarket, marketBuyErr: errors.New("timeout")}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyResult: domain.OrderResult{Success: true, Status: domain.OrderStatusFailed}}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeTakerTaker))

	assert.False(t, res.Success)
	assert.False(t, res.RequiresPanicSell)
	assert.Empty(t, pm.sells())
	assert.Empty(t, kl.sells())
}

func TestTakerTakerUnequalFillsUnwindsExcess(t *testing.T) {
	pm := &fakeVenue{venue: domain.VenuePolymarket, marketBuyResult: filledResult("pm-1", 100, 0.41)}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("kl-1", 70, 0.46)}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeTakerTaker))

	assert.True(t, res.Success)
	assert.False(t, res.RequiresPanicSell)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 70, res.Position.MatchedQuantity, 1e-9)
	assert.Contains(t, res.Message, "excess unwound")

	sells := pm.sells()
	require.Len(t, sells, 1)
	assert.InDelta(t, 30, sells[0].quantity, 1e-9)
}

func TestMakerTakerFullFillHedges(t *testing.T) {
	pm := &fakeVenue{
		venue:       domain.VenuePolymarket,
		limitResult: filledResult("pm-maker", 100, 0.40),
	}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("kl-1", 100, 0.45)}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeMakerTaker))

	assert.True(t, res.Success)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 100, res.Position.MatchedQuantity, 1e-9)

	// The hedge was the only Kalshi order and was sized to the fill.
	require.Len(t, kl.placed, 1)
	assert.Equal(t, domain.OrderSideBuy, kl.placed[0].side)
	assert.InDelta(t, 100, kl.placed[0].quantity, 1e-9)
}

func TestMakerTakerPartialFillHedgesExactQuantity(t *testing.T) {
	// The maker order fills 60 of 100 before the timeout; the hedge must be
	// sized to 60 and the remainder cancelled.
	pm := &fakeVenue{
		venue: domain.VenuePolymarket,
		limitResult: domain.OrderResult{
			Success: true,
			OrderID: "pm-maker",
			Status:  domain.OrderStatusOpen,
		},
		orderStates: []domain.Order{
			{ID: "pm-maker", Status: domain.OrderStatusPartiallyFilled, FilledQuantity: 60, AvgFillPrice: 0.40},
		},
	}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("kl-1", 60, 0.45)}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeMakerTaker))

	assert.True(t, res.Success)
	require.NotNil(t, res.Position)
	assert.InDelta(t, 60, res.Position.MatchedQuantity, 1e-9)
	assert.Contains(t, pm.cancelled, "pm-maker")

	require.Len(t, kl.placed, 1)
	assert.InDelta(t, 60, kl.placed[0].quantity, 1e-9)
}

func TestMakerTakerTimeoutUnfilled(t *testing.T) {
	pm := &fakeVenue{
		venue: domain.VenuePolymarket,
		limitResult: domain.OrderResult{
			Success: true,
			OrderID: "pm-maker",
			Status:  domain.OrderStatusOpen,
		},
		orderStates: []domain.Order{
			{ID: "pm-maker", Status: domain.OrderStatusOpen},
		},
	}
	kl := &fakeVenue{venue: domain.VenueKalshi}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeMakerTaker))

	assert.False(t, res.Success)
	assert.False(t, res.RequiresPanicSell)
	assert.Contains(t, pm.cancelled, "pm-maker")
	assert.Empty(t, kl.placed, "no hedge without a maker fill")
}

func TestMakerTakerHedgeFailureTriggersPanicSell(t *testing.T) {
	pm := &fakeVenue{
		venue:       domain.VenuePolymarket,
		limitResult: filledResult("pm-maker", 100, 0.40),
	}
	kl := &fakeVenue{venue: domain.VenueKalshi, marketBuyErr: errors.New("insufficient balance")}
	e := newTestExecutor(pm, kl)

	res := e.Execute(context.Background(), testOpportunity(domain.ModeMakerTaker))

	assert.False(t, res.Success)
	assert.True(t, res.RequiresPanicSell)
	assert.Nil(t, res.Position)

	sells := pm.sells()
	require.Len(t, sells, 1)
	assert.InDelta(t, 100, sells[0].quantity, 1e-9)
}

func TestPanicFlagInvariant(t *testing.T) {
	// Whenever the flag is false, the result is either fully unfilled or a
	// matched two-legged position; never a one-sided fill.
	cases := []struct {
		name string
		pm   *fakeVenue
		kl   *fakeVenue
	}{
		{"both fill", &fakeVenue{venue: domain.VenuePolymarket, marketBuyResult: filledResult("a", 10, 0.4)},
			&fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("b", 10, 0.45)}},
		{"both fail", &fakeVenue{venue: domain.VenuePolymarket, marketBuyErr: errors.New("x")},
			&fakeVenue{venue: domain.VenueKalshi, marketBuyErr: errors.New("y")}},
		{"pm only", &fakeVenue{venue: domain.VenuePolymarket, marketBuyResult: filledResult("a", 10, 0.4)},
			&fakeVenue{venue: domain.VenueKalshi, marketBuyErr: errors.New("y")}},
		{"kl only", &fakeVenue{venue: domain.VenuePolymarket, marketBuyErr: errors.New("x")},
			&fakeVenue{venue: domain.VenueKalshi, marketBuyResult: filledResult("b", 10, 0.45)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestExecutor(tc.pm, tc.kl)
			res := e.Execute(context.Background(), testOpportunity(domain.ModeTakerTaker))
			if !res.RequiresPanicSell {
				if res.Success {
					require.NotNil(t, res.Position)
					assert.Greater(t, res.Position.MatchedQuantity, 0.0)
				} else {
					assert.Nil(t, res.Position)
					assert.Empty(t, tc.pm.sells())
					assert.Empty(t, tc.kl.sells())
				}
			}
		})
	}
}

func TestUnwindPosition(t *testing.T) {
	pos := domain.ArbitragePosition{
		ID: "pos-1",
		Pair: domain.ContractPair{
			EventID:           "fed-hike-sep",
			PolymarketTokenID: "tok-1",
			KalshiTicker:      "FED-25SEP-HIKE",
		},
		MatchedQuantity: 80,
		EntryCost:       68,
	}

	t.Run("both legs sell", func(t *testing.T) {
		pm := &fakeVenue{venue: domain.VenuePolymarket}
		kl := &fakeVenue{venue: domain.VenueKalshi}
		e := newTestExecutor(pm, kl)

		res := e.UnwindPosition(context.Background(), pos)
		assert.True(t, res.Success)
		assert.False(t, res.RequiresPanicSell)
		require.Len(t, pm.sells(), 1)
		require.Len(t, kl.sells(), 1)
		assert.InDelta(t, 80, pm.sells()[0].quantity, 1e-9)
	})

	t.Run("one leg fails", func(t *testing.T) {
		pm := &fakeVenue{venue: domain.VenuePolymarket}
		kl := &fakeVenue{venue: domain.VenueKalshi, marketSellErr: errors.New("halted")}
		e := newTestExecutor(pm, kl)

		res := e.UnwindPosition(context.Background(), pos)
		assert.False(t, res.Success)
		assert.True(t, res.RequiresPanicSell)
	})
}
