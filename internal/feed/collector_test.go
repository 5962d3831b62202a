package feed

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbbot/internal/cache/memory"
	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPair() domain.ContractPair {
	return domain.ContractPair{
		EventID:           "evt-1",
		Outcome:           "yes",
		PolymarketTokenID: "tok-1",
		KalshiTicker:      "KX-TEST",
	}
}

func pmBook(bid, ask string) polymarket.APIBook {
	return polymarket.APIBook{
		AssetID: "tok-1",
		Bids:    []polymarket.PriceLevel{{Price: bid, Size: "100"}},
		Asks:    []polymarket.PriceLevel{{Price: ask, Size: "80"}},
	}
}

func TestPolymarketBookStoredAndTriggered(t *testing.T) {
	cache := memory.NewQuoteCache()
	c := NewCollector(cache, testLogger())
	c.Watch(testPair())

	c.HandlePolymarketBook(context.Background(), "tok-1", pmBook("0.44", "0.47"))

	q, err := cache.GetQuote(context.Background(), domain.VenuePolymarket, "tok-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.44, q.Bid, 1e-9)
	assert.InDelta(t, 0.47, q.Ask, 1e-9)
	assert.InDelta(t, 100, q.BidSize, 1e-9)
	assert.False(t, q.UpdatedAt.IsZero())

	select {
	case <-c.Trigger():
	default:
		t.Fatal("expected trigger signal after quote update")
	}
}

func TestKalshiBookStored(t *testing.T) {
	cache := memory.NewQuoteCache()
	c := NewCollector(cache, testLogger())
	c.Watch(testPair())

	c.HandleKalshiBook(context.Background(), kalshi.Orderbook{
		Ticker: "KX-TEST",
		Yes:    []kalshi.PriceLevel{{Price: 52, Quantity: 200}},
		No:     []kalshi.PriceLevel{{Price: 45, Quantity: 150}},
	})

	q, err := cache.GetQuote(context.Background(), domain.VenueKalshi, "KX-TEST")
	require.NoError(t, err)
	assert.InDelta(t, 0.52, q.Bid, 1e-9)
	assert.InDelta(t, 0.55, q.Ask, 1e-9) // best NO bid 45 implies YES offer at 55
	assert.InDelta(t, 200, q.BidSize, 1e-9)
	assert.InDelta(t, 150, q.AskSize, 1e-9)
}

func TestUnwatchedContractsDropped(t *testing.T) {
	cache := memory.NewQuoteCache()
	c := NewCollector(cache, testLogger())
	c.Watch(testPair())

	c.HandlePolymarketBook(context.Background(), "tok-other", pmBook("0.5", "0.6"))
	c.HandleKalshiBook(context.Background(), kalshi.Orderbook{Ticker: "KX-OTHER"})

	_, err := cache.GetQuote(context.Background(), domain.VenuePolymarket, "tok-other")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	select {
	case <-c.Trigger():
		t.Fatal("unexpected trigger for unwatched contract")
	default:
	}
}

func TestTriggerCoalesces(t *testing.T) {
	cache := memory.NewQuoteCache()
	c := NewCollector(cache, testLogger())
	c.Watch(testPair())

	for i := 0; i < 5; i++ {
		c.HandlePolymarketBook(context.Background(), "tok-1", pmBook("0.44", "0.47"))
	}

	// Exactly one pending signal no matter how many updates landed.
	<-c.Trigger()
	select {
	case <-c.Trigger():
		t.Fatal("expected signals to coalesce")
	default:
	}
}

type fakePMBooks struct {
	book polymarket.APIBook
	err  error
}

func (f *fakePMBooks) GetOrderbook(context.Context, string) (polymarket.APIBook, error) {
	return f.book, f.err
}

type fakeKLBooks struct {
	book kalshi.Orderbook
	err  error
}

func (f *fakeKLBooks) GetOrderbook(context.Context, string) (kalshi.Orderbook, error) {
	return f.book, f.err
}

func TestPollerRefreshesWatchedPairs(t *testing.T) {
	cache := memory.NewQuoteCache()
	c := NewCollector(cache, testLogger())
	c.Watch(testPair())

	pm := &fakePMBooks{book: pmBook("0.40", "0.43")}
	kl := &fakeKLBooks{book: kalshi.Orderbook{
		Ticker: "KX-TEST",
		Yes:    []kalshi.PriceLevel{{Price: 55, Quantity: 60}},
		No:     []kalshi.PriceLevel{{Price: 42, Quantity: 90}},
	}}
	p := NewPoller(c, pm, kl, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := p.Run(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	q, err := cache.GetQuote(context.Background(), domain.VenuePolymarket, "tok-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.40, q.Bid, 1e-9)

	q, err = cache.GetQuote(context.Background(), domain.VenueKalshi, "KX-TEST")
	require.NoError(t, err)
	assert.InDelta(t, 0.58, q.Ask, 1e-9)
}
