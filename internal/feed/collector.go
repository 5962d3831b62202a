// Package feed collects top-of-book quotes from both venues, normalizes
// them into the shared quote model, and nudges the analysis loop whenever
// fresh data lands.
package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
)

// Collector receives raw book updates from the venue feeds, writes
// normalized quotes to the cache, and signals the trigger channel. The
// trigger is a bounded debounce: while a signal is pending, further updates
// coalesce into it.
type Collector struct {
	cache   domain.QuoteCache
	trigger chan struct{}
	log     *slog.Logger

	mu       sync.RWMutex
	byToken  map[string]domain.ContractPair // Polymarket token ID -> pair
	byTicker map[string]domain.ContractPair // Kalshi ticker -> pair
}

// NewCollector creates a Collector writing to the given quote cache.
func NewCollector(cache domain.QuoteCache, log *slog.Logger) *Collector {
	return &Collector{
		cache:    cache,
		trigger:  make(chan struct{}, 1),
		log:      log.With(slog.String("component", "collector")),
		byToken:  make(map[string]domain.ContractPair),
		byTicker: make(map[string]domain.ContractPair),
	}
}

// Watch registers a contract pair so updates for its token and ticker are
// accepted. Re-registering a pair replaces the previous mapping.
func (c *Collector) Watch(pair domain.ContractPair) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byToken[pair.PolymarketTokenID] = pair
	c.byTicker[pair.KalshiTicker] = pair
}

// Pairs returns all watched contract pairs.
func (c *Collector) Pairs() []domain.ContractPair {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ContractPair, 0, len(c.byToken))
	for _, p := range c.byToken {
		out = append(out, p)
	}
	return out
}

// Trigger returns the channel that fires after quote updates. Receivers
// should treat a receive as "something changed" and re-read the cache.
func (c *Collector) Trigger() <-chan struct{} {
	return c.trigger
}

// HandlePolymarketBook normalizes a CLOB book snapshot into a quote.
// Updates for unwatched tokens are dropped.
func (c *Collector) HandlePolymarketBook(ctx context.Context, tokenID string, book polymarket.APIBook) {
	c.mu.RLock()
	_, watched := c.byToken[tokenID]
	c.mu.RUnlock()
	if !watched {
		return
	}

	bid, ask, bidSize, askSize := book.TopOfBook()
	ts := book.ParsedTime()
	if ts.IsZero() {
		ts = time.Now()
	}
	c.store(ctx, domain.Quote{
		Venue:      domain.VenuePolymarket,
		ContractID: tokenID,
		Bid:        bid,
		Ask:        ask,
		BidSize:    bidSize,
		AskSize:    askSize,
		UpdatedAt:  ts,
	})
}

// HandleKalshiBook normalizes a Kalshi orderbook into a YES-side quote.
// Updates for unwatched tickers are dropped.
func (c *Collector) HandleKalshiBook(ctx context.Context, ob kalshi.Orderbook) {
	c.mu.RLock()
	_, watched := c.byTicker[ob.Ticker]
	c.mu.RUnlock()
	if !watched {
		return
	}

	bid, ask, bidSize, askSize := ob.TopOfBook()
	ts := ob.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	c.store(ctx, domain.Quote{
		Venue:      domain.VenueKalshi,
		ContractID: ob.Ticker,
		Bid:        bid,
		Ask:        ask,
		BidSize:    bidSize,
		AskSize:    askSize,
		UpdatedAt:  ts,
	})
}

func (c *Collector) store(ctx context.Context, q domain.Quote) {
	if err := c.cache.SetQuote(ctx, q); err != nil {
		c.log.WarnContext(ctx, "quote cache write failed",
			slog.String("venue", string(q.Venue)),
			slog.String("contract", q.ContractID),
			slog.String("error", err.Error()),
		)
		return
	}
	c.signal()
}

// signal nudges the trigger channel without blocking. A pending signal
// absorbs the update.
func (c *Collector) signal() {
	select {
	case c.trigger <- struct{}{}:
	default:
	}
}
