package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
)

// PolymarketFeed streams CLOB book snapshots for the watched tokens into
// the collector. The underlying client reconnects and resubscribes on its
// own; the feed only manages the subscription set and lifetime.
type PolymarketFeed struct {
	ws        *polymarket.WSClient
	collector *Collector
	tokenIDs  []string
	logger    *slog.Logger
}

// NewPolymarketFeed creates a feed subscribing to the given token IDs.
func NewPolymarketFeed(wsURL string, tokenIDs []string, collector *Collector, logger *slog.Logger) *PolymarketFeed {
	return &PolymarketFeed{
		ws:        polymarket.NewWSClient(wsURL),
		collector: collector,
		tokenIDs:  tokenIDs,
		logger:    logger.With(slog.String("component", "polymarket_feed")),
	}
}

// Run connects, subscribes, and forwards book updates until ctx is
// cancelled.
func (f *PolymarketFeed) Run(ctx context.Context) error {
	if len(f.tokenIDs) == 0 {
		f.logger.Info("no tokens to subscribe, exiting")
		return nil
	}

	f.ws.OnBook(func(tokenID string, book polymarket.APIBook) {
		f.collector.HandlePolymarketBook(ctx, tokenID, book)
	})

	if err := f.ws.Connect(ctx); err != nil {
		return fmt.Errorf("feed: polymarket connect: %w", err)
	}
	defer f.ws.Close()

	if err := f.ws.Subscribe(ctx, f.tokenIDs); err != nil {
		return fmt.Errorf("feed: polymarket subscribe: %w", err)
	}
	f.logger.Info("subscribed", slog.Int("tokens", len(f.tokenIDs)))

	<-ctx.Done()
	return ctx.Err()
}
