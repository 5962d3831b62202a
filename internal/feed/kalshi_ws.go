package feed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
)

// KalshiFeed streams orderbook updates for the watched tickers into the
// collector.
type KalshiFeed struct {
	ws        *kalshi.WSClient
	collector *Collector
	tickers   []string
	logger    *slog.Logger
}

// NewKalshiFeed creates a feed subscribing to the given market tickers.
func NewKalshiFeed(wsURL string, tickers []string, collector *Collector, logger *slog.Logger) *KalshiFeed {
	return &KalshiFeed{
		ws:        kalshi.NewWSClient(wsURL),
		collector: collector,
		tickers:   tickers,
		logger:    logger.With(slog.String("component", "kalshi_feed")),
	}
}

// Run connects, subscribes, and forwards orderbook updates until ctx is
// cancelled.
func (f *KalshiFeed) Run(ctx context.Context) error {
	if len(f.tickers) == 0 {
		f.logger.Info("no tickers to subscribe, exiting")
		return nil
	}

	f.ws.OnOrderbook(func(ob kalshi.Orderbook) {
		f.collector.HandleKalshiBook(ctx, ob)
	})

	if err := f.ws.Connect(ctx); err != nil {
		return fmt.Errorf("feed: kalshi connect: %w", err)
	}
	defer f.ws.Close()

	if err := f.ws.Subscribe(ctx, f.tickers); err != nil {
		return fmt.Errorf("feed: kalshi subscribe: %w", err)
	}
	f.logger.Info("subscribed", slog.Int("tickers", len(f.tickers)))

	<-ctx.Done()
	return ctx.Err()
}
