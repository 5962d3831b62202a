package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
)

// PolymarketBookSource fetches a CLOB book snapshot over REST.
type PolymarketBookSource interface {
	GetOrderbook(ctx context.Context, tokenID string) (polymarket.APIBook, error)
}

// KalshiBookSource fetches a Kalshi orderbook over REST.
type KalshiBookSource interface {
	GetOrderbook(ctx context.Context, ticker string) (kalshi.Orderbook, error)
}

// Poller is the REST fallback for quote collection. It refreshes every
// watched pair on a fixed interval, so the engine keeps analyzing even when
// a websocket feed is down or disabled.
type Poller struct {
	collector *Collector
	pm        PolymarketBookSource
	kl        KalshiBookSource
	interval  time.Duration
	logger    *slog.Logger
}

// NewPoller creates a poller over the given book sources.
func NewPoller(collector *Collector, pm PolymarketBookSource, kl KalshiBookSource, interval time.Duration, logger *slog.Logger) *Poller {
	return &Poller{
		collector: collector,
		pm:        pm,
		kl:        kl,
		interval:  interval,
		logger:    logger.With(slog.String("component", "poller")),
	}
}

// Run polls until ctx is cancelled. Per-pair fetch failures are logged and
// skipped; the next tick retries.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("started", slog.Duration("interval", p.interval))
	defer p.logger.Info("stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context) {
	for _, pair := range p.collector.Pairs() {
		book, err := p.pm.GetOrderbook(ctx, pair.PolymarketTokenID)
		if err != nil {
			p.logger.Warn("polymarket book fetch failed",
				slog.String("token_id", pair.PolymarketTokenID),
				slog.String("error", err.Error()),
			)
		} else {
			p.collector.HandlePolymarketBook(ctx, pair.PolymarketTokenID, book)
		}

		ob, err := p.kl.GetOrderbook(ctx, pair.KalshiTicker)
		if err != nil {
			p.logger.Warn("kalshi book fetch failed",
				slog.String("ticker", pair.KalshiTicker),
				slog.String("error", err.Error()),
			)
			continue
		}
		p.collector.HandleKalshiBook(ctx, ob)
	}
}
