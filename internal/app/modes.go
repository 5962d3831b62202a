package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/alanyoungcy/arbbot/internal/executor"
	"github.com/alanyoungcy/arbbot/internal/feed"
	"github.com/alanyoungcy/arbbot/internal/finder"
	"github.com/alanyoungcy/arbbot/internal/ledger"
	"github.com/alanyoungcy/arbbot/internal/notify"
	"github.com/alanyoungcy/arbbot/internal/orchestrator"
	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
	"github.com/alanyoungcy/arbbot/internal/recorder"
	"github.com/alanyoungcy/arbbot/internal/server"
	"github.com/alanyoungcy/arbbot/internal/server/handler"
)

// clobWSPath is the market-data path on the Polymarket websocket host.
const clobWSPath = "/ws/market"

// shutdownTimeout bounds the post-cancel liquidation and server drain.
const shutdownTimeout = 30 * time.Second

// engine groups the long-lived components one trading/monitoring run needs.
type engine struct {
	collector *feed.Collector
	orch      *orchestrator.Orchestrator
	ledger    *ledger.Ledger
	recorder  *recorder.Recorder
	executor  *executor.Executor
}

// buildEngine wires the analysis pipeline on top of the shared dependencies.
func (a *App) buildEngine(ctx context.Context, deps *Dependencies, trading bool) (*engine, error) {
	pmFees := polymarket.Fees{}
	klFees := kalshi.Fees{}

	fnd := finder.New(finder.Params{
		MinProfitRate:   a.cfg.Trading.MinProfitRate,
		CapitalPerTrade: a.cfg.Trading.CapitalPerTrade,
		MinSpread:       a.cfg.Trading.MinSpread,
	}, pmFees, klFees, a.logger)

	exec := executor.New(deps.PolymarketVenue, deps.KalshiVenue, executor.Config{
		MakerTimeout: a.cfg.Trading.MakerTimeout.Duration,
		PollInterval: a.cfg.Trading.PollInterval.Duration,
	}, a.logger)

	led := ledger.New(deps.PositionStore, ledger.Params{
		MinExitProfitRate: a.cfg.Trading.MinExitProfitRate,
	}, pmFees, klFees, a.logger)
	led.OnPersistFailure(a.persistFailureHandler(deps))
	if err := led.Load(ctx); err != nil {
		return nil, fmt.Errorf("app: load positions: %w", err)
	}

	rec := recorder.New(deps.TradeStore, a.logger)

	collector := feed.NewCollector(deps.QuoteCache, a.logger)

	orch := orchestrator.New(orchestrator.Config{
		CycleInterval:    a.cfg.Trading.CycleInterval.Duration,
		QuoteMaxAge:      a.cfg.Trading.QuoteMaxAge.Duration,
		MaxOpenPositions: a.cfg.Trading.MaxOpenPositions,
		LockTTL:          2 * a.cfg.Trading.MakerTimeout.Duration,
		Trading:          trading,
	}, deps.QuoteCache, fnd, exec, led, rec, deps.LockManager, deps.Notifier, a.logger)

	for _, p := range a.cfg.Pairs {
		pair := domain.ContractPair{
			EventID:           p.EventID,
			Outcome:           p.Outcome,
			PolymarketTokenID: p.PolymarketTokenID,
			KalshiTicker:      p.KalshiTicker,
		}
		collector.Watch(pair)
		orch.AddContractPair(pair)
	}

	return &engine{
		collector: collector,
		orch:      orch,
		ledger:    led,
		recorder:  rec,
		executor:  exec,
	}, nil
}

// persistFailureHandler alerts operators when a ledger write fails. The
// in-memory position survives, so the loop keeps going; the alert exists so
// someone reconciles the store before a restart loses it.
func (a *App) persistFailureHandler(deps *Dependencies) ledger.PersistFailureHandler {
	return func(ctx context.Context, positionID string, err error) {
		msg := fmt.Sprintf("position %s: %v", positionID, err)
		if nErr := deps.Notifier.Notify(ctx, notify.EventPersistFailed, "Ledger persist failed", msg); nErr != nil {
			a.logger.WarnContext(ctx, "persist-failure notification failed",
				slog.String("error", nErr.Error()),
			)
		}
		if deps.SignalBus != nil {
			payload, _ := json.Marshal(map[string]string{
				"position_id": positionID,
				"error":       err.Error(),
			})
			if pErr := deps.SignalBus.Publish(ctx, "events:persist_failed", payload); pErr != nil {
				a.logger.WarnContext(ctx, "persist-failure publish failed",
					slog.String("error", pErr.Error()),
				)
			}
		}
	}
}

// ArbitrageMode runs the full engine: quote feeds, analysis cycles, live
// order execution, and the status API.
func (a *App) ArbitrageMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting arbitrage mode",
		slog.Int("pairs", len(a.cfg.Pairs)),
		slog.Float64("min_profit_rate", a.cfg.Trading.MinProfitRate),
		slog.Float64("capital_per_trade", a.cfg.Trading.CapitalPerTrade),
	)
	return a.runEngine(ctx, deps, true)
}

// MonitorMode runs the same pipeline as ArbitrageMode but never places
// orders; detected opportunities are only logged and served over the API.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Int("pairs", len(a.cfg.Pairs)),
	)
	return a.runEngine(ctx, deps, false)
}

// ServerMode serves the status API over the configured stores without
// running feeds or analysis.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	eng, err := a.buildEngine(ctx, deps, false)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, eng)
	return g.Wait()
}

func (a *App) runEngine(ctx context.Context, deps *Dependencies, trading bool) error {
	eng, err := a.buildEngine(ctx, deps, trading)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	// Push feeds.
	if a.cfg.Polymarket.WsHost != "" {
		tokenIDs := make([]string, 0, len(a.cfg.Pairs))
		for _, p := range a.cfg.Pairs {
			tokenIDs = append(tokenIDs, p.PolymarketTokenID)
		}
		pmFeed := feed.NewPolymarketFeed(a.cfg.Polymarket.WsHost+clobWSPath, tokenIDs, eng.collector, a.logger)
		g.Go(func() error { return pmFeed.Run(ctx) })
	}
	if a.cfg.Kalshi.WsURL != "" {
		tickers := make([]string, 0, len(a.cfg.Pairs))
		for _, p := range a.cfg.Pairs {
			tickers = append(tickers, p.KalshiTicker)
		}
		klFeed := feed.NewKalshiFeed(a.cfg.Kalshi.WsURL, tickers, eng.collector, a.logger)
		g.Go(func() error { return klFeed.Run(ctx) })
	}

	// REST polling fallback keeps quotes fresh when a socket is down.
	poller := feed.NewPoller(eng.collector, deps.PolymarketClient, deps.KalshiClient,
		a.cfg.Trading.CycleInterval.Duration, a.logger)
	g.Go(func() error { return poller.Run(ctx) })

	// Analysis loop.
	g.Go(func() error { return eng.orch.Run(ctx, eng.collector.Trigger()) })

	// Trade-history archiving.
	if deps.Archiver != nil {
		g.Go(func() error { return a.runArchiver(ctx, deps.Archiver) })
	}

	// Status API.
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, eng)
	}

	err = g.Wait()

	// Orderly teardown: cancel resting orders, then liquidate.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	eng.orch.Shutdown(shutdownCtx)

	return err
}

// runArchiver periodically exports trades older than the retention window.
func (a *App) runArchiver(ctx context.Context, archiver domain.Archiver) error {
	interval := a.cfg.S3.ArchiveInterval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cutoff := time.Now().Add(-retention)
			n, err := archiver.ArchiveTrades(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "trade archive failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if n > 0 {
				a.logger.InfoContext(ctx, "trades archived",
					slog.Int64("count", n),
					slog.Time("cutoff", cutoff),
				)
			}
		}
	}
}

// startHTTPServer adds the status API goroutines to the errgroup: one
// serving, one draining on context cancellation.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, eng *engine) {
	handlers := server.Handlers{
		Status:    handler.NewStatusHandler(a.cfg.Mode, eng.ledger),
		Positions: handler.NewPositionHandler(eng.ledger),
		Trades:    handler.NewTradeHandler(eng.recorder, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  time.Minute,
	}, handlers, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(drainCtx)
	})
}
