// Package orchestrator drives the analysis cycle: it gathers fresh quotes,
// prefers closing profitable positions over opening new ones, and hands the
// single best candidate to the execution engine.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/alanyoungcy/arbbot/internal/notify"
)

// OpportunitySource ranks entry candidates across quote pairs.
type OpportunitySource interface {
	AnalyzeAll(pairs []domain.QuotePair) []domain.ArbitrageOpportunity
}

// TradeExecutor executes entries and unwinds.
type TradeExecutor interface {
	Execute(ctx context.Context, opp domain.ArbitrageOpportunity) domain.TradeResult
	UnwindPosition(ctx context.Context, pos domain.ArbitragePosition) domain.TradeResult
	CancelAllOrders(ctx context.Context)
}

// PositionLedger tracks open positions and prices their exits.
type PositionLedger interface {
	Record(ctx context.Context, result domain.TradeResult)
	Remove(ctx context.Context, positionID string)
	Positions() []domain.ArbitragePosition
	Count() int
	FindExits(quotes map[string]domain.QuotePair) []domain.ExitOpportunity
}

// TradeRecorder writes the trade history.
type TradeRecorder interface {
	RecordEntry(ctx context.Context, opp domain.ArbitrageOpportunity, result domain.TradeResult)
	RecordExit(ctx context.Context, exit domain.ExitOpportunity, result domain.TradeResult)
}

// Notifier pushes operator alerts. Implementations filter by event type.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the orchestrator tuning knobs.
type Config struct {
	// CycleInterval is the minimum gap between analysis cycles; triggers
	// arriving sooner are absorbed.
	CycleInterval time.Duration
	// QuoteMaxAge rejects quotes older than this at analysis time.
	QuoteMaxAge time.Duration
	// MaxOpenPositions blocks new entries once reached. Zero means no cap.
	MaxOpenPositions int
	// LockTTL bounds the per-pair trade lock when a lock manager is set.
	LockTTL time.Duration
	// Trading disables order placement when false (monitor mode); cycles
	// still run and log what they would have done.
	Trading bool
}

// Orchestrator owns the trigger-driven analysis loop.
type Orchestrator struct {
	cfg      Config
	cache    domain.QuoteCache
	finder   OpportunitySource
	executor TradeExecutor
	ledger   PositionLedger
	recorder TradeRecorder
	locks    domain.LockManager // optional
	notifier Notifier           // optional
	log      *slog.Logger

	cycleMu   sync.Mutex // single-flight over runCycle
	lastCycle time.Time

	pairsMu sync.RWMutex
	pairs   map[string]domain.ContractPair
}

// New creates an Orchestrator. locks and notifier may be nil.
func New(cfg Config, cache domain.QuoteCache, finder OpportunitySource, executor TradeExecutor,
	ledger PositionLedger, recorder TradeRecorder, locks domain.LockManager, notifier Notifier,
	log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		cache:    cache,
		finder:   finder,
		executor: executor,
		ledger:   ledger,
		recorder: recorder,
		locks:    locks,
		notifier: notifier,
		log:      log.With(slog.String("component", "orchestrator")),
		pairs:    make(map[string]domain.ContractPair),
	}
}

// AddContractPair registers a pair for analysis. Registering a pair whose
// (event, outcome) key is already active replaces the previous entry.
func (o *Orchestrator) AddContractPair(pair domain.ContractPair) {
	key := pair.Key()
	o.pairsMu.Lock()
	_, existed := o.pairs[key]
	o.pairs[key] = pair
	o.pairsMu.Unlock()

	if existed {
		o.log.Warn("contract pair replaced",
			slog.String("event_id", pair.EventID),
			slog.String("outcome", pair.Outcome),
		)
	}
}

// Pairs returns the registered contract pairs.
func (o *Orchestrator) Pairs() []domain.ContractPair {
	o.pairsMu.RLock()
	defer o.pairsMu.RUnlock()
	out := make([]domain.ContractPair, 0, len(o.pairs))
	for _, p := range o.pairs {
		out = append(out, p)
	}
	return out
}

// Run consumes the trigger channel until ctx is cancelled, executing at
// most one analysis cycle per CycleInterval.
func (o *Orchestrator) Run(ctx context.Context, trigger <-chan struct{}) error {
	o.log.Info("started",
		slog.Duration("cycle_interval", o.cfg.CycleInterval),
		slog.Bool("trading", o.cfg.Trading),
	)
	defer o.log.Info("stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-trigger:
			if !ok {
				return nil
			}
			o.RunCycle(ctx)
		}
	}
}

// RunCycle performs one analysis pass and returns the trade result it
// produced, or nil when nothing was executed. Concurrent calls and calls
// inside the debounce window return immediately.
func (o *Orchestrator) RunCycle(ctx context.Context) *domain.TradeResult {
	if !o.cycleMu.TryLock() {
		return nil
	}
	defer o.cycleMu.Unlock()

	if time.Since(o.lastCycle) < o.cfg.CycleInterval {
		return nil
	}
	o.lastCycle = time.Now()

	quotes := o.collectQuotes(ctx)
	if len(quotes) == 0 {
		return nil
	}

	if result, attempted := o.tryExit(ctx, quotes); attempted {
		return result
	}
	return o.tryEntry(ctx, quotes)
}

// collectQuotes builds the fresh quote-pair set for all registered pairs.
// Pairs with a missing or stale leg are skipped.
func (o *Orchestrator) collectQuotes(ctx context.Context) map[string]domain.QuotePair {
	quotes := make(map[string]domain.QuotePair)
	for _, pair := range o.Pairs() {
		pm, err := o.cache.GetQuote(ctx, domain.VenuePolymarket, pair.PolymarketTokenID)
		if err != nil {
			continue
		}
		kl, err := o.cache.GetQuote(ctx, domain.VenueKalshi, pair.KalshiTicker)
		if err != nil {
			continue
		}
		if o.stale(pm) || o.stale(kl) {
			o.log.Debug("stale quotes skipped",
				slog.String("event_id", pair.EventID),
				slog.String("outcome", pair.Outcome),
			)
			continue
		}
		quotes[pair.Key()] = domain.QuotePair{Pair: pair, Polymarket: pm, Kalshi: kl}
	}
	return quotes
}

func (o *Orchestrator) stale(q domain.Quote) bool {
	if o.cfg.QuoteMaxAge <= 0 {
		return false
	}
	return time.Since(q.UpdatedAt) > o.cfg.QuoteMaxAge
}

// tryExit closes the best-priced exit, if any. attempted is true when an
// exit claimed the cycle, whether or not an order was ultimately placed.
func (o *Orchestrator) tryExit(ctx context.Context, quotes map[string]domain.QuotePair) (_ *domain.TradeResult, attempted bool) {
	exits := o.ledger.FindExits(quotes)
	if len(exits) == 0 {
		return nil, false
	}
	exit := exits[0]

	if !o.cfg.Trading {
		o.log.Info("exit found (monitor mode, not trading)",
			slog.String("position_id", exit.Position.ID),
			slog.Float64("exit_profit", exit.ExitProfit),
		)
		return nil, true
	}

	unlock, ok := o.acquirePairLock(ctx, exit.Position.Pair)
	if !ok {
		return nil, true
	}
	defer unlock()

	result := o.executor.UnwindPosition(ctx, exit.Position)
	o.recorder.RecordExit(ctx, exit, result)
	if result.Success {
		o.ledger.Remove(ctx, exit.Position.ID)
		o.notify(ctx, notify.EventPositionClosed, "Position closed",
			exit.Position.Pair.EventID+" / "+exit.Position.Pair.Outcome)
	}
	o.afterResult(ctx, result)
	return &result, true
}

// tryEntry executes the top-ranked entry candidate, if any.
func (o *Orchestrator) tryEntry(ctx context.Context, quotes map[string]domain.QuotePair) *domain.TradeResult {
	if o.cfg.MaxOpenPositions > 0 && o.ledger.Count() >= o.cfg.MaxOpenPositions {
		o.log.Debug("position cap reached", slog.Int("cap", o.cfg.MaxOpenPositions))
		return nil
	}

	pairs := make([]domain.QuotePair, 0, len(quotes))
	for _, qp := range quotes {
		pairs = append(pairs, qp)
	}
	opps := o.finder.AnalyzeAll(pairs)
	if len(opps) == 0 {
		return nil
	}
	opp := opps[0]

	if !o.cfg.Trading {
		o.log.Info("opportunity found (monitor mode, not trading)",
			slog.String("event_id", opp.Pair.EventID),
			slog.String("mode", string(opp.Mode)),
			slog.Float64("profit_rate", opp.ProfitRate),
			slog.Float64("quantity", opp.Quantity),
		)
		return nil
	}

	unlock, ok := o.acquirePairLock(ctx, opp.Pair)
	if !ok {
		return nil
	}
	defer unlock()

	result := o.executor.Execute(ctx, opp)
	o.recorder.RecordEntry(ctx, opp, result)
	o.ledger.Record(ctx, result)
	if result.Success {
		o.notify(ctx, notify.EventPositionOpened, "Position opened",
			opp.Pair.EventID+" / "+opp.Pair.Outcome)
	}
	o.afterResult(ctx, result)
	return &result
}

// acquirePairLock takes the cross-instance trade lock for a pair. Without a
// lock manager it always succeeds.
func (o *Orchestrator) acquirePairLock(ctx context.Context, pair domain.ContractPair) (func(), bool) {
	if o.locks == nil {
		return func() {}, true
	}
	unlock, err := o.locks.Acquire(ctx, "trade:"+pair.Key(), o.cfg.LockTTL)
	if err != nil {
		o.log.Debug("pair locked elsewhere",
			slog.String("event_id", pair.EventID),
			slog.String("outcome", pair.Outcome),
			slog.String("error", err.Error()),
		)
		return nil, false
	}
	return unlock, true
}

// afterResult dispatches the per-attempt notifications every execution
// produces, success or failure.
func (o *Orchestrator) afterResult(ctx context.Context, result domain.TradeResult) {
	msg := "failed"
	if result.Success {
		msg = "succeeded"
	}
	if result.Message != "" {
		msg += ": " + result.Message
	}
	o.notify(ctx, notify.EventTradeExecuted, "Trade executed", msg)

	if result.RequiresPanicSell {
		o.notify(ctx, notify.EventPanicUnwind, "Panic unwind triggered", result.Message)
	}
}

func (o *Orchestrator) notify(ctx context.Context, event, title, message string) {
	if o.notifier == nil {
		return
	}
	if err := o.notifier.Notify(ctx, event, title, message); err != nil {
		o.log.Warn("notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// Shutdown cancels resting orders and liquidates open positions with
// per-position error isolation. It is best effort; failures are logged and
// the remaining positions are still attempted.
func (o *Orchestrator) Shutdown(ctx context.Context) {
	o.log.Info("shutdown: cancelling resting orders")
	o.executor.CancelAllOrders(ctx)

	if !o.cfg.Trading {
		return
	}

	for _, pos := range o.ledger.Positions() {
		result := o.executor.UnwindPosition(ctx, pos)
		exit := domain.ExitOpportunity{Position: pos, DetectedAt: time.Now()}
		o.recorder.RecordExit(ctx, exit, result)
		if !result.Success {
			o.log.Error("shutdown liquidation failed",
				slog.String("position_id", pos.ID),
				slog.String("message", result.Message),
			)
			continue
		}
		o.ledger.Remove(ctx, pos.ID)
		o.notify(ctx, notify.EventShutdownLiquidation, "Position liquidated on shutdown",
			pos.Pair.EventID+" / "+pos.Pair.Outcome)
	}
}
