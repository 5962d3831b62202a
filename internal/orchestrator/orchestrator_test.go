package orchestrator

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

type fakeFinder struct {
	opps  []domain.ArbitrageOpportunity
	calls int
}

func (f *fakeFinder) AnalyzeAll([]domain.QuotePair) []domain.ArbitrageOpportunity {
	f.calls++
	return f.opps
}

type fakeExecutor struct {
	executed  []domain.ArbitrageOpportunity
	unwound   []domain.ArbitragePosition
	result    domain.TradeResult
	cancelled bool
}

func (f *fakeExecutor) Execute(_ context.Context, opp domain.ArbitrageOpportunity) domain.TradeResult {
	f.executed = append(f.executed, opp)
	return f.result
}

func (f *fakeExecutor) UnwindPosition(_ context.Context, pos domain.ArbitragePosition) domain.TradeResult {
	f.unwound = append(f.unwound, pos)
	return f.result
}

func (f *fakeExecutor) CancelAllOrders(context.Context) { f.cancelled = true }

type fakeLedger struct {
	positions []domain.ArbitragePosition
	exits     []domain.ExitOpportunity
	recorded  []domain.TradeResult
	removed   []string
}

func (f *fakeLedger) Record(_ context.Context, result domain.TradeResult) {
	f.recorded = append(f.recorded, result)
}

func (f *fakeLedger) Remove(_ context.Context, id string) { f.removed = append(f.removed, id) }

func (f *fakeLedger) Positions() []domain.ArbitragePosition { return f.positions }
func (f *fakeLedger) Count() int                            { return len(f.positions) }

func (f *fakeLedger) FindExits(map[string]domain.QuotePair) []domain.ExitOpportunity {
	return f.exits
}

type fakeRecorder struct {
	entries int
	exits   int
}

func (f *fakeRecorder) RecordEntry(context.Context, domain.ArbitrageOpportunity, domain.TradeResult) {
	f.entries++
}

func (f *fakeRecorder) RecordExit(context.Context, domain.ExitOpportunity, domain.TradeResult) {
	f.exits++
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Notify(_ context.Context, event, _, _ string) error {
	f.events = append(f.events, event)
	return nil
}

type fixture struct {
	orch     *Orchestrator
	cache    *memory.QuoteCache
	finder   *fakeFinder
	executor *fakeExecutor
	ledger   *fakeLedger
	recorder *fakeRecorder
	notifier *fakeNotifier
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		cache:    memory.NewQuoteCache(),
		finder:   &fakeFinder{},
		executor: &fakeExecutor{},
		ledger:   &fakeLedger{},
		recorder: &fakeRecorder{},
		notifier: &fakeNotifier{},
	}
	f.orch = New(cfg, f.cache, f.finder, f.executor, f.ledger, f.recorder, nil, f.notifier, testLogger())
	return f
}

func (f *fixture) seedQuotes(t *testing.T) {
	t.Helper()
	now := time.Now()
	require.NoError(t, f.cache.SetQuote(context.Background(), domain.Quote{
		Venue: domain.VenuePolymarket, ContractID: "tok-1",
		Bid: 0.39, Ask: 0.40, BidSize: 100, AskSize: 100, UpdatedAt: now,
	}))
	require.NoError(t, f.cache.SetQuote(context.Background(), domain.Quote{
		Venue: domain.VenueKalshi, ContractID: "KX-TEST",
		Bid: 0.55, Ask: 0.57, BidSize: 100, AskSize: 100, UpdatedAt: now,
	}))
}

func testOpportunity() domain.ArbitrageOpportunity {
	return domain.ArbitrageOpportunity{
		ID:              "opp-1",
		Pair:            testPair(),
		Mode:            domain.ModeTakerTaker,
		PolymarketPrice: 0.40,
		KalshiPrice:     0.45,
		Quantity:        100,
		ProfitRate:      0.15,
	}
}

func defaultConfig() Config {
	return Config{CycleInterval: time.Millisecond, QuoteMaxAge: time.Minute, Trading: true}
}

func TestEntryExecutedAndRecorded(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.finder.opps = []domain.ArbitrageOpportunity{testOpportunity()}
	f.executor.result = domain.TradeResult{
		Success:  true,
		Position: &domain.ArbitragePosition{ID: "pos-1", Pair: testPair()},
	}

	result := f.orch.RunCycle(context.Background())

	require.Len(t, f.executor.executed, 1)
	assert.Equal(t, "opp-1", f.executor.executed[0].ID)
	assert.Equal(t, 1, f.recorder.entries)
	require.Len(t, f.ledger.recorded, 1)
	assert.Contains(t, f.notifier.events, "position_opened")
	assert.Contains(t, f.notifier.events, "trade_executed")

	require.NotNil(t, result, "the cycle surfaces its trade result")
	assert.True(t, result.Success)
	assert.Equal(t, "pos-1", result.Position.ID)
}

func TestExitsTakePriorityOverEntries(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.finder.opps = []domain.ArbitrageOpportunity{testOpportunity()}
	f.ledger.exits = []domain.ExitOpportunity{{
		Position: domain.ArbitragePosition{ID: "pos-1", Pair: testPair()},
	}}
	f.executor.result = domain.TradeResult{Success: true}

	result := f.orch.RunCycle(context.Background())

	require.Len(t, f.executor.unwound, 1)
	assert.Empty(t, f.executor.executed, "entry must not run in an exit cycle")
	assert.Equal(t, 1, f.recorder.exits)
	assert.Equal(t, []string{"pos-1"}, f.ledger.removed)
	assert.Contains(t, f.notifier.events, "position_closed")
	assert.Contains(t, f.notifier.events, "trade_executed")

	require.NotNil(t, result)
	assert.True(t, result.Success)
}

func TestFailedExitKeepsPosition(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.ledger.exits = []domain.ExitOpportunity{{
		Position: domain.ArbitragePosition{ID: "pos-1", Pair: testPair()},
	}}
	f.executor.result = domain.TradeResult{Success: false, Message: "venue timeout"}

	f.orch.RunCycle(context.Background())

	assert.Empty(t, f.ledger.removed)
	assert.Equal(t, 1, f.recorder.exits)
}

func TestMonitorModeNeverTrades(t *testing.T) {
	cfg := defaultConfig()
	cfg.Trading = false
	f := newFixture(t, cfg)
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.finder.opps = []domain.ArbitrageOpportunity{testOpportunity()}

	result := f.orch.RunCycle(context.Background())

	assert.Nil(t, result, "monitor mode produces no trade result")
	assert.Empty(t, f.executor.executed)
	assert.Equal(t, 0, f.recorder.entries)
	assert.Equal(t, 1, f.finder.calls, "analysis still runs in monitor mode")
}

func TestPositionCapBlocksEntries(t *testing.T) {
	cfg := defaultConfig()
	cfg.MaxOpenPositions = 1
	f := newFixture(t, cfg)
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.ledger.positions = []domain.ArbitragePosition{{ID: "pos-1"}}
	f.finder.opps = []domain.ArbitrageOpportunity{testOpportunity()}

	f.orch.RunCycle(context.Background())

	assert.Empty(t, f.executor.executed)
	assert.Equal(t, 0, f.finder.calls, "analysis skipped at the cap")
}

func TestStaleQuotesSkipped(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.orch.AddContractPair(testPair())

	old := time.Now().Add(-time.Hour)
	require.NoError(t, f.cache.SetQuote(context.Background(), domain.Quote{
		Venue: domain.VenuePolymarket, ContractID: "tok-1", Bid: 0.39, Ask: 0.40, UpdatedAt: old,
	}))
	require.NoError(t, f.cache.SetQuote(context.Background(), domain.Quote{
		Venue: domain.VenueKalshi, ContractID: "KX-TEST", Bid: 0.55, Ask: 0.57, UpdatedAt: old,
	}))

	f.orch.RunCycle(context.Background())

	assert.Equal(t, 0, f.finder.calls, "no cycle on stale quotes")
}

func TestCycleDebounce(t *testing.T) {
	cfg := defaultConfig()
	cfg.CycleInterval = time.Hour
	f := newFixture(t, cfg)
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.finder.opps = []domain.ArbitrageOpportunity{testOpportunity()}
	f.executor.result = domain.TradeResult{Success: true, Position: &domain.ArbitragePosition{ID: "p"}}

	first := f.orch.RunCycle(context.Background())
	second := f.orch.RunCycle(context.Background())

	assert.NotNil(t, first)
	assert.Nil(t, second)
	assert.Len(t, f.executor.executed, 1, "second cycle inside the window is absorbed")
}

func TestDuplicatePairReplaced(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.orch.AddContractPair(testPair())

	replacement := testPair()
	replacement.PolymarketTokenID = "tok-2"
	f.orch.AddContractPair(replacement)

	pairs := f.orch.Pairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, "tok-2", pairs[0].PolymarketTokenID)
}

func TestShutdownCancelsAndLiquidates(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.ledger.positions = []domain.ArbitragePosition{
		{ID: "pos-1", Pair: testPair()},
		{ID: "pos-2", Pair: testPair()},
	}
	f.executor.result = domain.TradeResult{Success: true}

	f.orch.Shutdown(context.Background())

	assert.True(t, f.executor.cancelled)
	assert.Len(t, f.executor.unwound, 2)
	assert.ElementsMatch(t, []string{"pos-1", "pos-2"}, f.ledger.removed)
	assert.Equal(t, 2, f.recorder.exits)
}

func TestShutdownIsolatesFailures(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.ledger.positions = []domain.ArbitragePosition{
		{ID: "pos-1", Pair: testPair()},
		{ID: "pos-2", Pair: testPair()},
	}
	f.executor.result = domain.TradeResult{Success: false, Message: "venue down"}

	f.orch.Shutdown(context.Background())

	assert.Len(t, f.executor.unwound, 2, "all positions attempted despite failures")
	assert.Empty(t, f.ledger.removed)
}

func TestRunConsumesTrigger(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.orch.AddContractPair(testPair())
	f.seedQuotes(t)
	f.finder.opps = []domain.ArbitrageOpportunity{testOpportunity()}
	f.executor.result = domain.TradeResult{Success: true, Position: &domain.ArbitragePosition{ID: "p"}}

	trigger := make(chan struct{}, 1)
	trigger <- struct{}{}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := f.orch.Run(ctx, trigger)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Len(t, f.executor.executed, 1)
}
