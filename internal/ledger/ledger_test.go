package ledger

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
	"github.com/alanyoungcy/arbbot/internal/platform/kalshi"
	"github.com/alanyoungcy/arbbot/internal/platform/polymarket"
)

// memStore is an in-memory domain.PositionStore with an injectable failure.
type memStore struct {
	mu        sync.Mutex
	positions map[string]domain.ArbitragePosition
	failWith  error
}

func newMemStore() *memStore {
	return &memStore{positions: make(map[string]domain.ArbitragePosition)}
}

func (s *memStore) Save(_ context.Context, pos domain.ArbitragePosition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.positions[pos.ID] = pos
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.positions[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.positions, id)
	return nil
}

func (s *memStore) List(_ context.Context) ([]domain.ArbitragePosition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ArbitragePosition, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, p)
	}
	return out, nil
}

var _ domain.PositionStore = (*memStore)(nil)

func newTestLedger(store domain.PositionStore) *Ledger {
	return New(store, Params{MinExitProfitRate: 0.005},
		polymarket.Fees{}, kalshi.Fees{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func position(id string, pmPrice, klPrice, qty float64) domain.ArbitragePosition {
	return domain.ArbitragePosition{
		ID: id,
		Pair: domain.ContractPair{
			EventID:           "fed-hike-sep",
			Outcome:           "yes",
			PolymarketTokenID: "tok-1",
			KalshiTicker:      "FED-25SEP-HIKE",
		},
		Mode:            domain.ModeTakerTaker,
		PolymarketPrice: pmPrice,
		KalshiPrice:     klPrice,
		MatchedQuantity: qty,
		EntryCost:       (pmPrice + klPrice) * qty,
		ExpectedProfit:  (1 - pmPrice - klPrice) * qty,
		OpenedAt:        time.Now(),
	}
}

func successResult(pos domain.ArbitragePosition) domain.TradeResult {
	return domain.TradeResult{
		OpportunityID: "opp-1",
		Success:       true,
		Position:      &pos,
		ExecutedAt:    time.Now(),
	}
}

func TestRecordPersistsPosition(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l := newTestLedger(store)

	l.Record(ctx, successResult(position("pos-1", 0.40, 0.45, 100)))

	assert.Equal(t, 1, l.Count())
	assert.InDelta(t, 85, l.OpenValue(), 1e-9)

	saved, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, saved, 1)
}

func TestRecordIgnoresFailuresAndEmptyResults(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(newMemStore())

	l.Record(ctx, domain.TradeResult{Success: false})
	l.Record(ctx, domain.TradeResult{Success: true, Position: nil})

	pos := position("pos-1", 0.40, 0.45, 0)
	l.Record(ctx, successResult(pos))

	assert.Zero(t, l.Count())
}

func TestRemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	l := newTestLedger(store)

	l.Record(ctx, successResult(position("pos-1", 0.40, 0.45, 100)))
	l.Remove(ctx, "pos-1")
	assert.Zero(t, l.Count())

	// Removing again, or removing something unknown, is a no-op.
	l.Remove(ctx, "pos-1")
	l.Remove(ctx, "never-existed")
	assert.Zero(t, l.Count())
}

func TestLoadRestoresPriorState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()

	first := newTestLedger(store)
	first.Record(ctx, successResult(position("pos-1", 0.40, 0.45, 100)))

	second := newTestLedger(store)
	require.NoError(t, second.Load(ctx))
	assert.Equal(t, 1, second.Count())
	assert.Equal(t, "pos-1", second.Positions()[0].ID)
}

func TestPersistFailureKeepsPositionAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.failWith = errors.New("disk full")

	l := newTestLedger(store)

	var failedID string
	l.OnPersistFailure(func(_ context.Context, positionID string, err error) {
		failedID = positionID
		assert.Error(t, err)
	})

	l.Record(ctx, successResult(position("pos-1", 0.40, 0.45, 100)))

	// In-memory state is kept despite the failed write.
	assert.Equal(t, 1, l.Count())
	assert.Equal(t, "pos-1", failedID)
}

func TestFindExitsThresholdAndSorting(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(newMemStore())

	// Entry cost 0.85/contract. Exit bids sum to 0.95: clear profit.
	rich := position("pos-rich", 0.40, 0.45, 100)
	// Entry cost 0.97/contract. Exit bids sum to 0.95: a loss.
	poor := position("pos-poor", 0.50, 0.47, 100)
	poor.Pair.EventID = "btc-100k"

	l.Record(ctx, successResult(rich))
	l.Record(ctx, successResult(poor))

	quotes := map[string]domain.QuotePair{
		rich.Pair.Key(): {
			Pair:       rich.Pair,
			Polymarket: domain.Quote{Bid: 0.50, Ask: 0.52},
			// Kalshi YES ask 0.55 implies a NO bid of 0.45.
			Kalshi: domain.Quote{Bid: 0.53, Ask: 0.55},
		},
		poor.Pair.Key(): {
			Pair:       poor.Pair,
			Polymarket: domain.Quote{Bid: 0.50, Ask: 0.52},
			Kalshi:     domain.Quote{Bid: 0.53, Ask: 0.55},
		},
	}

	exits := l.FindExits(quotes)
	require.Len(t, exits, 1)
	assert.Equal(t, "pos-rich", exits[0].Position.ID)
	assert.InDelta(t, 0.50, exits[0].PolymarketBid, 1e-9)
	assert.InDelta(t, 0.45, exits[0].KalshiBid, 1e-9)
	assert.Greater(t, exits[0].ExitProfit, 0.0)
	assert.GreaterOrEqual(t, exits[0].ProfitRate, 0.005)
}

func TestFindExitsSkipsPositionsWithoutQuotes(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(newMemStore())
	l.Record(ctx, successResult(position("pos-1", 0.40, 0.45, 100)))

	exits := l.FindExits(map[string]domain.QuotePair{})
	assert.Empty(t, exits)
}
