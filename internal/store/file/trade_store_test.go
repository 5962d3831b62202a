package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

func tradeFixture(id string, profit float64, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ID:              id,
		EventID:         "evt-1",
		Outcome:         "yes",
		Mode:            domain.ModeTakerTaker,
		Kind:            domain.TradeKindEntry,
		Quantity:        100,
		PolymarketPrice: 0.40,
		KalshiPrice:     0.45,
		Profit:          profit,
		Success:         profit > 0,
		ExecutedAt:      at,
	}
}

func newTestTradeStore(t *testing.T) *TradeStore {
	t.Helper()
	s, err := NewTradeStore(filepath.Join(t.TempDir(), "data", "trades.jsonl"))
	require.NoError(t, err)
	return s
}

func TestTradeLogRoundTrip(t *testing.T) {
	s := newTestTradeStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, tradeFixture("t1", 5, base)))
	require.NoError(t, s.Insert(ctx, tradeFixture("t2", -1, base.Add(time.Hour))))
	require.NoError(t, s.Insert(ctx, tradeFixture("t3", 2, base.Add(2*time.Hour))))

	recs, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "t3", recs[0].ID, "newest first")
	assert.Equal(t, "t2", recs[1].ID)
	assert.Equal(t, domain.ModeTakerTaker, recs[0].Mode)
}

func TestTradeLogSummary(t *testing.T) {
	s := newTestTradeStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, tradeFixture("t1", 5, base)))
	require.NoError(t, s.Insert(ctx, tradeFixture("t2", -1, base.Add(time.Hour))))

	stats, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Trades)
	assert.EqualValues(t, 1, stats.Wins)
	assert.InDelta(t, 4, stats.TotalProfit, 1e-9)
	assert.InDelta(t, 2, stats.AvgProfit, 1e-9)
	assert.Equal(t, base, stats.FirstTrade)
	assert.Equal(t, base.Add(time.Hour), stats.LastTrade)
}

func TestTradeLogDeleteBefore(t *testing.T) {
	s := newTestTradeStore(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, tradeFixture("t1", 5, base)))
	require.NoError(t, s.Insert(ctx, tradeFixture("t2", 1, base.Add(48*time.Hour))))

	old, err := s.ListBefore(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, old, 1)
	assert.Equal(t, "t1", old[0].ID)

	n, err := s.DeleteBefore(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	recs, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "t2", recs[0].ID)
}

func TestTradeLogEmpty(t *testing.T) {
	s := newTestTradeStore(t)
	ctx := context.Background()

	recs, err := s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)

	stats, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Trades)

	n, err := s.DeleteBefore(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}
