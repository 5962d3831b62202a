package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteCacheSetGet(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	q := domain.Quote{
		Venue:      domain.VenuePolymarket,
		ContractID: "tok-1",
		Bid:        0.44,
		Ask:        0.47,
		BidSize:    150,
		AskSize:    120,
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, qc.SetQuote(ctx, q))

	got, err := qc.GetQuote(ctx, domain.VenuePolymarket, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, q, got)

	// Same contract ID on the other venue is a separate entry.
	_, err = qc.GetQuote(ctx, domain.VenueKalshi, "tok-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Overwrite keeps only the latest.
	q2 := q
	q2.Bid = 0.45
	require.NoError(t, qc.SetQuote(ctx, q2))
	got, err = qc.GetQuote(ctx, domain.VenuePolymarket, "tok-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got.Bid, 1e-9)
}

func TestLockManagerExclusion(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()

	unlock, err := lm.Acquire(ctx, "pair-1", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "pair-1", time.Minute)
	assert.True(t, errors.Is(err, domain.ErrLockHeld))

	// Different key is independent.
	unlock2, err := lm.Acquire(ctx, "pair-2", time.Minute)
	require.NoError(t, err)
	unlock2()

	unlock()
	unlock() // safe to call twice

	_, err = lm.Acquire(ctx, "pair-1", time.Minute)
	assert.NoError(t, err)
}

func TestLockManagerTTLExpiry(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()

	_, err := lm.Acquire(ctx, "pair-1", 10*time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	// Expired lock can be re-acquired without an explicit unlock.
	_, err = lm.Acquire(ctx, "pair-1", time.Minute)
	assert.NoError(t, err)
}
