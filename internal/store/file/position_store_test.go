package file

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPosition(id string, openedAt time.Time) domain.ArbitragePosition {
	return domain.ArbitragePosition{
		ID: id,
		Pair: domain.ContractPair{
			EventID:           "fed-hike-sep",
			Outcome:           "yes",
			PolymarketTokenID: "7132107",
			KalshiTicker:      "FED-25SEP-HIKE",
		},
		Mode:            domain.ModeTakerTaker,
		PolymarketPrice: 0.45,
		KalshiPrice:     0.50,
		MatchedQuantity: 100,
		EntryCost:       96.75,
		ExpectedProfit:  3.25,
		OpenedAt:        openedAt,
	}
}

func TestPositionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "positions.json")

	s, err := NewPositionStore(path)
	require.NoError(t, err)

	now := time.Now().UTC().Truncate(time.Second)
	p1 := testPosition("pos-1", now)
	p2 := testPosition("pos-2", now.Add(time.Minute))

	require.NoError(t, s.Save(ctx, p1))
	require.NoError(t, s.Save(ctx, p2))

	// A fresh store instance must see both positions.
	s2, err := NewPositionStore(path)
	require.NoError(t, err)

	got, err := s2.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pos-1", got[0].ID)
	assert.Equal(t, "pos-2", got[1].ID)
	assert.Equal(t, p1, got[0])
}

func TestPositionStoreSaveReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := NewPositionStore(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)

	p := testPosition("pos-1", time.Now().UTC())
	require.NoError(t, s.Save(ctx, p))

	p.MatchedQuantity = 50
	require.NoError(t, s.Save(ctx, p))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 50, got[0].MatchedQuantity, 1e-9)
}

func TestPositionStoreDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "positions.json")
	s, err := NewPositionStore(path)
	require.NoError(t, err)

	require.NoError(t, s.Save(ctx, testPosition("pos-1", time.Now().UTC())))
	require.NoError(t, s.Delete(ctx, "pos-1"))

	err = s.Delete(ctx, "pos-1")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	// Deletion persists across reloads.
	s2, err := NewPositionStore(path)
	require.NoError(t, err)
	got, err := s2.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPositionStoreMissingFile(t *testing.T) {
	s, err := NewPositionStore(filepath.Join(t.TempDir(), "nope", "positions.json"))
	require.NoError(t, err)

	got, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
