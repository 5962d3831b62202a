package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

type memWriter struct {
	puts map[string][]byte
	err  error
}

func (w *memWriter) Put(_ context.Context, path string, data io.Reader, _ string) error {
	if w.err != nil {
		return w.err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	if w.puts == nil {
		w.puts = map[string][]byte{}
	}
	w.puts[path] = b
	return nil
}

func (w *memWriter) PutMultipart(ctx context.Context, path string, data io.Reader, _ int64) error {
	return w.Put(ctx, path, data, "")
}

type memArchiveStore struct {
	trades    []domain.TradeRecord
	listErr   error
	deleteErr error
	deleted   *time.Time
}

func (s *memArchiveStore) ListBefore(_ context.Context, before time.Time) ([]domain.TradeRecord, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.TradeRecord
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *memArchiveStore) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	if s.deleteErr != nil {
		return 0, s.deleteErr
	}
	s.deleted = &before
	var kept []domain.TradeRecord
	var n int64
	for _, t := range s.trades {
		if t.ExecutedAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, t)
	}
	s.trades = kept
	return n, nil
}

func archiveFixture(id string, at time.Time) domain.TradeRecord {
	return domain.TradeRecord{
		ID:         id,
		EventID:    "evt-1",
		Outcome:    "yes",
		Mode:       domain.ModeTakerTaker,
		Kind:       domain.TradeKindEntry,
		Quantity:   100,
		Success:    true,
		ExecutedAt: at,
	}
}

func TestArchiveTradesUploadsAndPrunes(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	store := &memArchiveStore{trades: []domain.TradeRecord{
		archiveFixture("a", cutoff.Add(-48*time.Hour)),
		archiveFixture("b", cutoff.Add(-time.Hour)),
		archiveFixture("c", cutoff.Add(time.Hour)), // too recent, stays
	}}
	writer := &memWriter{}

	n, err := NewArchiver(writer, store).ArchiveTrades(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	data, ok := writer.puts["archive/trades/2026-03.jsonl"]
	require.True(t, ok, "expected month-partitioned key, got %v", writer.puts)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"a"`)

	require.NotNil(t, store.deleted)
	assert.Len(t, store.trades, 1)
	assert.Equal(t, "c", store.trades[0].ID)
}

func TestArchiveTradesEmptyIsNoop(t *testing.T) {
	store := &memArchiveStore{}
	writer := &memWriter{}

	n, err := NewArchiver(writer, store).ArchiveTrades(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.puts)
	assert.Nil(t, store.deleted)
}

func TestArchiveTradesUploadFailureLeavesStore(t *testing.T) {
	cutoff := time.Now()
	store := &memArchiveStore{trades: []domain.TradeRecord{
		archiveFixture("a", cutoff.Add(-time.Hour)),
	}}
	writer := &memWriter{err: errors.New("bucket unavailable")}

	_, err := NewArchiver(writer, store).ArchiveTrades(context.Background(), cutoff)
	require.Error(t, err)
	assert.Nil(t, store.deleted)
	assert.Len(t, store.trades, 1)
}

func TestMarshalJSONL(t *testing.T) {
	recs := []domain.TradeRecord{
		archiveFixture("x", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)),
		archiveFixture("y", time.Date(2026, 1, 3, 3, 4, 5, 0, time.UTC)),
	}
	data, err := marshalJSONL(recs)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(data, []byte("\n")))
}
