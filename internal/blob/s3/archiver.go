package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// TradeArchiveStore provides the subset of the trade store the archiver
// needs. The Postgres trade store satisfies it implicitly; the archiver only
// ever reads aged rows and prunes what it has safely uploaded.
type TradeArchiveStore interface {
	// ListBefore returns all trades executed strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error)
	// DeleteBefore removes all trades executed strictly before the cutoff
	// and reports how many rows were removed.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver implements domain.Archiver by exporting aged trade history to
// object storage as JSONL and pruning the exported rows from the primary
// store. Pruning only happens after the upload has succeeded, so a failed
// upload leaves the database untouched.
type Archiver struct {
	writer domain.BlobWriter
	trades TradeArchiveStore
}

var _ domain.Archiver = (*Archiver)(nil)

// NewArchiver creates an archiver backed by the given blob writer and trade
// store.
func NewArchiver(writer domain.BlobWriter, trades TradeArchiveStore) *Archiver {
	return &Archiver{writer: writer, trades: trades}
}

// ArchiveTrades exports all trades executed before the cutoff, uploads them
// under a month-partitioned key, and deletes the exported rows. It returns
// the number of trades archived. A cutoff with no matching trades is a
// no-op.
func (a *Archiver) ArchiveTrades(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.trades.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: list trades for archive: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	data, err := marshalJSONL(recs)
	if err != nil {
		return 0, fmt.Errorf("s3blob: encode trade archive: %w", err)
	}

	path := archivePath("trades", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: upload trade archive %s: %w", path, err)
	}

	deleted, err := a.trades.DeleteBefore(ctx, before)
	if err != nil {
		// The archive is already durable; surface the prune failure so the
		// caller can retry, which will re-upload the same rows.
		return deleted, fmt.Errorf("s3blob: prune archived trades: %w", err)
	}
	return deleted, nil
}

// archivePath builds the object key for an archive batch, partitioned by the
// cutoff month: archive/<kind>/<YYYY-MM>.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
