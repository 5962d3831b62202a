package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `id, event_id, outcome, mode, kind, quantity,
	pm_price, kalshi_price, profit, success, message, executed_at`

// Insert appends one trade to the history.
func (s *TradeStore) Insert(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, event_id, outcome, mode, kind, quantity,
			pm_price, kalshi_price, profit, success, message, executed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.EventID, rec.Outcome, string(rec.Mode), string(rec.Kind), rec.Quantity,
		rec.PolymarketPrice, rec.KalshiPrice, rec.Profit, rec.Success, rec.Message, rec.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", rec.ID, err)
	}
	return nil
}

// ListRecent returns the most recent trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades
		ORDER BY executed_at DESC
		LIMIT $1`, tradeSelectCols)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// ListBefore returns all trades executed before the given time, oldest first.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.TradeRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM trades
		WHERE executed_at < $1
		ORDER BY executed_at`, tradeSelectCols)

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", before, err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// DeleteBefore removes trades executed before the given time, returning the
// number of rows deleted.
func (s *TradeStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trades WHERE executed_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete trades before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

// Summary aggregates the full trade history.
func (s *TradeStore) Summary(ctx context.Context) (domain.TradeStats, error) {
	const query = `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE success AND profit > 0),
		       COALESCE(SUM(profit), 0),
		       COALESCE(AVG(profit), 0),
		       COALESCE(MIN(executed_at), 'epoch'::timestamptz),
		       COALESCE(MAX(executed_at), 'epoch'::timestamptz)
		FROM trades`

	var stats domain.TradeStats
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.Trades, &stats.Wins,
		&stats.TotalProfit, &stats.AvgProfit,
		&stats.FirstTrade, &stats.LastTrade,
	)
	if err != nil {
		return domain.TradeStats{}, fmt.Errorf("postgres: trade summary: %w", err)
	}
	return stats, nil
}

func scanTrades(rows pgx.Rows) ([]domain.TradeRecord, error) {
	var trades []domain.TradeRecord
	for rows.Next() {
		var t domain.TradeRecord
		var mode, kind string

		if err := rows.Scan(
			&t.ID, &t.EventID, &t.Outcome, &mode, &kind, &t.Quantity,
			&t.PolymarketPrice, &t.KalshiPrice, &t.Profit, &t.Success, &t.Message, &t.ExecutedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Mode = domain.ExecutionMode(mode)
		t.Kind = domain.TradeKind(kind)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
