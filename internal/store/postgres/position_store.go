package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

// Save inserts the position, replacing any existing row with the same ID.
func (s *PositionStore) Save(ctx context.Context, pos domain.ArbitragePosition) error {
	const query = `
		INSERT INTO positions (
			id, event_id, outcome, pm_token_id, kalshi_ticker, mode,
			pm_price, kalshi_price, matched_quantity, entry_cost,
			expected_profit, opened_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			event_id = EXCLUDED.event_id,
			outcome = EXCLUDED.outcome,
			pm_token_id = EXCLUDED.pm_token_id,
			kalshi_ticker = EXCLUDED.kalshi_ticker,
			mode = EXCLUDED.mode,
			pm_price = EXCLUDED.pm_price,
			kalshi_price = EXCLUDED.kalshi_price,
			matched_quantity = EXCLUDED.matched_quantity,
			entry_cost = EXCLUDED.entry_cost,
			expected_profit = EXCLUDED.expected_profit,
			opened_at = EXCLUDED.opened_at,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		pos.ID, pos.Pair.EventID, pos.Pair.Outcome,
		pos.Pair.PolymarketTokenID, pos.Pair.KalshiTicker, string(pos.Mode),
		pos.PolymarketPrice, pos.KalshiPrice, pos.MatchedQuantity, pos.EntryCost,
		pos.ExpectedProfit, pos.OpenedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: save position %s: %w", pos.ID, err)
	}
	return nil
}

// Delete removes a position by ID, returning domain.ErrNotFound when no row
// matched.
func (s *PositionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM positions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: position %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns all open positions ordered by open time.
func (s *PositionStore) List(ctx context.Context) ([]domain.ArbitragePosition, error) {
	const query = `
		SELECT id, event_id, outcome, pm_token_id, kalshi_ticker, mode,
		       pm_price, kalshi_price, matched_quantity, entry_cost,
		       expected_profit, opened_at
		FROM positions
		ORDER BY opened_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: list positions: %w", err)
	}
	defer rows.Close()

	return scanPositions(rows)
}

func scanPositions(rows pgx.Rows) ([]domain.ArbitragePosition, error) {
	var positions []domain.ArbitragePosition
	for rows.Next() {
		var p domain.ArbitragePosition
		var mode string

		if err := rows.Scan(
			&p.ID, &p.Pair.EventID, &p.Pair.Outcome,
			&p.Pair.PolymarketTokenID, &p.Pair.KalshiTicker, &mode,
			&p.PolymarketPrice, &p.KalshiPrice, &p.MatchedQuantity, &p.EntryCost,
			&p.ExpectedProfit, &p.OpenedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		p.Mode = domain.ExecutionMode(mode)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// Compile-time interface check.
var _ domain.PositionStore = (*PositionStore)(nil)
