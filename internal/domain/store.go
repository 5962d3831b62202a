package domain

import (
	"context"
	"time"
)

// PositionStore persists open arbitrage positions. Save replaces any
// existing position with the same ID; Delete of a missing ID returns
// ErrNotFound.
type PositionStore interface {
	Save(ctx context.Context, pos ArbitragePosition) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]ArbitragePosition, error)
}

// TradeStore persists completed trade history.
type TradeStore interface {
	Insert(ctx context.Context, rec TradeRecord) error
	ListRecent(ctx context.Context, limit int) ([]TradeRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]TradeRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	Summary(ctx context.Context) (TradeStats, error)
}
