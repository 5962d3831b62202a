// Package ledger tracks open cross-venue positions. Every mutation is
// written through to the durable store; on startup the prior state is
// reloaded so positions survive restarts.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// PersistFailureHandler is invoked when a durable write fails after the
// in-memory state has already been updated. The in-memory record is kept so
// the position remains tracked; the handler surfaces the desync loudly.
type PersistFailureHandler func(ctx context.Context, positionID string, err error)

// Params are the exit thresholds the ledger applies.
type Params struct {
	MinExitProfitRate float64
}

// Ledger is an in-memory position map with write-through persistence.
type Ledger struct {
	store     domain.PositionStore
	params    Params
	pmFees    domain.FeeModel
	klFees    domain.FeeModel
	onPersist PersistFailureHandler
	log       *slog.Logger

	mu        sync.RWMutex
	positions map[string]domain.ArbitragePosition
}

func New(store domain.PositionStore, params Params, pmFees, klFees domain.FeeModel, log *slog.Logger) *Ledger {
	return &Ledger{
		store:     store,
		params:    params,
		pmFees:    pmFees,
		klFees:    klFees,
		log:       log.With(slog.String("component", "ledger")),
		positions: make(map[string]domain.ArbitragePosition),
	}
}

// OnPersistFailure registers the handler called when a durable write fails.
func (l *Ledger) OnPersistFailure(h PersistFailureHandler) {
	l.onPersist = h
}

// Load reloads positions persisted by a prior run.
func (l *Ledger) Load(ctx context.Context) error {
	positions, err := l.store.List(ctx)
	if err != nil {
		return fmt.Errorf("ledger: load: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range positions {
		l.positions[p.ID] = p
	}

	if len(positions) > 0 {
		l.log.Info("reloaded open positions", slog.Int("count", len(positions)))
	}
	return nil
}

// Record stores the position from a successful execution. Results without a
// position (failures, zero fills) are ignored without error.
func (l *Ledger) Record(ctx context.Context, result domain.TradeResult) {
	if !result.Success || result.Position == nil || result.Position.MatchedQuantity <= 0 {
		return
	}
	pos := *result.Position

	l.mu.Lock()
	l.positions[pos.ID] = pos
	l.mu.Unlock()

	l.log.Info("position opened",
		slog.String("position_id", pos.ID),
		slog.String("event", pos.Pair.EventID),
		slog.Float64("quantity", pos.MatchedQuantity),
		slog.Float64("entry_cost", pos.EntryCost),
		slog.Float64("expected_profit", pos.ExpectedProfit))

	l.persist(ctx, pos.ID, func(ctx context.Context) error {
		return l.store.Save(ctx, pos)
	})
}

// Remove deletes a position after its unwind is confirmed. Removing an
// unknown ID is a no-op.
func (l *Ledger) Remove(ctx context.Context, positionID string) {
	l.mu.Lock()
	_, known := l.positions[positionID]
	delete(l.positions, positionID)
	l.mu.Unlock()

	if !known {
		return
	}

	l.log.Info("position closed", slog.String("position_id", positionID))

	l.persist(ctx, positionID, func(ctx context.Context) error {
		err := l.store.Delete(ctx, positionID)
		if err != nil && !isNotFound(err) {
			return err
		}
		return nil
	})
}

// Positions returns a snapshot of the open positions ordered by open time.
func (l *Ledger) Positions() []domain.ArbitragePosition {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]domain.ArbitragePosition, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Count returns the number of open positions.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}

// OpenValue returns the total entry cost tied up in open positions.
func (l *Ledger) OpenValue() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var total float64
	for _, p := range l.positions {
		total += p.EntryCost
	}
	return total
}

// FindExits prices an early unwind of every open position against the
// current quotes: sell the Polymarket holding at its bid, close the Kalshi
// complement at the cost implied by the YES ask. Only exits clearing the
// minimum exit rate are returned, sorted by profit rate descending.
func (l *Ledger) FindExits(quotes map[string]domain.QuotePair) []domain.ExitOpportunity {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var exits []domain.ExitOpportunity
	now := time.Now()

	for _, pos := range l.positions {
		qp, ok := quotes[pos.Pair.Key()]
		if !ok {
			continue
		}

		pmBid := qp.Polymarket.Bid
		klBid := 1 - qp.Kalshi.Ask // bid for the held NO side
		if pmBid <= 0 || klBid <= 0 {
			continue
		}

		qty := pos.MatchedQuantity
		proceeds := pmBid*qty - l.pmFees.TakerFee(qty, pmBid) +
			klBid*qty - l.klFees.TakerFee(qty, klBid)

		profit := proceeds - pos.EntryCost
		if pos.EntryCost <= 0 {
			continue
		}
		rate := profit / pos.EntryCost
		if rate < l.params.MinExitProfitRate {
			continue
		}

		exits = append(exits, domain.ExitOpportunity{
			Position:      pos,
			PolymarketBid: pmBid,
			KalshiBid:     klBid,
			ExitValue:     proceeds,
			ExitProfit:    profit,
			ProfitRate:    rate,
			DetectedAt:    now,
		})
	}

	sort.Slice(exits, func(i, j int) bool {
		return exits[i].ProfitRate > exits[j].ProfitRate
	})
	return exits
}

// persist runs a durable write and routes failure through the registered
// handler. The in-memory state is authoritative in the meantime.
func (l *Ledger) persist(ctx context.Context, positionID string, write func(context.Context) error) {
	if err := write(ctx); err != nil {
		l.log.Error("ledger persist failed",
			slog.String("position_id", positionID),
			slog.String("error", err.Error()))
		if l.onPersist != nil {
			l.onPersist(ctx, positionID, err)
		}
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
