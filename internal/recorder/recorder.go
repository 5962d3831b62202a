// Package recorder turns every execution attempt into a durable trade
// record and aggregates the history into operator-facing stats.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// Recorder writes trade history through a domain.TradeStore. A recording
// failure is logged and swallowed: audit history must never break a cycle.
type Recorder struct {
	store domain.TradeStore
	log   *slog.Logger
}

func New(store domain.TradeStore, log *slog.Logger) *Recorder {
	return &Recorder{
		store: store,
		log:   log.With(slog.String("component", "recorder")),
	}
}

// RecordEntry stores the outcome of executing an entry opportunity.
func (r *Recorder) RecordEntry(ctx context.Context, opp domain.ArbitrageOpportunity, result domain.TradeResult) {
	rec := domain.TradeRecord{
		ID:              uuid.New().String(),
		EventID:         opp.Pair.EventID,
		Outcome:         opp.Pair.Outcome,
		Mode:            opp.Mode,
		Kind:            domain.TradeKindEntry,
		Quantity:        opp.Quantity,
		PolymarketPrice: opp.PolymarketPrice,
		KalshiPrice:     opp.KalshiPrice,
		Success:         result.Success,
		Message:         resultMessage(result),
		ExecutedAt:      result.ExecutedAt,
	}

	if result.Position != nil {
		rec.Quantity = result.Position.MatchedQuantity
		rec.PolymarketPrice = result.Position.PolymarketPrice
		rec.KalshiPrice = result.Position.KalshiPrice
		rec.Profit = result.Position.ExpectedProfit
	}

	r.insert(ctx, rec)
}

// RecordExit stores the outcome of unwinding a position early.
func (r *Recorder) RecordExit(ctx context.Context, exit domain.ExitOpportunity, result domain.TradeResult) {
	rec := domain.TradeRecord{
		ID:              uuid.New().String(),
		EventID:         exit.Position.Pair.EventID,
		Outcome:         exit.Position.Pair.Outcome,
		Mode:            exit.Position.Mode,
		Kind:            domain.TradeKindExit,
		Quantity:        exit.Position.MatchedQuantity,
		PolymarketPrice: exit.PolymarketBid,
		KalshiPrice:     exit.KalshiBid,
		Success:         result.Success,
		Message:         resultMessage(result),
		ExecutedAt:      result.ExecutedAt,
	}
	if result.Success {
		rec.Profit = exit.ExitProfit
	}

	r.insert(ctx, rec)
}

// Stats returns the aggregated trade history.
func (r *Recorder) Stats(ctx context.Context) (domain.TradeStats, error) {
	return r.store.Summary(ctx)
}

// Recent returns the latest trade records, newest first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	return r.store.ListRecent(ctx, limit)
}

// Report renders a short text summary of the trade history.
func (r *Recorder) Report(ctx context.Context) (string, error) {
	stats, err := r.store.Summary(ctx)
	if err != nil {
		return "", fmt.Errorf("recorder: report: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Trades: %d\n", stats.Trades)
	fmt.Fprintf(&b, "Wins: %d (%.1f%%)\n", stats.Wins, stats.WinRate()*100)
	fmt.Fprintf(&b, "Total profit: $%.2f\n", stats.TotalProfit)
	fmt.Fprintf(&b, "Average profit: $%.2f\n", stats.AvgProfit)
	if stats.Trades > 0 {
		fmt.Fprintf(&b, "First trade: %s\n", stats.FirstTrade.Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "Last trade: %s\n", stats.LastTrade.Format("2006-01-02 15:04:05"))
	}
	return b.String(), nil
}

func (r *Recorder) insert(ctx context.Context, rec domain.TradeRecord) {
	if err := r.store.Insert(ctx, rec); err != nil {
		r.log.Error("trade record insert failed",
			slog.String("trade_id", rec.ID),
			slog.String("event", rec.EventID),
			slog.String("error", err.Error()))
		return
	}

	r.log.Info("trade recorded",
		slog.String("trade_id", rec.ID),
		slog.String("event", rec.EventID),
		slog.String("kind", string(rec.Kind)),
		slog.Bool("success", rec.Success),
		slog.Float64("profit", rec.Profit))
}

func resultMessage(result domain.TradeResult) string {
	msg := result.Message
	if result.RequiresPanicSell {
		if msg != "" {
			msg += "; "
		}
		msg += "panic unwind triggered"
	}
	return msg
}
