package domain

import "time"

// TradeResult reports the outcome of executing one opportunity.
type TradeResult struct {
	OpportunityID string
	Success       bool
	Position      *ArbitragePosition // nil when nothing was opened
	Message       string
	// RequiresPanicSell is set when one leg filled without the other
	// and a compensating order was triggered. The flag marks the
	// attempt for audit regardless of whether the compensation filled.
	RequiresPanicSell bool
	ExecutedAt        time.Time
}

// TradeKind separates entries from unwinds in the trade history.
type TradeKind string

const (
	TradeKindEntry TradeKind = "entry"
	TradeKindExit  TradeKind = "exit"
)

// TradeRecord is the durable history row for a completed execution.
type TradeRecord struct {
	ID              string
	EventID         string
	Outcome         string
	Mode            ExecutionMode
	Kind            TradeKind
	Quantity        float64
	PolymarketPrice float64
	KalshiPrice     float64
	Profit          float64
	Success         bool
	Message         string
	ExecutedAt      time.Time
}

// TradeStats aggregates the trade history for reporting.
type TradeStats struct {
	Trades      int64
	Wins        int64
	TotalProfit float64
	AvgProfit   float64
	FirstTrade  time.Time
	LastTrade   time.Time
}

// WinRate returns the fraction of trades that closed profitably.
func (s TradeStats) WinRate() float64 {
	if s.Trades == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Trades)
}
