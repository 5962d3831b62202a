package domain

import "time"

// ArbitragePosition is a matched two-legged holding: long the outcome
// on Polymarket and long its complement on Kalshi. Only the matched
// quantity is recorded; unmatched remainders are unwound at entry.
type ArbitragePosition struct {
	ID              string
	Pair            ContractPair
	Mode            ExecutionMode
	PolymarketPrice float64
	KalshiPrice     float64
	MatchedQuantity float64
	EntryCost       float64 // sum of price x quantity across both legs
	ExpectedProfit  float64 // at settlement
	OpenedAt        time.Time
}

// ExitOpportunity prices an early unwind of an open position by
// selling both legs into the current bids instead of waiting for
// settlement.
type ExitOpportunity struct {
	Position      ArbitragePosition
	PolymarketBid float64
	KalshiBid     float64 // bid for the held complement side
	ExitValue     float64 // proceeds after taker fees
	ExitProfit    float64 // ExitValue minus entry cost
	ProfitRate    float64 // ExitProfit / EntryCost
	DetectedAt    time.Time
}
