package domain

import "time"

// Quote is a top-of-book snapshot for one contract on one venue.
// Prices are probabilities in [0,1]; sizes are contract counts.
type Quote struct {
	Venue      Venue
	ContractID string
	Bid        float64
	Ask        float64
	BidSize    float64
	AskSize    float64
	UpdatedAt  time.Time
}

// Midpoint returns the mid price between bid and ask.
func (q Quote) Midpoint() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread returns the bid/ask spread.
func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// Crossed reports whether the book is in an invalid crossed state.
func (q Quote) Crossed() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Bid >= q.Ask
}

// ContractPair links the same binary outcome across both venues:
// the YES token on Polymarket and the ticker whose NO side is the
// complement on Kalshi.
type ContractPair struct {
	EventID           string
	Outcome           string
	PolymarketTokenID string
	KalshiTicker      string
}

// Key uniquely identifies the pair within the ledger and cache.
func (p ContractPair) Key() string {
	return p.EventID + ":" + p.Outcome
}

// QuotePair is the live state of both venues for one contract pair
// at detection time.
type QuotePair struct {
	Pair       ContractPair
	Polymarket Quote
	Kalshi     Quote
}
