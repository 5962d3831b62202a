package domain

import "time"

// ExecutionMode selects how the two legs of an arbitrage are placed.
type ExecutionMode string

const (
	// ModeTakerTaker crosses the spread on both venues at once.
	ModeTakerTaker ExecutionMode = "T2T"
	// ModeMakerTaker rests a maker order on Polymarket and hedges
	// any fill with a taker order on Kalshi.
	ModeMakerTaker ExecutionMode = "M2T"
)

// ArbitrageOpportunity is a priced, sized entry candidate for one
// contract pair: buy the outcome on Polymarket, buy its complement
// on Kalshi, collect $1 per contract at settlement.
type ArbitrageOpportunity struct {
	ID   string
	Pair ContractPair
	Mode ExecutionMode
	// PolymarketPrice is the taker ask for T2T or the resting limit
	// price for M2T.
	PolymarketPrice float64
	// KalshiPrice is the cost of the complementary Kalshi side,
	// 1 minus the YES bid.
	KalshiPrice     float64
	Quantity        float64
	CostPerContract float64 // total outlay per contract, fees included
	NetProfit       float64 // per contract at settlement
	ProfitRate      float64 // NetProfit / CostPerContract
	DetectedAt      time.Time
}

// TotalProfit returns the expected settlement profit for the full
// sized quantity.
func (o ArbitrageOpportunity) TotalProfit() float64 {
	return o.NetProfit * o.Quantity
}
