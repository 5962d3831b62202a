package kalshi

// Fees implements the Kalshi trading fee schedule. Fees are convex in price:
// they peak at 50c and vanish toward the extremes.
type Fees struct {
	// MakerProgram enables the reduced resting-order fee that applies to
	// tickers enrolled in Kalshi's maker fee program. Outside the program
	// resting orders are free.
	MakerProgram bool
}

// TakerFee returns the fee in dollars for an immediately-matched fill of
// quantity contracts at the given price: 0.07 x C x P x (1-P).
func (f Fees) TakerFee(quantity, price float64) float64 {
	return 0.07 * quantity * price * (1 - price)
}

// MakerFee returns the fee in dollars for a resting fill: 0.0175 x C x P x
// (1-P) on maker-program tickers, zero otherwise.
func (f Fees) MakerFee(quantity, price float64) float64 {
	if !f.MakerProgram {
		return 0
	}
	return 0.0175 * quantity * price * (1 - price)
}
