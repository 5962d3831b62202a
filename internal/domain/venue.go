package domain

import "context"

// Venue identifies a trading platform.
type Venue string

const (
	VenuePolymarket Venue = "polymarket"
	VenueKalshi     Venue = "kalshi"
)

// VenueClient places and manages orders on a single venue. The
// contract ID is venue-specific: a CLOB token ID on Polymarket, a
// market ticker on Kalshi.
type VenueClient interface {
	Venue() Venue
	PlaceLimitOrder(ctx context.Context, contractID string, side OrderSide, price, quantity float64) (OrderResult, error)
	PlaceMarketOrder(ctx context.Context, contractID string, side OrderSide, quantity float64) (OrderResult, error)
	CancelOrder(ctx context.Context, orderID string) error
	GetOrder(ctx context.Context, orderID string) (Order, error)
}

// FeeModel computes venue trading fees in dollars for a fill of
// quantity contracts at the given price.
type FeeModel interface {
	TakerFee(quantity, price float64) float64
	MakerFee(quantity, price float64) float64
}
