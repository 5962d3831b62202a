package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// Aggressive price caps for market-style orders. The CLOB has no true
// market order type, so we send FAK limits at the edge of the price range.
const (
	marketBuyPrice  = 0.99
	marketSellPrice = 0.01
)

// Adapter exposes the CLOB client through the venue-neutral trading
// interface. Limit orders go out as GTC, market orders as FAK capped at an
// aggressive price.
type Adapter struct {
	client *ClobClient
	log    *slog.Logger
}

var _ domain.VenueClient = (*Adapter)(nil)

func NewAdapter(client *ClobClient, log *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		log:    log.With(slog.String("component", "polymarket")),
	}
}

func (a *Adapter) Venue() domain.Venue {
	return domain.VenuePolymarket
}

func (a *Adapter) PlaceLimitOrder(ctx context.Context, contractID string, side domain.OrderSide, price, quantity float64) (domain.OrderResult, error) {
	return a.place(ctx, OrderArgs{
		TokenID:   contractID,
		Side:      side,
		Price:     price,
		Size:      quantity,
		OrderType: "GTC",
	})
}

func (a *Adapter) PlaceMarketOrder(ctx context.Context, contractID string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	price := marketBuyPrice
	if side == domain.OrderSideSell {
		price = marketSellPrice
	}

	return a.place(ctx, OrderArgs{
		TokenID:   contractID,
		Side:      side,
		Price:     price,
		Size:      quantity,
		OrderType: "FAK",
	})
}

func (a *Adapter) place(ctx context.Context, args OrderArgs) (domain.OrderResult, error) {
	a.log.Debug("placing order",
		slog.String("token_id", args.TokenID),
		slog.String("side", string(args.Side)),
		slog.String("order_type", args.OrderType),
		slog.Float64("price", args.Price),
		slog.Float64("size", args.Size),
	)

	result, err := a.client.PlaceOrder(ctx, args)
	if err != nil {
		return result, fmt.Errorf("polymarket: place order: %w", err)
	}

	return result, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	return a.client.CancelOrder(ctx, orderID)
}

func (a *Adapter) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return a.client.GetOrder(ctx, orderID)
}

// CancelAll cancels every resting order for the wallet. The shutdown
// liquidation path uses it to clear unfilled maker orders.
func (a *Adapter) CancelAll(ctx context.Context) error {
	return a.client.CancelAll(ctx)
}
