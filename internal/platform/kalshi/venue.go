package kalshi

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// Adapter exposes the Kalshi exchange through the venue-neutral client
// interface. Contract IDs are market tickers, and every order trades the NO
// side: prices passed in and reported back are NO-side probabilities, i.e.
// 1 minus the YES price.
type Adapter struct {
	client *Client
	log    *slog.Logger
}

var _ domain.VenueClient = (*Adapter)(nil)

// NewAdapter wraps a Kalshi REST client as a venue adapter.
func NewAdapter(client *Client, log *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		log:    log.With(slog.String("component", "kalshi")),
	}
}

// Venue returns the venue identifier.
func (a *Adapter) Venue() domain.Venue {
	return domain.VenueKalshi
}

// PlaceLimitOrder rests a NO-side limit order on the given ticker.
func (a *Adapter) PlaceLimitOrder(ctx context.Context, contractID string, side domain.OrderSide, price, quantity float64) (domain.OrderResult, error) {
	return a.place(ctx, Order{
		Ticker:        contractID,
		ClientOrderID: uuid.NewString(),
		Action:        string(side),
		Side:          "no",
		Type:          "limit",
		Count:         contractCount(quantity),
		NoPrice:       ptr(probToCents(price)),
	})
}

// PlaceMarketOrder crosses the spread with a NO-side market order.
func (a *Adapter) PlaceMarketOrder(ctx context.Context, contractID string, side domain.OrderSide, quantity float64) (domain.OrderResult, error) {
	order := Order{
		Ticker:        contractID,
		ClientOrderID: uuid.NewString(),
		Action:        string(side),
		Side:          "no",
		Type:          "market",
		Count:         contractCount(quantity),
	}
	if side == domain.OrderSideBuy {
		// Cap the worst-case cost at par so a thin book cannot
		// overdraw the trade budget.
		order.BuyMaxCost = ptr(order.Count * 100)
	}
	return a.place(ctx, order)
}

func (a *Adapter) place(ctx context.Context, order Order) (domain.OrderResult, error) {
	if order.Count <= 0 {
		return domain.OrderResult{}, fmt.Errorf("kalshi: count must be positive: %w", domain.ErrInvalidOrder)
	}

	info, err := a.client.PlaceOrder(ctx, order)
	if err != nil {
		return domain.OrderResult{}, err
	}

	res := toOrderResult(info)
	a.log.Debug("order placed",
		slog.String("ticker", order.Ticker),
		slog.String("action", order.Action),
		slog.String("type", order.Type),
		slog.Int64("count", order.Count),
		slog.String("order_id", res.OrderID),
		slog.String("status", string(res.Status)))

	return res, nil
}

// CancelOrder cancels a resting order.
func (a *Adapter) CancelOrder(ctx context.Context, orderID string) error {
	return a.client.CancelOrder(ctx, orderID)
}

// GetOrder fetches the current state of an order.
func (a *Adapter) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	info, err := a.client.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return toOrder(info), nil
}

// --------------------------------------------------------------------------
// DTO conversion
// --------------------------------------------------------------------------

func toOrderResult(info OrderInfo) domain.OrderResult {
	filled := float64(info.FilledCount())
	return domain.OrderResult{
		Success:        info.Status != "canceled",
		OrderID:        info.OrderID,
		Status:         toStatus(info),
		FilledQuantity: filled,
		AvgFillPrice:   avgFillPrice(info),
	}
}

func toOrder(info OrderInfo) domain.Order {
	typ := domain.OrderTypeLimit
	if info.Type == "market" {
		typ = domain.OrderTypeMarket
	}
	created, _ := time.Parse(time.RFC3339, info.PlacedTime)
	return domain.Order{
		ID:             info.OrderID,
		Venue:          domain.VenueKalshi,
		ContractID:     info.Ticker,
		Side:           domain.OrderSide(info.Action),
		Type:           typ,
		Price:          centsToProb(info.NoPrice),
		Quantity:       float64(info.InitialCount),
		FilledQuantity: float64(info.FilledCount()),
		AvgFillPrice:   avgFillPrice(info),
		Status:         toStatus(info),
		CreatedAt:      created,
	}
}

func toStatus(info OrderInfo) domain.OrderStatus {
	switch info.Status {
	case "resting":
		if info.FilledCount() > 0 {
			return domain.OrderStatusPartiallyFilled
		}
		return domain.OrderStatusOpen
	case "executed":
		return domain.OrderStatusFilled
	case "canceled":
		return domain.OrderStatusCancelled
	case "pending":
		return domain.OrderStatusPending
	default:
		return domain.OrderStatusFailed
	}
}

// avgFillPrice derives the average NO-side fill price. Taker fills report a
// total cost in cents; maker fills execute at the resting price.
func avgFillPrice(info OrderInfo) float64 {
	filled := info.FilledCount()
	if filled == 0 {
		return 0
	}
	if info.TakerFillCount > 0 && info.TakerFillCost > 0 {
		takerAvg := float64(info.TakerFillCost) / float64(info.TakerFillCount) / 100
		if info.MakerFillCount == 0 {
			return takerAvg
		}
		makerTotal := float64(info.MakerFillCount) * centsToProb(info.NoPrice)
		return (takerAvg*float64(info.TakerFillCount) + makerTotal) / float64(filled)
	}
	return centsToProb(info.NoPrice)
}

func probToCents(p float64) int64 {
	cents := int64(math.Round(p * 100))
	if cents < 1 {
		cents = 1
	}
	if cents > 99 {
		cents = 99
	}
	return cents
}

func centsToProb(cents int64) float64 {
	return float64(cents) / 100
}

func contractCount(quantity float64) int64 {
	return int64(math.Floor(quantity))
}

func ptr[T any](v T) *T { return &v }
