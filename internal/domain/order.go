package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType distinguishes resting limit orders from immediate
// market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderStatus tracks the order lifecycle on a venue.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
	OrderStatusFailed          OrderStatus = "failed"
)

// Terminal reports whether the order will see no further fills.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusFailed:
		return true
	}
	return false
}

// Order represents an order as tracked on a venue.
type Order struct {
	ID             string
	Venue          Venue
	ContractID     string
	Side           OrderSide
	Type           OrderType
	Price          float64
	Quantity       float64
	FilledQuantity float64
	AvgFillPrice   float64
	Status         OrderStatus
	CreatedAt      time.Time
}

// OrderResult wraps the venue response after order submission.
type OrderResult struct {
	Success        bool
	OrderID        string
	Status         OrderStatus
	FilledQuantity float64
	AvgFillPrice   float64
	Message        string
}
