// Package polymarket implements the REST and WebSocket clients for the
// Polymarket CLOB, plus the venue adapter used by the arbitrage engine.
// Contract IDs are CLOB token IDs for the YES outcome token.
package polymarket

import (
	"strconv"
	"time"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

// --------------------------------------------------------------------------
// CLOB API DTOs
// --------------------------------------------------------------------------

// APIOrder represents an order as returned by the Polymarket CLOB API.
type APIOrder struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	MarketID      string `json:"market"`
	AssetID       string `json:"asset_id"`
	Side          string `json:"side"` // "BUY" or "SELL"
	Type          string `json:"type"` // "GTC", "GTD", "FOK", "FAK"
	OriginalSize  string `json:"original_size"`
	SizeMatched   string `json:"size_matched"`
	Price         string `json:"price"`
	Owner         string `json:"owner"`
	Expiration    string `json:"expiration"`
	FeeRateBps    string `json:"fee_rate_bps"`
	SignatureType int    `json:"signature_type"`
	CreatedAt     string `json:"created_at"`
}

// ToDomainOrder converts an APIOrder to a domain.Order.
func (a *APIOrder) ToDomainOrder() domain.Order {
	o := domain.Order{
		ID:         a.ID,
		Venue:      domain.VenuePolymarket,
		ContractID: a.AssetID,
	}

	switch a.Side {
	case "BUY":
		o.Side = domain.OrderSideBuy
	case "SELL":
		o.Side = domain.OrderSideSell
	}

	// GTC rests on the book; everything else is immediate-or-gone.
	if a.Type == "GTC" || a.Type == "GTD" {
		o.Type = domain.OrderTypeLimit
	} else {
		o.Type = domain.OrderTypeMarket
	}

	if price, err := strconv.ParseFloat(a.Price, 64); err == nil {
		o.Price = price
	}
	if orig, err := strconv.ParseFloat(a.OriginalSize, 64); err == nil {
		o.Quantity = orig
	}
	if matched, err := strconv.ParseFloat(a.SizeMatched, 64); err == nil {
		o.FilledQuantity = matched
	}
	// The CLOB fills GTC orders at the resting price.
	if o.FilledQuantity > 0 {
		o.AvgFillPrice = o.Price
	}

	switch a.Status {
	case "live", "open":
		if o.FilledQuantity > 0 {
			o.Status = domain.OrderStatusPartiallyFilled
		} else {
			o.Status = domain.OrderStatusOpen
		}
	case "matched", "filled":
		o.Status = domain.OrderStatusFilled
	case "cancelled", "canceled":
		o.Status = domain.OrderStatusCancelled
	default:
		o.Status = domain.OrderStatusPending
	}

	if t, err := time.Parse(time.RFC3339, a.CreatedAt); err == nil {
		o.CreatedAt = t
	}

	return o
}

// APIOrderResult is the response from placing an order via the CLOB API.
type APIOrderResult struct {
	Success      bool     `json:"success"`
	ErrorMsg     string   `json:"errorMsg,omitempty"`
	OrderID      string   `json:"orderID,omitempty"`
	Status       string   `json:"status,omitempty"`
	TransactID   string   `json:"transactID,omitempty"`
	TakingAmount string   `json:"takingAmount,omitempty"`
	MakingAmount string   `json:"makingAmount,omitempty"`
	ShouldRetry  bool     `json:"shouldRetry,omitempty"`
}

// ToDomainOrderResult converts an APIOrderResult for an order of the given
// side to a domain.OrderResult. Fill quantity and average price are derived
// from the making/taking amounts when the CLOB reports an immediate match.
func (r *APIOrderResult) ToDomainOrderResult(side domain.OrderSide) domain.OrderResult {
	result := domain.OrderResult{
		Success: r.Success,
		OrderID: r.OrderID,
		Message: r.ErrorMsg,
	}

	switch r.Status {
	case "live", "open":
		result.Status = domain.OrderStatusOpen
	case "matched":
		result.Status = domain.OrderStatusFilled
	case "delayed", "unmatched":
		result.Status = domain.OrderStatusPending
	default:
		if r.Success {
			result.Status = domain.OrderStatusPending
		} else {
			result.Status = domain.OrderStatusFailed
		}
	}

	if result.Status == domain.OrderStatusFilled {
		making, _ := strconv.ParseFloat(r.MakingAmount, 64)
		taking, _ := strconv.ParseFloat(r.TakingAmount, 64)
		// For a BUY we give USDC (making) and receive shares (taking);
		// a SELL is the reverse.
		switch side {
		case domain.OrderSideBuy:
			result.FilledQuantity = taking
			if taking > 0 {
				result.AvgFillPrice = making / taking
			}
		case domain.OrderSideSell:
			result.FilledQuantity = making
			if making > 0 {
				result.AvgFillPrice = taking / making
			}
		}
	}

	return result
}

// APIBook is the public orderbook response from GET /book.
type APIBook struct {
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
}

// PriceLevel is a single bid/ask level; prices and sizes are decimal strings.
type PriceLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// TopOfBook returns the best bid/ask and the size available at each.
func (b APIBook) TopOfBook() (bid, ask, bidSize, askSize float64) {
	for _, lvl := range b.Bids {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		if p > bid {
			bid, bidSize = p, s
		}
	}
	for _, lvl := range b.Asks {
		p, _ := strconv.ParseFloat(lvl.Price, 64)
		s, _ := strconv.ParseFloat(lvl.Size, 64)
		if ask == 0 || p < ask {
			ask, askSize = p, s
		}
	}
	return bid, ask, bidSize, askSize
}

// ParsedTime decodes the book timestamp, which the CLOB sends either as Unix
// milliseconds or RFC3339.
func (b APIBook) ParsedTime() time.Time {
	if ms, err := strconv.ParseInt(b.Timestamp, 10, 64); err == nil {
		return time.UnixMilli(ms)
	}
	if t, err := time.Parse(time.RFC3339, b.Timestamp); err == nil {
		return t
	}
	return time.Now()
}

// --------------------------------------------------------------------------
// WebSocket DTOs
// --------------------------------------------------------------------------

// BookMessage is a full orderbook snapshot delivered over WebSocket. It has
// the same shape as the REST book response plus the event envelope.
type BookMessage struct {
	EventType string       `json:"event_type"`
	AssetID   string       `json:"asset_id"`
	Market    string       `json:"market"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp string       `json:"timestamp"`
	Hash      string       `json:"hash"`
}

// ToBook converts the WebSocket snapshot to the REST book shape.
func (m *BookMessage) ToBook() APIBook {
	return APIBook{
		AssetID:   m.AssetID,
		Market:    m.Market,
		Bids:      m.Bids,
		Asks:      m.Asks,
		Timestamp: m.Timestamp,
		Hash:      m.Hash,
	}
}

// WSCommand is the JSON payload sent to the WebSocket to subscribe or
// unsubscribe.
type WSCommand struct {
	Type    string   `json:"type"` // "subscribe" or "unsubscribe"
	Channel string   `json:"channel,omitempty"`
	Assets  []string `json:"assets_ids,omitempty"`
	Markets []string `json:"markets,omitempty"`
}
