// Package kalshi implements the REST and WebSocket clients for the Kalshi
// exchange, plus the venue adapter used by the arbitrage engine. The engine
// always trades the NO side of a ticker: buying NO on Kalshi is the
// complement leg of buying YES on Polymarket.
package kalshi

import (
	"encoding/json"
	"time"
)

// --------------------------------------------------------------------------
// Kalshi API DTOs
// --------------------------------------------------------------------------

// Market represents a market as returned by the Kalshi REST API. Prices are
// in cents (1-99).
type Market struct {
	Ticker         string `json:"ticker"`
	EventTicker    string `json:"event_ticker"`
	Title          string `json:"title"`
	Status         string `json:"status"` // "open", "closed", "settled"
	YesBid         int64  `json:"yes_bid"`
	YesAsk         int64  `json:"yes_ask"`
	NoBid          int64  `json:"no_bid"`
	NoAsk          int64  `json:"no_ask"`
	LastPrice      int64  `json:"last_price"`
	Volume         int64  `json:"volume"`
	Volume24H      int64  `json:"volume_24h"`
	OpenInterest   int64  `json:"open_interest"`
	Result         string `json:"result"` // "yes", "no", "" (unsettled)
	CanCloseEarly  bool   `json:"can_close_early"`
	OpenTime       string `json:"open_time"`
	CloseTime      string `json:"close_time"`
	ExpirationTime string `json:"expiration_time"`
}

// Orderbook represents the orderbook for a Kalshi market. Yes holds bids for
// the YES side, No holds bids for the NO side; a NO bid at price p is also an
// offer to sell YES at 100-p.
type Orderbook struct {
	Ticker    string       `json:"ticker"`
	Yes       []PriceLevel `json:"yes"`
	No        []PriceLevel `json:"no"`
	Timestamp time.Time    `json:"-"`
}

// PriceLevel is a single price+quantity entry in the Kalshi orderbook.
type PriceLevel struct {
	Price    int64 `json:"price"`    // in cents (1-99)
	Quantity int64 `json:"quantity"` // number of contracts
}

// UnmarshalJSON accepts the wire format, a two-element array [price, qty].
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		// Some endpoints return an object instead of a pair.
		type alias PriceLevel
		var obj alias
		if objErr := json.Unmarshal(data, &obj); objErr != nil {
			return err
		}
		*l = PriceLevel(obj)
		return nil
	}
	l.Price = pair[0]
	l.Quantity = pair[1]
	return nil
}

// TopOfBook returns the best YES bid/ask in probability units together with
// the contract quantity available at each.
func (o Orderbook) TopOfBook() (bid, ask, bidSize, askSize float64) {
	var bestYes, bestNo PriceLevel
	for _, l := range o.Yes {
		if l.Price > bestYes.Price {
			bestYes = l
		}
	}
	for _, l := range o.No {
		if l.Price > bestNo.Price {
			bestNo = l
		}
	}
	if bestYes.Price > 0 {
		bid = float64(bestYes.Price) / 100
		bidSize = float64(bestYes.Quantity)
	}
	if bestNo.Price > 0 {
		ask = float64(100-bestNo.Price) / 100
		askSize = float64(bestNo.Quantity)
	}
	return bid, ask, bidSize, askSize
}

// Order represents an order to be placed on the Kalshi exchange.
type Order struct {
	Ticker            string `json:"ticker"`
	ClientOrderID     string `json:"client_order_id,omitempty"`
	Action            string `json:"action"` // "buy" or "sell"
	Side              string `json:"side"`   // "yes" or "no"
	Type              string `json:"type"`   // "market" or "limit"
	Count             int64  `json:"count"`  // number of contracts
	YesPrice          *int64 `json:"yes_price,omitempty"`     // limit price in cents (1-99)
	NoPrice           *int64 `json:"no_price,omitempty"`      // limit price in cents (1-99)
	Expiration        *int64 `json:"expiration_ts,omitempty"` // Unix timestamp for GTD orders
	SellPositionFloor *int64 `json:"sell_position_floor,omitempty"`
	BuyMaxCost        *int64 `json:"buy_max_cost,omitempty"` // max cost in cents
}

// OrderInfo describes an order as reported by the exchange.
type OrderInfo struct {
	OrderID        string `json:"order_id"`
	Ticker         string `json:"ticker"`
	Status         string `json:"status"` // "resting", "canceled", "executed", "pending"
	Action         string `json:"action"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	YesPrice       int64  `json:"yes_price"`
	NoPrice        int64  `json:"no_price"`
	PlacedTime     string `json:"placed_time"`
	InitialCount   int64  `json:"initial_count"`
	RemainingCount int64  `json:"remaining_count"`
	TakerFillCount int64  `json:"taker_fill_count"`
	TakerFillCost  int64  `json:"taker_fill_cost"` // cents, summed over fills
	MakerFillCount int64  `json:"maker_fill_count"`
	QueuePosition  int64  `json:"queue_position"`
	LastUpdateTime string `json:"last_update_time"`
}

// FilledCount returns the total contracts filled so far.
func (o OrderInfo) FilledCount() int64 {
	return o.TakerFillCount + o.MakerFillCount
}

// ErrorResponse represents a Kalshi API error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// --------------------------------------------------------------------------
// Kalshi WebSocket DTOs
// --------------------------------------------------------------------------

// WSMessage is the envelope for Kalshi WebSocket messages.
type WSMessage struct {
	Type string          `json:"type"` // "orderbook_snapshot", "orderbook_delta", ...
	Msg  json.RawMessage `json:"msg"`
	SID  int64           `json:"sid"`
}

// WSOrderbook is the orderbook data received via WebSocket.
type WSOrderbook struct {
	Ticker string       `json:"market_ticker"`
	Yes    []PriceLevel `json:"yes"`
	No     []PriceLevel `json:"no"`
}

// ToOrderbook converts a WSOrderbook to an Orderbook stamped with the
// receive time.
func (w *WSOrderbook) ToOrderbook() Orderbook {
	return Orderbook{
		Ticker:    w.Ticker,
		Yes:       w.Yes,
		No:        w.No,
		Timestamp: time.Now(),
	}
}

// WSSubscribeCmd is the command sent to subscribe to Kalshi WebSocket
// channels.
type WSSubscribeCmd struct {
	ID     int64             `json:"id"`
	Cmd    string            `json:"cmd"` // "subscribe" or "unsubscribe"
	Params WSSubscribeParams `json:"params"`
}

// WSSubscribeParams defines the subscription parameters.
type WSSubscribeParams struct {
	Channels []string `json:"channels"` // e.g. ["orderbook_delta"]
	Tickers  []string `json:"market_tickers"`
}
