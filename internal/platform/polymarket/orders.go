package polymarket

import (
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/arbbot/internal/crypto"
	"github.com/alanyoungcy/arbbot/internal/domain"
)

// zeroAddress is the public taker for open orders.
const zeroAddress = "0x0000000000000000000000000000000000000000"

// OrderArgs describes an order before signing. Price is a probability in
// (0,1) and Size is a share count; both are converted to the CLOB's 1e6
// fixed-point base units.
type OrderArgs struct {
	TokenID   string
	Side      domain.OrderSide
	Price     float64
	Size      float64
	OrderType string // "GTC", "FOK", "FAK"
}

func (a OrderArgs) validate() error {
	if a.TokenID == "" {
		return fmt.Errorf("polymarket: empty token id: %w", domain.ErrInvalidOrder)
	}
	if a.Price <= 0 || a.Price >= 1 {
		return fmt.Errorf("polymarket: price %v outside (0,1): %w", a.Price, domain.ErrInvalidOrder)
	}
	if a.Size <= 0 {
		return fmt.Errorf("polymarket: size must be positive: %w", domain.ErrInvalidOrder)
	}
	switch a.OrderType {
	case "GTC", "FOK", "FAK":
	default:
		return fmt.Errorf("polymarket: unsupported order type %q: %w", a.OrderType, domain.ErrInvalidOrder)
	}
	return nil
}

// buildPayload converts the order into the EIP-712 payload the exchange
// verifies. For a BUY the maker gives USDC (price x size) and takes shares;
// a SELL is the reverse.
func (a OrderArgs) buildPayload(maker, signer string, signatureType int) crypto.OrderPayload {
	shares := toBaseUnits(a.Size)
	notional := toBaseUnits(a.Size * a.Price)

	payload := crypto.OrderPayload{
		Salt:          fmt.Sprintf("%d", time.Now().UnixNano()),
		Maker:         maker,
		Signer:        signer,
		Taker:         zeroAddress,
		TokenID:       a.TokenID,
		Expiration:    "0",
		Nonce:         "0",
		FeeRateBps:    "0",
		SignatureType: signatureType,
	}

	if a.Side == domain.OrderSideSell {
		payload.Side = 1
		payload.MakerAmount = fmt.Sprintf("%d", shares)
		payload.TakerAmount = fmt.Sprintf("%d", notional)
	} else {
		payload.Side = 0
		payload.MakerAmount = fmt.Sprintf("%d", notional)
		payload.TakerAmount = fmt.Sprintf("%d", shares)
	}

	return payload
}

// toBaseUnits converts a decimal amount to 1e6 fixed-point base units.
func toBaseUnits(v float64) int64 {
	return int64(math.Round(v * 1e6))
}
