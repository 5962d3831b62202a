package polymarket

import (
	"errors"
	"testing"

	"github.com/alanyoungcy/arbbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderArgsValidate(t *testing.T) {
	valid := OrderArgs{
		TokenID:   "7132107",
		Side:      domain.OrderSideBuy,
		Price:     0.45,
		Size:      100,
		OrderType: "GTC",
	}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*OrderArgs)
	}{
		{"empty token", func(a *OrderArgs) { a.TokenID = "" }},
		{"zero price", func(a *OrderArgs) { a.Price = 0 }},
		{"price at one", func(a *OrderArgs) { a.Price = 1.0 }},
		{"negative price", func(a *OrderArgs) { a.Price = -0.1 }},
		{"zero size", func(a *OrderArgs) { a.Size = 0 }},
		{"bad order type", func(a *OrderArgs) { a.OrderType = "IOC" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := valid
			tt.mutate(&args)
			err := args.validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidOrder))
		})
	}
}

func TestBuildPayloadBuyAmounts(t *testing.T) {
	args := OrderArgs{
		TokenID:   "7132107",
		Side:      domain.OrderSideBuy,
		Price:     0.45,
		Size:      100,
		OrderType: "GTC",
	}

	p := args.buildPayload("0xmaker", "0xsigner", 0)

	// Buying 100 shares at $0.45: give 45 USDC, receive 100 shares.
	assert.Equal(t, "45000000", p.MakerAmount)
	assert.Equal(t, "100000000", p.TakerAmount)
	assert.Equal(t, 0, p.Side)
	assert.Equal(t, "0xmaker", p.Maker)
	assert.Equal(t, "0xsigner", p.Signer)
	assert.Equal(t, zeroAddress, p.Taker)
	assert.Equal(t, "0", p.FeeRateBps)
	assert.Equal(t, "0", p.Nonce)
	assert.Equal(t, "0", p.Expiration)
	assert.NotEmpty(t, p.Salt)
}

func TestBuildPayloadSellAmounts(t *testing.T) {
	args := OrderArgs{
		TokenID:   "7132107",
		Side:      domain.OrderSideSell,
		Price:     0.62,
		Size:      50,
		OrderType: "FAK",
	}

	p := args.buildPayload("0xmaker", "0xsigner", 2)

	// Selling 50 shares at $0.62: give 50 shares, receive 31 USDC.
	assert.Equal(t, "50000000", p.MakerAmount)
	assert.Equal(t, "31000000", p.TakerAmount)
	assert.Equal(t, 1, p.Side)
	assert.Equal(t, 2, p.SignatureType)
}

func TestBuildPayloadRoundsBaseUnits(t *testing.T) {
	args := OrderArgs{
		TokenID:   "7132107",
		Side:      domain.OrderSideBuy,
		Price:     0.33,
		Size:      3.333333,
		OrderType: "GTC",
	}

	p := args.buildPayload("0xmaker", "0xsigner", 0)

	// 3.333333 * 0.33 = 1.09999989 -> rounds to 1100000 base units.
	assert.Equal(t, "1100000", p.MakerAmount)
	assert.Equal(t, "3333333", p.TakerAmount)
}
