package kalshi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTakerFeeConvexInPrice(t *testing.T) {
	f := Fees{}

	// 0.07 x 100 x 0.5 x 0.5 = 1.75
	assert.InDelta(t, 1.75, f.TakerFee(100, 0.5), 1e-9)
	// Symmetric around 0.5.
	assert.InDelta(t, f.TakerFee(100, 0.3), f.TakerFee(100, 0.7), 1e-9)
	// Vanishes at the extremes.
	assert.Zero(t, f.TakerFee(100, 0))
	assert.Zero(t, f.TakerFee(100, 1))
}

func TestMakerFeeZeroOutsideProgram(t *testing.T) {
	assert.Zero(t, Fees{}.MakerFee(100, 0.5))
}

func TestMakerFeeReducedInsideProgram(t *testing.T) {
	f := Fees{MakerProgram: true}

	// 0.0175 x 100 x 0.5 x 0.5 = 0.4375, a quarter of the taker fee.
	assert.InDelta(t, 0.4375, f.MakerFee(100, 0.5), 1e-9)
	assert.InDelta(t, f.TakerFee(100, 0.5)/4, f.MakerFee(100, 0.5), 1e-9)
}
