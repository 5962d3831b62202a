package polymarket

import "github.com/alanyoungcy/arbbot/internal/domain"

// Fees implements the Polymarket fee schedule. The CLOB currently charges
// zero trading fees on both sides; Bps is kept configurable in case the
// exchange turns fees on.
type Fees struct {
	Bps float64 // fee rate in basis points
}

var _ domain.FeeModel = Fees{}

func (f Fees) TakerFee(quantity, price float64) float64 {
	return quantity * price * f.Bps / 10000
}

func (f Fees) MakerFee(quantity, price float64) float64 {
	return quantity * price * f.Bps / 10000
}
