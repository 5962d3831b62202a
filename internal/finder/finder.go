// Package finder computes arbitrage opportunities from quote pairs. It is
// pure: no I/O, deterministic given its inputs.
package finder

import (
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/arbbot/internal/domain"
)

const (
	// makerPriceFloor and makerPriceCeil bound the maker limit price.
	makerPriceFloor = 0.01
	makerPriceCeil  = 0.99

	// makerTick is the nudge above the current best bid so a maker order
	// sits at the front of the queue.
	makerTick = 0.001
)

// Params are the trading thresholds the finder applies.
type Params struct {
	MinProfitRate   float64 // entries below this rate are discarded
	CapitalPerTrade float64 // dollars committed per opportunity
	MinSpread       float64 // minimum Polymarket spread for a maker attempt
}

// Finder prices both execution modes for each pair. The Polymarket leg buys
// the outcome token; the Kalshi leg buys the complement (NO side), so its
// taker cost per contract is 1 minus the Kalshi YES bid.
type Finder struct {
	params Params
	pmFees domain.FeeModel
	klFees domain.FeeModel
	log    *slog.Logger
}

func New(params Params, pmFees, klFees domain.FeeModel, log *slog.Logger) *Finder {
	return &Finder{
		params: params,
		pmFees: pmFees,
		klFees: klFees,
		log:    log.With(slog.String("component", "finder")),
	}
}

// Analyze prices one pair. It returns zero, one, or two opportunities with
// the maker-taker mode listed first when both qualify.
func (f *Finder) Analyze(qp domain.QuotePair) []domain.ArbitrageOpportunity {
	if !usable(qp.Polymarket) || !usable(qp.Kalshi) {
		return nil
	}

	var opps []domain.ArbitrageOpportunity
	if opp, ok := f.makerTaker(qp); ok {
		opps = append(opps, opp)
	}
	if opp, ok := f.takerTaker(qp); ok {
		opps = append(opps, opp)
	}
	return opps
}

// AnalyzeAll prices every pair and returns all opportunities sorted by
// profit rate descending.
func (f *Finder) AnalyzeAll(pairs []domain.QuotePair) []domain.ArbitrageOpportunity {
	var opps []domain.ArbitrageOpportunity
	for _, qp := range pairs {
		opps = append(opps, f.Analyze(qp)...)
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].ProfitRate > opps[j].ProfitRate
	})
	return opps
}

// takerTaker prices an immediate two-legged entry: buy the Polymarket token
// at its ask, buy the Kalshi complement at 1 minus the YES bid. Settlement
// pays exactly 1.0 per matched contract.
func (f *Finder) takerTaker(qp domain.QuotePair) (domain.ArbitrageOpportunity, bool) {
	pmPrice := qp.Polymarket.Ask
	klPrice := 1 - qp.Kalshi.Bid

	qty := f.sizeFor(pmPrice, klPrice, qp.Polymarket.AskSize, qp.Kalshi.BidSize)
	if qty <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	fees := f.pmFees.TakerFee(qty, pmPrice) + f.klFees.TakerFee(qty, klPrice)
	cost := (pmPrice+klPrice)*qty + fees
	net := qty - cost // payout is 1.0 per contract

	if cost <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	rate := net / cost
	if rate < f.params.MinProfitRate {
		return domain.ArbitrageOpportunity{}, false
	}

	return f.newOpportunity(qp.Pair, domain.ModeTakerTaker, pmPrice, klPrice, qty, cost, net, rate), true
}

// makerTaker prices a resting Polymarket bid hedged by a Kalshi taker leg.
// The limit price is the highest that still clears the minimum profit rate
// against the current Kalshi cost, nudged to sit just above the best bid.
func (f *Finder) makerTaker(qp domain.QuotePair) (domain.ArbitrageOpportunity, bool) {
	pm := qp.Polymarket
	if pm.Spread() < f.params.MinSpread {
		return domain.ArbitrageOpportunity{}, false
	}

	klPrice := 1 - qp.Kalshi.Bid
	klFeePer := f.klFees.TakerFee(1, klPrice)

	r := f.params.MinProfitRate
	optimal := (1 - (1+r)*(klPrice+klFeePer)) / (1 + r)

	price := math.Min(optimal, pm.Bid+makerTick)
	price = clamp(price, makerPriceFloor, makerPriceCeil)

	// The order must rest; a price at or through the ask would take.
	if price >= pm.Ask {
		return domain.ArbitrageOpportunity{}, false
	}

	qty := f.sizeFor(price, klPrice, math.Inf(1), qp.Kalshi.BidSize)
	if qty <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}

	fees := f.pmFees.MakerFee(qty, price) + f.klFees.TakerFee(qty, klPrice)
	cost := (price+klPrice)*qty + fees
	net := qty - cost

	if cost <= 0 {
		return domain.ArbitrageOpportunity{}, false
	}
	rate := net / cost
	if rate < f.params.MinProfitRate {
		return domain.ArbitrageOpportunity{}, false
	}

	return f.newOpportunity(qp.Pair, domain.ModeMakerTaker, price, klPrice, qty, cost, net, rate), true
}

// sizeFor converts the capital allocation into contracts and caps it by the
// liquidity available on each leg.
func (f *Finder) sizeFor(pmPrice, klPrice, pmSize, klSize float64) float64 {
	avg := (pmPrice + klPrice) / 2
	if avg <= 0 {
		return 0
	}

	qty := f.params.CapitalPerTrade / avg
	qty = math.Min(qty, pmSize)
	qty = math.Min(qty, klSize)
	return math.Floor(qty)
}

func (f *Finder) newOpportunity(pair domain.ContractPair, mode domain.ExecutionMode, pmPrice, klPrice, qty, cost, net, rate float64) domain.ArbitrageOpportunity {
	opp := domain.ArbitrageOpportunity{
		ID:              uuid.New().String(),
		Pair:            pair,
		Mode:            mode,
		PolymarketPrice: pmPrice,
		KalshiPrice:     klPrice,
		Quantity:        qty,
		CostPerContract: cost / qty,
		NetProfit:       net,
		ProfitRate:      rate,
		DetectedAt:      time.Now(),
	}

	f.log.Debug("opportunity",
		slog.String("event", pair.EventID),
		slog.String("mode", string(mode)),
		slog.Float64("pm_price", pmPrice),
		slog.Float64("kalshi_price", klPrice),
		slog.Float64("quantity", qty),
		slog.Float64("profit_rate", rate),
	)

	return opp
}

// usable rejects quotes with an empty or crossed book.
func usable(q domain.Quote) bool {
	return q.Bid > 0 && q.Ask > 0 && q.Ask < 1 && !q.Crossed()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
