// Package app contains application services for the arbitrage context.
package app

import (
	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/business/arbitrage/domain"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
)

// Slippage coefficients by venue kind, calibrated against observed
// impact on deep mainnet pools. Concentrated liquidity is more capital
// efficient than constant product, stable pools more efficient still.
var slippageCoefficients = map[quotingDomain.VenueKind]decimal.Decimal{
	quotingDomain.KindConstantProduct:       decimal.RequireFromString("0.015"),
	quotingDomain.KindConcentratedLiquidity: decimal.RequireFromString("0.008"),
	quotingDomain.KindStableSwap:            decimal.RequireFromString("0.004"),
	quotingDomain.KindExternalAggregator:    decimal.RequireFromString("0.008"),
}

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// CostModelConfig holds the model's policy constants. Gas is priced at
// a reference gas price and gas-asset price supplied by the caller;
// the model itself never talks to the chain.
type CostModelConfig struct {
	SlippageCapPct    decimal.Decimal // hard ceiling per side, default 10
	GasPriceGwei      decimal.Decimal
	GasAssetPriceUSD  decimal.Decimal
	DefaultPremiumBps decimal.Decimal // used when no funding quote attached
	DefaultLoanGas    uint64
}

// DefaultCostModelConfig returns the documented policy defaults.
func DefaultCostModelConfig() CostModelConfig {
	return CostModelConfig{
		SlippageCapPct:    decimal.NewFromInt(10),
		GasPriceGwei:      decimal.NewFromInt(25),
		GasAssetPriceUSD:  decimal.NewFromInt(3400),
		DefaultPremiumBps: decimal.NewFromInt(9),
		DefaultLoanGas:    250_000,
	}
}

// CostModel prices a candidate round trip at a given trade size. It is
// pure decimal arithmetic: every chain-dependent input arrives on the
// provisional opportunity or in the config.
type CostModel struct {
	config CostModelConfig
}

// NewCostModel creates a cost model.
func NewCostModel(cfg CostModelConfig) *CostModel {
	if cfg.SlippageCapPct.IsZero() {
		cfg.SlippageCapPct = decimal.NewFromInt(10)
	}
	return &CostModel{config: cfg}
}

// UpdateGasPrice replaces the reference gas price. The scan loop calls
// this between passes with the oracle's latest reading; it must not be
// called while an analysis is in flight.
func (m *CostModel) UpdateGasPrice(gwei decimal.Decimal) {
	if gwei.IsPositive() {
		m.config.GasPriceGwei = gwei
	}
}

// Evaluate computes the full economics of executing opp at tradeSize
// (base-token units). Tolerance enforcement is the optimizer's job; the
// model only reports the per-side slippage it estimated.
//
// The slippage model is per side:
//
//	slip = min(sqrt(tradeValue/liquidity) * kindCoefficient, cap)
//
// with the buy price slipping up and the sell price slipping down.
func (m *CostModel) Evaluate(opp domain.ProvisionalOpportunity, tradeSize decimal.Decimal) domain.Evaluation {
	buyNotional := tradeSize.Mul(opp.BuyPrice)
	sellNotional := tradeSize.Mul(opp.SellPrice)

	buySlip := m.slippageFraction(buyNotional, opp.BuyVenue)
	sellSlip := m.slippageFraction(sellNotional, opp.SellVenue)

	effectiveBuy := opp.BuyPrice.Mul(one.Add(buySlip))
	effectiveSell := opp.SellPrice.Mul(one.Sub(sellSlip))

	// Cost of the adverse price movement, in quote currency.
	slippageCost := tradeSize.Mul(buySlip.Mul(opp.BuyPrice).Add(sellSlip.Mul(opp.SellPrice)))

	buyFee := buyNotional.Mul(m.venueFee(opp.BuyVenue))
	sellFee := sellNotional.Mul(m.venueFee(opp.SellVenue))

	fundingFee := buyNotional.Mul(m.fundingRate(opp))
	gasCost := m.gasCost(opp)

	costs := domain.NewCostBreakdown(fundingFee, gasCost.Quote, buyFee, sellFee, slippageCost)

	grossRevenue := tradeSize.Mul(opp.SellPrice.Sub(opp.BuyPrice))
	netProfit := grossRevenue.Sub(costs.Total)

	profitMargin := decimal.Zero
	roi := decimal.Zero
	breakEven := decimal.Zero
	if buyNotional.IsPositive() {
		profitMargin = netProfit.Div(sellNotional).Mul(hundred)
		roi = netProfit.Div(buyNotional).Mul(hundred)
		breakEven = costs.Total.Div(buyNotional).Mul(hundred)
	}

	observedSpread := domain.Spread(opp.BuyPrice, opp.SellPrice)

	return domain.Evaluation{
		TradeSize:          tradeSize,
		GrossRevenue:       grossRevenue,
		Costs:              costs,
		NetProfit:          netProfit,
		ProfitMargin:       profitMargin,
		ROI:                roi,
		BreakEvenSpread:    breakEven,
		SafetyMargin:       observedSpread.Sub(breakEven),
		BuySlippagePct:     buySlip.Mul(hundred),
		SellSlippagePct:    sellSlip.Mul(hundred),
		EffectiveBuyPrice:  effectiveBuy,
		EffectiveSellPrice: effectiveSell,
	}
}

// slippageFraction estimates one side's price impact as a fraction.
func (m *CostModel) slippageFraction(tradeValue decimal.Decimal, venue quotingDomain.Venue) decimal.Decimal {
	if !tradeValue.IsPositive() || !venue.LiquidityUSD.IsPositive() {
		return decimal.Zero
	}

	coef, ok := slippageCoefficients[venue.Kind]
	if !ok {
		coef = slippageCoefficients[quotingDomain.KindConstantProduct]
	}

	ratio, err := tradeValue.Div(venue.LiquidityUSD).PowWithPrecision(decimal.RequireFromString("0.5"), 16)
	if err != nil {
		return m.config.SlippageCapPct.Div(hundred)
	}

	slip := ratio.Mul(coef)
	cap := m.config.SlippageCapPct.Div(hundred)
	if slip.GreaterThan(cap) {
		return cap
	}
	return slip
}

// venueFee returns the explicit trading fee fraction for a leg.
// Aggregator quotes are fee-inclusive, so their explicit fee is zero.
func (m *CostModel) venueFee(venue quotingDomain.Venue) decimal.Decimal {
	if venue.Kind == quotingDomain.KindExternalAggregator {
		return decimal.Zero
	}
	return venue.FeeFraction()
}

func (m *CostModel) fundingRate(opp domain.ProvisionalOpportunity) decimal.Decimal {
	if opp.Funding != nil {
		return opp.Funding.FeeRate()
	}
	return m.config.DefaultPremiumBps.Div(decimal.NewFromInt(10_000))
}

func (m *CostModel) gasCost(opp domain.ProvisionalOpportunity) *domain.GasCost {
	loanGas := m.config.DefaultLoanGas
	if opp.Funding != nil && opp.Funding.GasUnits > 0 {
		loanGas = opp.Funding.GasUnits
	}

	totalGas := opp.BuyVenue.SwapGas + opp.SellVenue.SwapGas + loanGas
	gasPriceWei := domain.GasPriceFromGwei(m.config.GasPriceGwei.InexactFloat64())

	return domain.NewGasCost(totalGas, gasPriceWei, m.config.GasAssetPriceUSD)
}
