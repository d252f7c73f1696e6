// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	fundingDomain "github.com/msolari/flasharb/business/funding/domain"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
)

// ProvisionalOpportunity is a raw price discrepancy between two venues,
// before costs are modeled. Prices are unit prices in quote currency
// per base token, derived from small probe quotes. Liquidity figures
// are estimates in quote-currency terms, used only for slippage
// modeling.
type ProvisionalOpportunity struct {
	Pair      quotingDomain.Pair
	BuyVenue  quotingDomain.Venue
	SellVenue quotingDomain.Venue
	BuyQuote  quotingDomain.Quote
	SellQuote quotingDomain.Quote
	BuyPrice  decimal.Decimal
	SellPrice decimal.Decimal
	SpreadPct decimal.Decimal

	// Funding is attached by the analyzer before cost modeling; nil
	// means "use documented defaults".
	Funding *fundingDomain.FundingQuote

	Timestamp time.Time
}

// Spread returns (sell/buy - 1) * 100. Zero buy price yields zero.
func Spread(buyPrice, sellPrice decimal.Decimal) decimal.Decimal {
	if !buyPrice.IsPositive() {
		return decimal.Zero
	}
	return sellPrice.Div(buyPrice).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))
}

// CostBreakdown itemizes every cost of a candidate round trip, in
// quote-currency units. Total is always the exact sum of the five
// named components; the constructor is the only way to build one.
type CostBreakdown struct {
	FundingFee   decimal.Decimal
	GasCost      decimal.Decimal
	BuyFee       decimal.Decimal
	SellFee      decimal.Decimal
	SlippageCost decimal.Decimal
	Total        decimal.Decimal
}

// NewCostBreakdown builds a CostBreakdown with Total as the exact sum
// of the components.
func NewCostBreakdown(fundingFee, gasCost, buyFee, sellFee, slippageCost decimal.Decimal) CostBreakdown {
	return CostBreakdown{
		FundingFee:   fundingFee,
		GasCost:      gasCost,
		BuyFee:       buyFee,
		SellFee:      sellFee,
		SlippageCost: slippageCost,
		Total:        fundingFee.Add(gasCost).Add(buyFee).Add(sellFee).Add(slippageCost),
	}
}

// Evaluation is the cost model's verdict for one (opportunity, size)
// probe. All monetary values are in quote currency; percentages are
// whole-number percents (1.5 means 1.5%).
type Evaluation struct {
	TradeSize          decimal.Decimal
	GrossRevenue       decimal.Decimal
	Costs              CostBreakdown
	NetProfit          decimal.Decimal
	ProfitMargin       decimal.Decimal
	ROI                decimal.Decimal
	BreakEvenSpread    decimal.Decimal
	SafetyMargin       decimal.Decimal
	BuySlippagePct     decimal.Decimal
	SellSlippagePct    decimal.Decimal
	EffectiveBuyPrice  decimal.Decimal
	EffectiveSellPrice decimal.Decimal
}

// IsProfitable reports whether the probe cleared its costs.
func (e Evaluation) IsProfitable() bool {
	return e.NetProfit.IsPositive()
}

// TradeSizing is the optimizer's result. Amounts are in base-token
// units. Infeasibility is a value, not an error: Profitable false with
// a human-readable Reason.
type TradeSizing struct {
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
	RecommendedAmount decimal.Decimal
	Profitable        bool
	Reason            string
}

// RiskFactor flags a qualitative concern on an opportunity.
type RiskFactor struct {
	Name        string
	Description string
	Severity    string // "low", "medium", "high"
}

// Opportunity is a fully analyzed, profitable arbitrage candidate.
type Opportunity struct {
	ID          string
	Pair        quotingDomain.Pair
	BuyVenue    string
	SellVenue   string
	BuyPrice    decimal.Decimal
	SellPrice   decimal.Decimal
	SpreadPct   decimal.Decimal
	Sizing      TradeSizing
	Evaluation  Evaluation
	Funding     *fundingDomain.FundingQuote
	RiskFactors []RiskFactor
	Timestamp   time.Time
}

// IsProfitable reports whether the opportunity clears costs at its
// recommended size.
func (o *Opportunity) IsProfitable() bool {
	return o.Sizing.Profitable && o.Evaluation.NetProfit.IsPositive()
}

// NoOpportunity explains why a pair produced nothing actionable.
type NoOpportunity struct {
	Pair      quotingDomain.Pair
	Reason    string
	Timestamp time.Time
}

// NewNoOpportunity builds a NoOpportunity record.
func NewNoOpportunity(pair quotingDomain.Pair, reason string) *NoOpportunity {
	return &NoOpportunity{
		Pair:      pair,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}
