package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/business/arbitrage/domain"
	fundingDomain "github.com/msolari/flasharb/business/funding/domain"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
)

func makeVenue(name string, kind quotingDomain.VenueKind, feeBps int64, swapGas uint64, liquidityUSD string) quotingDomain.Venue {
	return quotingDomain.Venue{
		Name:         name,
		Kind:         kind,
		FeeBps:       feeBps,
		SwapGas:      swapGas,
		LiquidityUSD: decimal.RequireFromString(liquidityUSD),
	}
}

func makeOpportunity(buyPrice, sellPrice string, buyVenue, sellVenue quotingDomain.Venue) domain.ProvisionalOpportunity {
	buy := decimal.RequireFromString(buyPrice)
	sell := decimal.RequireFromString(sellPrice)
	return domain.ProvisionalOpportunity{
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		BuyPrice:  buy,
		SellPrice: sell,
		SpreadPct: domain.Spread(buy, sell),
	}
}

func decimalNear(t *testing.T, got decimal.Decimal, want, tolerance string, label string) {
	t.Helper()
	diff := got.Sub(decimal.RequireFromString(want)).Abs()
	if diff.GreaterThan(decimal.RequireFromString(tolerance)) {
		t.Errorf("%s = %s, want ~%s (diff %s)", label, got, want, diff)
	}
}

// Reference round trip: buy at 10.00 with a 0.3% fee, sell at 10.20
// with a 0.05% fee, 0.1% funding premium, 500k total gas at 100 gwei
// with the gas asset at 3000, both pools holding 2M of liquidity.
// At size 5000 the trade must clear all costs with margin to spare.
func TestCostModel_Evaluate_ReferenceScenario(t *testing.T) {
	model := NewCostModel(CostModelConfig{
		SlippageCapPct:   decimal.NewFromInt(10),
		GasPriceGwei:     decimal.NewFromInt(100),
		GasAssetPriceUSD: decimal.NewFromInt(3000),
	})

	buyVenue := makeVenue("alpha", quotingDomain.KindConstantProduct, 30, 120_000, "2000000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 5, 130_000, "2000000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)
	opp.Funding = &fundingDomain.FundingQuote{
		PremiumBps: decimal.NewFromInt(10),
		GasUnits:   250_000,
		Source:     fundingDomain.SourceAave,
	}

	eval := model.Evaluate(opp, decimal.NewFromInt(5000))

	if got := eval.GrossRevenue; !got.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("GrossRevenue = %s, want 1000", got)
	}
	if got := eval.Costs.FundingFee; !got.Equal(decimal.NewFromInt(50)) {
		t.Errorf("FundingFee = %s, want 50", got)
	}
	if got := eval.Costs.BuyFee; !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("BuyFee = %s, want 150", got)
	}
	if got := eval.Costs.SellFee; !got.Equal(decimal.RequireFromString("25.5")) {
		t.Errorf("SellFee = %s, want 25.5", got)
	}
	if got := eval.Costs.GasCost; !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("GasCost = %s, want 150", got)
	}
	decimalNear(t, eval.Costs.SlippageCost, "240.75", "0.5", "SlippageCost")

	wantTotal := eval.Costs.FundingFee.
		Add(eval.Costs.GasCost).
		Add(eval.Costs.BuyFee).
		Add(eval.Costs.SellFee).
		Add(eval.Costs.SlippageCost)
	if !eval.Costs.Total.Equal(wantTotal) {
		t.Errorf("Total = %s, want exact sum %s", eval.Costs.Total, wantTotal)
	}

	if !eval.NetProfit.IsPositive() {
		t.Errorf("NetProfit = %s, want positive", eval.NetProfit)
	}
	decimalNear(t, eval.NetProfit, "383.75", "0.5", "NetProfit")

	if !eval.BreakEvenSpread.LessThan(opp.SpreadPct) {
		t.Errorf("BreakEvenSpread = %s, want below observed spread %s", eval.BreakEvenSpread, opp.SpreadPct)
	}
	if !eval.SafetyMargin.IsPositive() {
		t.Errorf("SafetyMargin = %s, want positive", eval.SafetyMargin)
	}
	decimalNear(t, eval.SafetyMargin, "0.7675", "0.005", "SafetyMargin")
}

func TestCostModel_Evaluate_DefaultFundingTerms(t *testing.T) {
	model := NewCostModel(DefaultCostModelConfig())

	buyVenue := makeVenue("alpha", quotingDomain.KindConstantProduct, 30, 120_000, "2000000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 5, 130_000, "2000000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)
	// No funding quote attached: 9 bps on the borrowed notional.

	eval := model.Evaluate(opp, decimal.NewFromInt(1000))

	want := decimal.NewFromInt(10000).Mul(decimal.RequireFromString("0.0009"))
	if !eval.Costs.FundingFee.Equal(want) {
		t.Errorf("FundingFee = %s, want %s", eval.Costs.FundingFee, want)
	}
}

func TestCostModel_Evaluate_AggregatorFeeIsZero(t *testing.T) {
	model := NewCostModel(DefaultCostModelConfig())

	buyVenue := makeVenue("agg", quotingDomain.KindExternalAggregator, 0, 200_000, "2000000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 30, 130_000, "2000000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)

	eval := model.Evaluate(opp, decimal.NewFromInt(1000))

	if !eval.Costs.BuyFee.IsZero() {
		t.Errorf("BuyFee = %s, want zero for fee-inclusive aggregator quotes", eval.Costs.BuyFee)
	}
	if eval.Costs.SellFee.IsZero() {
		t.Error("SellFee = 0, want the explicit venue fee")
	}
}

func TestCostModel_Evaluate_SlippageCapBinds(t *testing.T) {
	model := NewCostModel(CostModelConfig{
		SlippageCapPct:   decimal.NewFromInt(10),
		GasPriceGwei:     decimal.NewFromInt(25),
		GasAssetPriceUSD: decimal.NewFromInt(3000),
	})

	// Trade value far above the pool's depth: raw sqrt impact would be
	// well over the cap.
	buyVenue := makeVenue("thin", quotingDomain.KindConstantProduct, 30, 120_000, "1000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 5, 130_000, "2000000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)

	eval := model.Evaluate(opp, decimal.NewFromInt(100000))

	if !eval.BuySlippagePct.Equal(decimal.NewFromInt(10)) {
		t.Errorf("BuySlippagePct = %s, want capped at 10", eval.BuySlippagePct)
	}
}

func TestCostModel_Evaluate_KindCoefficientOrdering(t *testing.T) {
	model := NewCostModel(DefaultCostModelConfig())
	size := decimal.NewFromInt(5000)

	slipFor := func(kind quotingDomain.VenueKind) decimal.Decimal {
		buy := makeVenue("x", kind, 30, 120_000, "2000000")
		sell := makeVenue("y", kind, 5, 130_000, "2000000")
		return model.Evaluate(makeOpportunity("10.00", "10.20", buy, sell), size).BuySlippagePct
	}

	cp := slipFor(quotingDomain.KindConstantProduct)
	cl := slipFor(quotingDomain.KindConcentratedLiquidity)
	ss := slipFor(quotingDomain.KindStableSwap)

	if !cl.LessThan(cp) {
		t.Errorf("concentrated slippage %s, want below constant product %s", cl, cp)
	}
	if !ss.LessThan(cl) {
		t.Errorf("stable slippage %s, want below concentrated %s", ss, cl)
	}
}
