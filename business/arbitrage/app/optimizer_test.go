package app

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/business/arbitrage/domain"
	fundingDomain "github.com/msolari/flasharb/business/funding/domain"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/asset"
)

func referenceModel() *CostModel {
	return NewCostModel(CostModelConfig{
		SlippageCapPct:   decimal.NewFromInt(10),
		GasPriceGwei:     decimal.NewFromInt(100),
		GasAssetPriceUSD: decimal.NewFromInt(3000),
	})
}

func referenceOpportunity() domain.ProvisionalOpportunity {
	buyVenue := makeVenue("alpha", quotingDomain.KindConstantProduct, 30, 120_000, "2000000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 5, 130_000, "2000000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)
	opp.Funding = &fundingDomain.FundingQuote{
		PremiumBps: decimal.NewFromInt(10),
		GasUnits:   250_000,
		Source:     fundingDomain.SourceAave,
	}
	return opp
}

func TestOptimizer_FindSizing_Feasible(t *testing.T) {
	model := referenceModel()
	opt := NewOptimizer(model, DefaultOptimizerConfig())
	opp := referenceOpportunity()

	target := decimal.NewFromInt(50)
	tolerance := decimal.NewFromInt(1)

	sizing := opt.FindSizing(opp, target, tolerance)

	if !sizing.Profitable {
		t.Fatalf("want feasible sizing, got reason %q", sizing.Reason)
	}

	// Both liquidity figures are 2M; hi = 2M * 0.1 / 10 = 20000 base
	// units, and no size in the window breaches 1% slippage.
	if !sizing.MaxAmount.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("MaxAmount = %s, want 20000", sizing.MaxAmount)
	}

	if sizing.MinAmount.GreaterThan(sizing.RecommendedAmount) ||
		sizing.RecommendedAmount.GreaterThan(sizing.MaxAmount) {
		t.Errorf("want min <= recommended <= max, got %s / %s / %s",
			sizing.MinAmount, sizing.RecommendedAmount, sizing.MaxAmount)
	}

	if got := model.Evaluate(opp, sizing.MinAmount).NetProfit; got.LessThan(target) {
		t.Errorf("net profit at MinAmount = %s, want >= %s", got, target)
	}

	minNet := model.Evaluate(opp, sizing.MinAmount).NetProfit
	recNet := model.Evaluate(opp, sizing.RecommendedAmount).NetProfit
	if recNet.LessThan(minNet) {
		t.Errorf("recommended size net %s below minimum size net %s", recNet, minNet)
	}
}

func TestOptimizer_FindSizing_TargetMonotonicity(t *testing.T) {
	opt := NewOptimizer(referenceModel(), DefaultOptimizerConfig())
	opp := referenceOpportunity()
	tolerance := decimal.NewFromInt(1)

	low := opt.FindSizing(opp, decimal.NewFromInt(50), tolerance)
	high := opt.FindSizing(opp, decimal.NewFromInt(300), tolerance)

	if !low.Profitable || !high.Profitable {
		t.Fatalf("want both targets feasible, got %v / %v", low.Profitable, high.Profitable)
	}
	if high.MinAmount.LessThan(low.MinAmount) {
		t.Errorf("raising the target shrank MinAmount: %s -> %s", low.MinAmount, high.MinAmount)
	}
}

func TestOptimizer_FindSizing_ZeroToleranceIsInfeasible(t *testing.T) {
	opt := NewOptimizer(referenceModel(), DefaultOptimizerConfig())
	opp := referenceOpportunity()

	sizing := opt.FindSizing(opp, decimal.NewFromInt(50), decimal.Zero)

	if sizing.Profitable {
		t.Fatal("want infeasible under zero slippage tolerance")
	}
	if !strings.Contains(sizing.Reason, "slippage tolerance") {
		t.Errorf("Reason = %q, want slippage tolerance mentioned", sizing.Reason)
	}
	if !sizing.RecommendedAmount.IsZero() {
		t.Errorf("RecommendedAmount = %s, want zero when infeasible", sizing.RecommendedAmount)
	}
}

func TestOptimizer_FindSizing_FeesDominateThinSpread(t *testing.T) {
	opt := NewOptimizer(referenceModel(), DefaultOptimizerConfig())

	buyVenue := makeVenue("alpha", quotingDomain.KindConstantProduct, 30, 120_000, "2000000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 30, 130_000, "2000000")

	// 0.1% spread against 0.6% of round-trip fees.
	opp := makeOpportunity("10.00", "10.01", buyVenue, sellVenue)

	sizing := opt.FindSizing(opp, decimal.NewFromInt(50), decimal.NewFromInt(1))

	if sizing.Profitable {
		t.Fatal("want infeasible when fees exceed the spread")
	}
	if !strings.Contains(sizing.Reason, "fees") {
		t.Errorf("Reason = %q, want fees named as the blocker", sizing.Reason)
	}
}

func TestOptimizer_FindSizing_GasDominatesSmallWindow(t *testing.T) {
	opt := NewOptimizer(referenceModel(), DefaultOptimizerConfig())

	// Zero-fee venues but a window so shallow the flat gas cost can
	// never be recovered.
	buyVenue := makeVenue("alpha", quotingDomain.KindConstantProduct, 0, 120_000, "4000")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 0, 130_000, "4000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)
	opp.Funding = &fundingDomain.FundingQuote{
		PremiumBps: decimal.NewFromInt(1),
		GasUnits:   250_000,
	}

	sizing := opt.FindSizing(opp, decimal.NewFromInt(50), decimal.NewFromInt(1))

	if sizing.Profitable {
		t.Fatal("want infeasible when gas dominates")
	}
	if !strings.Contains(sizing.Reason, "gas") {
		t.Errorf("Reason = %q, want gas named as the blocker", sizing.Reason)
	}
}

func TestOptimizer_FindSizing_LiquidityBelowFloor(t *testing.T) {
	opt := NewOptimizer(referenceModel(), DefaultOptimizerConfig())

	// 10% of 500 is 50 of notional; the 100 floor cannot fit.
	buyVenue := makeVenue("alpha", quotingDomain.KindConstantProduct, 30, 120_000, "500")
	sellVenue := makeVenue("beta", quotingDomain.KindConstantProduct, 5, 130_000, "2000000")

	opp := makeOpportunity("10.00", "10.20", buyVenue, sellVenue)

	sizing := opt.FindSizing(opp, decimal.NewFromInt(50), decimal.NewFromInt(1))

	if sizing.Profitable {
		t.Fatal("want infeasible when the window is empty")
	}
	if !strings.Contains(sizing.Reason, "liquidity") {
		t.Errorf("Reason = %q, want liquidity named", sizing.Reason)
	}
}

func TestOptimizer_FindSizing_LoanCeilingClampsMax(t *testing.T) {
	opt := NewOptimizer(referenceModel(), DefaultOptimizerConfig())
	opp := referenceOpportunity()

	usdc := asset.MustNewToken(1,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		"USDC", "USD Coin", 6)
	maxLoan := new(big.Int).Mul(big.NewInt(50_000), big.NewInt(1_000_000))
	opp.Funding.MaxLoan = asset.NewAmount(usdc, maxLoan)

	sizing := opt.FindSizing(opp, decimal.NewFromInt(50), decimal.NewFromInt(1))

	if !sizing.Profitable {
		t.Fatalf("want feasible, got reason %q", sizing.Reason)
	}
	// 50k of borrowable notional at a buy price of 10 caps the size at
	// 5000, under the 20000 liquidity bound.
	if !sizing.MaxAmount.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("MaxAmount = %s, want 5000 from the loan ceiling", sizing.MaxAmount)
	}
}
