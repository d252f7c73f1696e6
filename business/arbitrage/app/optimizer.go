package app

import (
	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/business/arbitrage/domain"
)

// OptimizerConfig bounds the sizing search.
type OptimizerConfig struct {
	MinTradeNotional     decimal.Decimal // floor in quote currency, default 100
	MaxLiquidityFraction decimal.Decimal // fraction of the thinner side, default 0.1
	SearchIterations     int             // binary search budget, default 20
	GrowthStepFraction   decimal.Decimal // linear pass step as fraction of min, default 0.25
}

// DefaultOptimizerConfig returns the documented search defaults.
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		MinTradeNotional:     decimal.NewFromInt(100),
		MaxLiquidityFraction: decimal.RequireFromString("0.1"),
		SearchIterations:     20,
		GrowthStepFraction:   decimal.RequireFromString("0.25"),
	}
}

// Optimizer searches trade sizes for an opportunity by repeatedly
// probing the cost model. All sizes are in base-token units.
type Optimizer struct {
	model  *CostModel
	config OptimizerConfig
}

// NewOptimizer creates an optimizer over the given cost model.
func NewOptimizer(model *CostModel, cfg OptimizerConfig) *Optimizer {
	if cfg.SearchIterations <= 0 {
		cfg.SearchIterations = 20
	}
	if cfg.MinTradeNotional.IsZero() {
		cfg.MinTradeNotional = decimal.NewFromInt(100)
	}
	if cfg.MaxLiquidityFraction.IsZero() {
		cfg.MaxLiquidityFraction = decimal.RequireFromString("0.1")
	}
	if cfg.GrowthStepFraction.IsZero() {
		cfg.GrowthStepFraction = decimal.RequireFromString("0.25")
	}
	return &Optimizer{model: model, config: cfg}
}

// FindSizing locates (a) the smallest size clearing minProfitTarget and
// (b) the profit-maximizing size under the slippage tolerance, via a
// bounded binary search followed by a linear growth pass. The profit
// curve is assumed single-peaked in size; the growth pass stops at the
// first decrease.
func (o *Optimizer) FindSizing(opp domain.ProvisionalOpportunity, minProfitTarget, slippageTolerancePct decimal.Decimal) domain.TradeSizing {
	lo, hi, reason := o.searchBounds(opp)
	if reason != "" {
		return infeasible(reason)
	}

	minSize, sawOnlySlippageBreaches := o.searchMinimum(opp, lo, hi, minProfitTarget, slippageTolerancePct)
	if minSize.IsZero() {
		return infeasible(o.blockingReason(opp, lo, hi, slippageTolerancePct, sawOnlySlippageBreaches))
	}

	maxSize := o.searchSlippageCeiling(opp, minSize, hi, slippageTolerancePct)
	recommended := o.growRecommended(opp, minSize, maxSize, slippageTolerancePct)

	return domain.TradeSizing{
		MinAmount:         minSize,
		MaxAmount:         maxSize,
		RecommendedAmount: recommended,
		Profitable:        true,
	}
}

// searchBounds derives the size window from the floor notional and the
// thinner side's liquidity. An empty window is its own blocking reason.
func (o *Optimizer) searchBounds(opp domain.ProvisionalOpportunity) (lo, hi decimal.Decimal, reason string) {
	if !opp.BuyPrice.IsPositive() || !opp.SellPrice.IsPositive() {
		return decimal.Zero, decimal.Zero, "missing usable prices"
	}

	lo = o.config.MinTradeNotional.Div(opp.BuyPrice)

	liquidity := opp.BuyVenue.LiquidityUSD
	if opp.SellVenue.LiquidityUSD.LessThan(liquidity) {
		liquidity = opp.SellVenue.LiquidityUSD
	}
	if !liquidity.IsPositive() {
		return decimal.Zero, decimal.Zero, "no liquidity estimate for either venue"
	}

	hi = liquidity.Mul(o.config.MaxLiquidityFraction).Div(opp.BuyPrice)

	// Funding's advisory ceiling binds when known.
	if opp.Funding != nil && opp.Funding.MaxLoan.IsPositive() {
		loanCeiling := opp.Funding.MaxLoan.ToDecimal().Div(opp.BuyPrice)
		if loanCeiling.LessThan(hi) {
			hi = loanCeiling
		}
	}

	if hi.LessThanOrEqual(lo) {
		return decimal.Zero, decimal.Zero, "liquidity bound below minimum trade size"
	}

	return lo, hi, ""
}

// searchMinimum binary-searches the smallest size whose net profit
// clears target without breaching the slippage tolerance. Returns zero
// when no probed size qualifies.
func (o *Optimizer) searchMinimum(opp domain.ProvisionalOpportunity, lo, hi, target, tolerancePct decimal.Decimal) (decimal.Decimal, bool) {
	best := decimal.Zero
	onlySlippageBreaches := true
	two := decimal.NewFromInt(2)

	for i := 0; i < o.config.SearchIterations; i++ {
		mid := lo.Add(hi).Div(two)
		eval := o.model.Evaluate(opp, mid)

		switch {
		case breachesTolerance(eval, tolerancePct):
			hi = mid
		case eval.NetProfit.GreaterThanOrEqual(target):
			onlySlippageBreaches = false
			best = mid
			hi = mid
		default:
			onlySlippageBreaches = false
			lo = mid
		}
	}

	return best, onlySlippageBreaches
}

// searchSlippageCeiling finds the largest size within [minSize, hi]
// that stays under the slippage tolerance.
func (o *Optimizer) searchSlippageCeiling(opp domain.ProvisionalOpportunity, minSize, hi, tolerancePct decimal.Decimal) decimal.Decimal {
	if !breachesTolerance(o.model.Evaluate(opp, hi), tolerancePct) {
		return hi
	}

	lo := minSize
	two := decimal.NewFromInt(2)

	for i := 0; i < o.config.SearchIterations; i++ {
		mid := lo.Add(hi).Div(two)
		if breachesTolerance(o.model.Evaluate(opp, mid), tolerancePct) {
			hi = mid
		} else {
			lo = mid
		}
	}

	return lo
}

// growRecommended walks up from minSize in fixed steps while profit
// strictly increases and slippage stays legal.
func (o *Optimizer) growRecommended(opp domain.ProvisionalOpportunity, minSize, maxSize, tolerancePct decimal.Decimal) decimal.Decimal {
	recommended := minSize
	bestProfit := o.model.Evaluate(opp, minSize).NetProfit
	step := minSize.Mul(o.config.GrowthStepFraction)

	if !step.IsPositive() {
		return recommended
	}

	for size := minSize.Add(step); size.LessThanOrEqual(maxSize); size = size.Add(step) {
		eval := o.model.Evaluate(opp, size)
		if breachesTolerance(eval, tolerancePct) {
			break
		}
		if !eval.NetProfit.GreaterThan(bestProfit) {
			break
		}
		bestProfit = eval.NetProfit
		recommended = size
	}

	return recommended
}

// blockingReason names the dominant cost at a representative size so
// infeasible results explain themselves.
func (o *Optimizer) blockingReason(opp domain.ProvisionalOpportunity, lo, hi, tolerancePct decimal.Decimal, onlySlippageBreaches bool) string {
	if onlySlippageBreaches {
		return "slippage tolerance too low for any size within bounds"
	}

	probe := lo.Add(hi).Div(decimal.NewFromInt(2))
	eval := o.model.Evaluate(opp, probe)

	fees := eval.Costs.BuyFee.Add(eval.Costs.SellFee).Add(eval.Costs.FundingFee)

	switch {
	case fees.GreaterThanOrEqual(eval.GrossRevenue):
		return "trading and funding fees exceed gross profit"
	case eval.Costs.SlippageCost.GreaterThanOrEqual(eval.GrossRevenue):
		return "estimated slippage exceeds gross profit"
	case eval.Costs.GasCost.GreaterThanOrEqual(eval.GrossRevenue):
		return "gas cost exceeds gross profit"
	default:
		return "spread too thin to reach the profit target within bounds"
	}
}

func breachesTolerance(eval domain.Evaluation, tolerancePct decimal.Decimal) bool {
	return eval.BuySlippagePct.GreaterThan(tolerancePct) ||
		eval.SellSlippagePct.GreaterThan(tolerancePct)
}

func infeasible(reason string) domain.TradeSizing {
	return domain.TradeSizing{
		MinAmount:         decimal.Zero,
		MaxAmount:         decimal.Zero,
		RecommendedAmount: decimal.Zero,
		Profitable:        false,
		Reason:            reason,
	}
}
