package app

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/msolari/flasharb/business/arbitrage/domain"
	fundingApp "github.com/msolari/flasharb/business/funding/app"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/logger"
)

const (
	analyzerTracerName = "arbitrage.analyzer"
	analyzerMeterName  = "arbitrage.analyzer"
)

// AnalyzerConfig holds the profitability gates.
type AnalyzerConfig struct {
	MinOpportunitySpreadPct decimal.Decimal // default 0.5
	MinProfitUSD            decimal.Decimal // default 50
	SlippageTolerancePct    decimal.Decimal // default 1.0
}

// DefaultAnalyzerConfig returns the documented gate defaults.
func DefaultAnalyzerConfig() AnalyzerConfig {
	return AnalyzerConfig{
		MinOpportunitySpreadPct: decimal.RequireFromString("0.5"),
		MinProfitUSD:            decimal.NewFromInt(50),
		SlippageTolerancePct:    decimal.RequireFromString("1.0"),
	}
}

type analyzerMetrics struct {
	analysesTotal      metric.Int64Counter
	opportunitiesFound metric.Int64Counter
	rejections         metric.Int64Counter
}

// Analyzer runs the full pipeline for a pair: scan, gate on spread,
// attach funding terms, size, and evaluate. Component failures degrade
// the verdict; they never escape as errors.
type Analyzer struct {
	scanner   *Scanner
	optimizer *Optimizer
	model     *CostModel
	funding   *fundingApp.Service
	config    AnalyzerConfig

	logger  logger.LoggerInterface
	tracer  trace.Tracer
	metrics *analyzerMetrics
}

// NewAnalyzer wires the analysis pipeline. Zero config fields fall
// back to the documented defaults.
func NewAnalyzer(scanner *Scanner, optimizer *Optimizer, model *CostModel, funding *fundingApp.Service, cfg AnalyzerConfig, log logger.LoggerInterface) (*Analyzer, error) {
	defaults := DefaultAnalyzerConfig()
	if cfg.MinOpportunitySpreadPct.IsZero() {
		cfg.MinOpportunitySpreadPct = defaults.MinOpportunitySpreadPct
	}
	if cfg.MinProfitUSD.IsZero() {
		cfg.MinProfitUSD = defaults.MinProfitUSD
	}
	if cfg.SlippageTolerancePct.IsZero() {
		cfg.SlippageTolerancePct = defaults.SlippageTolerancePct
	}

	a := &Analyzer{
		scanner:   scanner,
		optimizer: optimizer,
		model:     model,
		funding:   funding,
		config:    cfg,
		logger:    log,
		tracer:    otel.Tracer(analyzerTracerName),
	}

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return a, nil
}

func (a *Analyzer) initMetrics() error {
	meter := otel.Meter(analyzerMeterName)
	var err error

	a.metrics = &analyzerMetrics{}

	a.metrics.analysesTotal, err = meter.Int64Counter(
		"analyses_total",
		metric.WithDescription("Pair analyses executed"),
	)
	if err != nil {
		return err
	}

	a.metrics.opportunitiesFound, err = meter.Int64Counter(
		"opportunities_total",
		metric.WithDescription("Profitable opportunities produced"),
	)
	if err != nil {
		return err
	}

	a.metrics.rejections, err = meter.Int64Counter(
		"analysis_rejections_total",
		metric.WithDescription("Analyses ending without an opportunity, by reason"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Analyze runs one pair through the pipeline. Exactly one of the two
// results is non-nil.
func (a *Analyzer) Analyze(ctx context.Context, pair quotingDomain.Pair, venues []quotingDomain.Venue) (*domain.Opportunity, *domain.NoOpportunity) {
	ctx, span := a.tracer.Start(ctx, "arbitrage.analyze",
		trace.WithAttributes(attribute.String("pair", pair.String())),
	)
	defer span.End()

	a.metrics.analysesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))

	scan := a.scanner.Scan(ctx, pair, venues)

	if len(scan.Quotes) < 2 {
		return nil, a.reject(ctx, span, pair, "insufficient price data")
	}

	best := bestSpread(scan.Opportunities)
	if best == nil || best.SpreadPct.LessThan(a.config.MinOpportunitySpreadPct) {
		return nil, a.reject(ctx, span, pair, "spread below threshold")
	}

	provisional := *best

	// Funding terms ride on the provisional so the optimizer's probes
	// never touch the chain.
	fundingQuote := a.funding.Quote(ctx, pair.Quote, provisional.BuyQuote.AmountOut)
	provisional.Funding = &fundingQuote

	sizing := a.optimizer.FindSizing(provisional, a.config.MinProfitUSD, a.config.SlippageTolerancePct)
	if !sizing.Profitable {
		return nil, a.reject(ctx, span, pair, sizing.Reason)
	}

	eval := a.model.Evaluate(provisional, sizing.RecommendedAmount)
	if !eval.IsProfitable() {
		return nil, a.reject(ctx, span, pair, "costs exceed gross profit at recommended size")
	}

	opp := &domain.Opportunity{
		ID:          uuid.NewString(),
		Pair:        pair,
		BuyVenue:    provisional.BuyVenue.Name,
		SellVenue:   provisional.SellVenue.Name,
		BuyPrice:    provisional.BuyPrice,
		SellPrice:   provisional.SellPrice,
		SpreadPct:   provisional.SpreadPct,
		Sizing:      sizing,
		Evaluation:  eval,
		Funding:     provisional.Funding,
		RiskFactors: assessRisks(provisional, sizing, eval),
		Timestamp:   provisional.Timestamp,
	}

	a.metrics.opportunitiesFound.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))

	span.SetAttributes(
		attribute.String("net_profit", eval.NetProfit.StringFixed(2)),
		attribute.String("recommended_size", sizing.RecommendedAmount.String()),
	)

	a.logger.Info(ctx, "opportunity found",
		"pair", pair.String(),
		"buy_venue", opp.BuyVenue,
		"sell_venue", opp.SellVenue,
		"spread_pct", opp.SpreadPct.StringFixed(4),
		"net_profit", eval.NetProfit.StringFixed(2),
	)

	return opp, nil
}

// ScanAll analyzes every pair and returns the profitable ones sorted by
// net profit, best first, plus the per-pair rejections.
func (a *Analyzer) ScanAll(ctx context.Context, pairs []quotingDomain.Pair, venues []quotingDomain.Venue) ([]*domain.Opportunity, []*domain.NoOpportunity) {
	ctx, span := a.tracer.Start(ctx, "arbitrage.scan_all",
		trace.WithAttributes(attribute.Int("pairs", len(pairs))),
	)
	defer span.End()

	var opportunities []*domain.Opportunity
	var rejections []*domain.NoOpportunity

	for _, pair := range pairs {
		opp, none := a.Analyze(ctx, pair, venues)
		if opp != nil {
			opportunities = append(opportunities, opp)
		}
		if none != nil {
			rejections = append(rejections, none)
		}
	}

	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].Evaluation.NetProfit.GreaterThan(opportunities[j].Evaluation.NetProfit)
	})

	span.SetAttributes(attribute.Int("opportunities", len(opportunities)))

	return opportunities, rejections
}

func (a *Analyzer) reject(ctx context.Context, span trace.Span, pair quotingDomain.Pair, reason string) *domain.NoOpportunity {
	a.metrics.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	span.SetAttributes(attribute.String("rejection", reason))

	a.logger.Debug(ctx, "no opportunity",
		"pair", pair.String(),
		"reason", reason,
	)

	return domain.NewNoOpportunity(pair, reason)
}

func bestSpread(opportunities []domain.ProvisionalOpportunity) *domain.ProvisionalOpportunity {
	var best *domain.ProvisionalOpportunity
	for i := range opportunities {
		if best == nil || opportunities[i].SpreadPct.GreaterThan(best.SpreadPct) {
			best = &opportunities[i]
		}
	}
	return best
}

// assessRisks flags qualitative concerns a human should weigh before
// acting on the numbers.
func assessRisks(opp domain.ProvisionalOpportunity, sizing domain.TradeSizing, eval domain.Evaluation) []domain.RiskFactor {
	var risks []domain.RiskFactor

	highSlip := decimal.RequireFromString("0.5")
	if eval.BuySlippagePct.GreaterThan(highSlip) || eval.SellSlippagePct.GreaterThan(highSlip) {
		risks = append(risks, domain.RiskFactor{
			Name:        "high_slippage",
			Description: "estimated slippage above 0.5% on at least one leg",
			Severity:    "medium",
		})
	}

	if eval.GrossRevenue.IsPositive() {
		feeShare := eval.Costs.Total.Div(eval.GrossRevenue)
		if feeShare.GreaterThan(decimal.RequireFromString("0.8")) {
			risks = append(risks, domain.RiskFactor{
				Name:        "thin_margin",
				Description: "costs consume over 80% of gross profit",
				Severity:    "high",
			})
		}
	}

	if eval.ROI.LessThan(decimal.RequireFromString("0.1")) {
		risks = append(risks, domain.RiskFactor{
			Name:        "low_roi",
			Description: "return under 0.1% of deployed capital",
			Severity:    "low",
		})
	}

	if opp.Funding != nil && opp.Funding.MaxLoan.IsPositive() {
		sizeNotional := sizing.RecommendedAmount.Mul(opp.BuyPrice)
		ceiling := opp.Funding.MaxLoan.ToDecimal()
		if sizeNotional.GreaterThan(ceiling.Mul(decimal.RequireFromString("0.8"))) {
			risks = append(risks, domain.RiskFactor{
				Name:        "near_loan_ceiling",
				Description: "recommended size uses over 80% of available flash liquidity",
				Severity:    "medium",
			})
		}
	}

	return risks
}
