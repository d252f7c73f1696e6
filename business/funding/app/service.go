package app

import (
	"context"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/msolari/flasharb/business/funding/domain"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/logger"
)

const (
	tracerName = "funding"
	meterName  = "funding"
)

// Documented fallback terms, used whenever the provider cannot be
// reached. Erring toward a nonzero premium keeps profit estimates
// conservative.
var defaultPremiumBps = decimal.NewFromInt(9) // 0.09%

const defaultGasUnits = 250_000

// Config holds the funding service policy knobs.
type Config struct {
	DefaultPremiumBps float64
	LoanGasUnits      uint64
	PremiumCacheTTL   time.Duration
}

type serviceMetrics struct {
	quotes    metric.Int64Counter
	fallbacks metric.Int64Counter
}

// Service produces funding quotes. It fails closed: upstream failures
// degrade to the documented defaults and are never surfaced as errors.
type Service struct {
	provider FundingProvider
	config   Config
	logger   logger.LoggerInterface

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewService creates the funding service. provider may be nil, in
// which case every quote uses the defaults.
func NewService(provider FundingProvider, cfg Config, log logger.LoggerInterface) (*Service, error) {
	s := &Service{
		provider: provider,
		config:   cfg,
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.quotes, err = meter.Int64Counter(
		"funding_quotes_total",
		metric.WithDescription("Total funding quote requests"),
	)
	if err != nil {
		return err
	}

	s.metrics.fallbacks, err = meter.Int64Counter(
		"funding_fallbacks_total",
		metric.WithDescription("Funding quotes served from fallback defaults"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Quote returns the flash-loan terms for borrowing amount of token.
// It never returns an error: any upstream failure falls back to the
// default premium, default gas and an unknown (zero) loan ceiling.
func (s *Service) Quote(ctx context.Context, token *asset.Asset, amount asset.Amount) domain.FundingQuote {
	ctx, span := s.tracer.Start(ctx, "funding.quote",
		trace.WithAttributes(
			attribute.String("token", token.Symbol()),
			attribute.String("amount", amount.Raw().String()),
		),
	)
	defer span.End()

	s.metrics.quotes.Add(ctx, 1)

	premium := s.fallbackPremium()
	maxLoan := asset.Zero(token)
	source := domain.SourceFallback

	if s.provider != nil {
		if bps, err := s.provider.PremiumBps(ctx); err != nil {
			s.logDegraded(ctx, span, "premium read failed", err)
		} else {
			premium = bps
			source = domain.SourceAave
		}

		if liq, err := s.provider.AvailableLiquidity(ctx, token); err != nil {
			s.logDegraded(ctx, span, "liquidity read failed", err)
		} else if liq != nil && liq.Sign() > 0 {
			maxLoan = asset.NewAmount(token, new(big.Int).Set(liq))
		}
	}

	if source == domain.SourceFallback {
		s.metrics.fallbacks.Add(ctx, 1)
	}

	gas := s.config.LoanGasUnits
	if gas == 0 {
		gas = defaultGasUnits
	}

	span.SetAttributes(
		attribute.String("premium_bps", premium.String()),
		attribute.String("source", source),
	)

	return domain.FundingQuote{
		Token:      token,
		Amount:     amount,
		PremiumBps: premium,
		GasUnits:   gas,
		MaxLoan:    maxLoan,
		Source:     source,
		Timestamp:  time.Now(),
	}
}

func (s *Service) fallbackPremium() decimal.Decimal {
	if s.config.DefaultPremiumBps > 0 {
		return decimal.NewFromFloat(s.config.DefaultPremiumBps)
	}
	return defaultPremiumBps
}

func (s *Service) logDegraded(ctx context.Context, span trace.Span, msg string, err error) {
	span.AddEvent("funding_degraded", trace.WithAttributes(attribute.String("reason", msg)))
	s.logger.Warn(ctx, "funding quote degraded to defaults", "reason", msg, "error", err)
}
