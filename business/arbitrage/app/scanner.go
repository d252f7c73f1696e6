package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/msolari/flasharb/business/arbitrage/domain"
	quotingApp "github.com/msolari/flasharb/business/quoting/app"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/logger"
)

const (
	scannerTracerName = "arbitrage.scanner"
	scannerMeterName  = "arbitrage.scanner"
)

// defaultMinScanSpreadPct is the noise floor below which a price gap is
// not worth reporting as provisional.
var defaultMinScanSpreadPct = decimal.RequireFromString("0.1")

// ScanResult carries everything one pass over a pair produced. Quotes
// holds only the usable ones, so callers can tell a quiet market from a
// blind one.
type ScanResult struct {
	Pair          quotingDomain.Pair
	Quotes        []venueQuote
	Opportunities []domain.ProvisionalOpportunity
}

type venueQuote struct {
	Venue quotingDomain.Venue
	Quote quotingDomain.Quote
}

type scannerMetrics struct {
	scansTotal    metric.Int64Counter
	venueFailures metric.Int64Counter
	spreadsFound  metric.Int64Counter
}

// Scanner fans one probe quote out across all venues of a pair and
// reports every venue pairing whose spread clears the noise floor.
type Scanner struct {
	quoter       *quotingApp.Quoter
	minSpreadPct decimal.Decimal
	logger       logger.LoggerInterface
	tracer       trace.Tracer
	metrics      *scannerMetrics
}

// NewScanner creates a scanner over the quoting service. A zero
// minSpreadPct falls back to the 0.1% noise floor.
func NewScanner(quoter *quotingApp.Quoter, minSpreadPct decimal.Decimal, log logger.LoggerInterface) (*Scanner, error) {
	if minSpreadPct.IsZero() {
		minSpreadPct = defaultMinScanSpreadPct
	}

	s := &Scanner{
		quoter:       quoter,
		minSpreadPct: minSpreadPct,
		logger:       log,
		tracer:       otel.Tracer(scannerTracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

func (s *Scanner) initMetrics() error {
	meter := otel.Meter(scannerMeterName)
	var err error

	s.metrics = &scannerMetrics{}

	s.metrics.scansTotal, err = meter.Int64Counter(
		"scans_total",
		metric.WithDescription("Pair scans executed"),
	)
	if err != nil {
		return err
	}

	s.metrics.venueFailures, err = meter.Int64Counter(
		"scan_venue_failures_total",
		metric.WithDescription("Venue quote failures during scans"),
	)
	if err != nil {
		return err
	}

	s.metrics.spreadsFound, err = meter.Int64Counter(
		"scan_spreads_total",
		metric.WithDescription("Provisional spreads above the noise floor"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Scan quotes one base unit of the pair's base token on every venue and
// compares each venue pairing. A venue that fails to quote is logged
// and skipped; it never aborts the pass.
func (s *Scanner) Scan(ctx context.Context, pair quotingDomain.Pair, venues []quotingDomain.Venue) ScanResult {
	ctx, span := s.tracer.Start(ctx, "arbitrage.scan",
		trace.WithAttributes(
			attribute.String("pair", pair.String()),
			attribute.Int("venues", len(venues)),
		),
	)
	defer span.End()

	s.metrics.scansTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("pair", pair.String())))

	testAmount := pair.Base.BaseUnit()

	results := make([]*venueQuote, len(venues))
	var wg sync.WaitGroup

	for i, venue := range venues {
		wg.Add(1)
		go func(i int, venue quotingDomain.Venue) {
			defer wg.Done()

			quote, err := s.quoter.Quote(ctx, venue, pair.Base, pair.Quote, testAmount)
			if err != nil {
				s.logQuoteFailure(ctx, pair, venue, err)
				return
			}
			if !quote.IsUsable() {
				return
			}
			results[i] = &venueQuote{Venue: venue, Quote: quote}
		}(i, venue)
	}

	wg.Wait()

	usable := make([]venueQuote, 0, len(venues))
	for _, r := range results {
		if r != nil {
			usable = append(usable, *r)
		}
	}

	opportunities := s.compare(ctx, pair, usable)

	span.SetAttributes(
		attribute.Int("usable_quotes", len(usable)),
		attribute.Int("opportunities", len(opportunities)),
	)

	return ScanResult{Pair: pair, Quotes: usable, Opportunities: opportunities}
}

// compare pairs every two usable quotes and keeps the direction whose
// spread clears the noise floor. Buy side is always the cheaper venue.
func (s *Scanner) compare(ctx context.Context, pair quotingDomain.Pair, quotes []venueQuote) []domain.ProvisionalOpportunity {
	var opportunities []domain.ProvisionalOpportunity

	for i := 0; i < len(quotes); i++ {
		for j := i + 1; j < len(quotes); j++ {
			buy, sell := quotes[i], quotes[j]
			if sell.Quote.Price.LessThan(buy.Quote.Price) {
				buy, sell = sell, buy
			}

			spread := domain.Spread(buy.Quote.Price, sell.Quote.Price)
			if spread.LessThanOrEqual(s.minSpreadPct) {
				continue
			}

			opportunities = append(opportunities, domain.ProvisionalOpportunity{
				Pair:      pair,
				BuyVenue:  buy.Venue,
				SellVenue: sell.Venue,
				BuyQuote:  buy.Quote,
				SellQuote: sell.Quote,
				BuyPrice:  buy.Quote.Price,
				SellPrice: sell.Quote.Price,
				SpreadPct: spread,
				Timestamp: time.Now(),
			})

			s.metrics.spreadsFound.Add(ctx, 1, metric.WithAttributes(
				attribute.String("pair", pair.String()),
				attribute.String("buy_venue", buy.Venue.Name),
				attribute.String("sell_venue", sell.Venue.Name),
			))

			s.logger.Debug(ctx, "spread found",
				"pair", pair.String(),
				"buy_venue", buy.Venue.Name,
				"sell_venue", sell.Venue.Name,
				"spread_pct", spread.StringFixed(4),
			)
		}
	}

	return opportunities
}

// logQuoteFailure grades the noise: a venue without the pair is routine,
// everything else deserves a warning.
func (s *Scanner) logQuoteFailure(ctx context.Context, pair quotingDomain.Pair, venue quotingDomain.Venue, err error) {
	s.metrics.venueFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("venue", venue.Name)))

	var appErr *apperror.AppError
	if errors.As(err, &appErr) && appErr.Code == apperror.CodeNoLiquidity {
		s.logger.Debug(ctx, "venue has no market for pair",
			"pair", pair.String(),
			"venue", venue.Name,
		)
		return
	}

	s.logger.Warn(ctx, "venue quote failed",
		"pair", pair.String(),
		"venue", venue.Name,
		"error", err.Error(),
	)
}
