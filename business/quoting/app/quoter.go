package app

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/cache"
	"github.com/msolari/flasharb/internal/logger"
)

const (
	tracerName = "quoting"
	meterName  = "quoting"

	defaultQuoteTTL = 3 * time.Second
)

type quoterMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteErrors  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	cacheHits    metric.Int64Counter
}

// Quoter prices swaps by dispatching each request to the adapter for
// the venue's kind. Quotes are cached for one scan pass at most.
type Quoter struct {
	adapters map[domain.VenueKind]VenueQuoter
	quoteTTL time.Duration

	quotes *cache.Cache[string, domain.Quote]
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *quoterMetrics
}

// NewQuoter creates the quoting service over the given kind adapters.
// A non-positive quoteTTL falls back to the 3s default.
func NewQuoter(adapters map[domain.VenueKind]VenueQuoter, quoteTTL time.Duration, log logger.LoggerInterface) (*Quoter, error) {
	if quoteTTL <= 0 {
		quoteTTL = defaultQuoteTTL
	}

	q := &Quoter{
		adapters: adapters,
		quoteTTL: quoteTTL,
		quotes:   cache.New[string, domain.Quote](quoteTTL),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}

	if err := q.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return q, nil
}

func (q *Quoter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	q.metrics = &quoterMetrics{}

	q.metrics.quotesTotal, err = meter.Int64Counter(
		"quotes_total",
		metric.WithDescription("Total quote requests by venue"),
	)
	if err != nil {
		return err
	}

	q.metrics.quoteErrors, err = meter.Int64Counter(
		"quote_errors_total",
		metric.WithDescription("Failed quote requests by venue"),
	)
	if err != nil {
		return err
	}

	q.metrics.quoteLatency, err = meter.Float64Histogram(
		"quote_latency_ms",
		metric.WithDescription("Quote request latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	q.metrics.cacheHits, err = meter.Int64Counter(
		"quote_cache_hits_total",
		metric.WithDescription("Quote cache hits"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Quote prices a swap on the given venue. The venue's kind selects the
// adapter; unknown kinds are a programming error surfaced as
// CodeInvalidQuote.
func (q *Quoter) Quote(ctx context.Context, venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "quoting.quote",
		trace.WithAttributes(
			attribute.String("venue", venue.Name),
			attribute.String("kind", string(venue.Kind)),
			attribute.String("token_in", tokenIn.Symbol()),
			attribute.String("token_out", tokenOut.Symbol()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	venueAttr := metric.WithAttributes(attribute.String("venue", venue.Name))
	q.metrics.quotesTotal.Add(ctx, 1, venueAttr)

	key := cacheKey(venue, tokenIn, tokenOut, amountIn)
	if cached, found := q.quotes.Get(ctx, key); found {
		q.metrics.cacheHits.Add(ctx, 1, venueAttr)
		span.AddEvent("cache_hit")
		return cached, nil
	}

	adapter, ok := q.adapters[venue.Kind]
	if !ok {
		err := apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("no adapter for venue kind %q", venue.Kind)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no adapter")
		return domain.Quote{}, err
	}

	start := time.Now()
	quote, err := adapter.Quote(ctx, venue, tokenIn, tokenOut, amountIn)
	q.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()), venueAttr)

	if err != nil {
		q.metrics.quoteErrors.Add(ctx, 1, venueAttr)
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return domain.Quote{}, err
	}

	q.quotes.Set(ctx, key, quote, q.quoteTTL)

	span.SetAttributes(
		attribute.String("amount_out", quote.AmountOut.Raw().String()),
		attribute.String("price", quote.Price.String()),
	)
	span.SetStatus(codes.Ok, "quoted")

	q.logger.Debug(ctx, "quote",
		"venue", venue.Name,
		"token_in", tokenIn.Symbol(),
		"token_out", tokenOut.Symbol(),
		"amount_in", amountIn.String(),
		"amount_out", quote.AmountOut.Raw().String(),
	)

	return quote, nil
}

// ResetCache drops all cached quotes. The scan loop calls this between
// passes so no quote ever outlives the pass that fetched it.
func (q *Quoter) ResetCache() {
	q.quotes.Clear()
}

func cacheKey(venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) string {
	return fmt.Sprintf("%s|%s|%s|%s",
		venue.Name, tokenIn.Address().Hex(), tokenOut.Address().Hex(), amountIn.String())
}
