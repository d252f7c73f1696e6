// Package aggregator prices swaps through an external quote-aggregation
// HTTP API. Output amounts are opaque; the aggregator's own routing and
// fees are already baked in.
package aggregator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	quoting "github.com/msolari/flasharb/business/quoting/app"
	"github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/circuitbreaker"
	"github.com/msolari/flasharb/internal/httpclient"
	"github.com/msolari/flasharb/internal/logger"
	"github.com/msolari/flasharb/internal/ratelimit"
)

const tracerName = "aggregator"

var _ quoting.VenueQuoter = (*Quoter)(nil)

// Config holds the aggregator API settings.
type Config struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	RequestsPerMin int
}

// priceResponse is the aggregator's price endpoint payload.
type priceResponse struct {
	BuyAmount  string `json:"buyAmount"`
	SellAmount string `json:"sellAmount"`
	Price      string `json:"price"`
}

// Quoter prices swaps via the aggregator's price endpoint.
type Quoter struct {
	client  httpclient.Client
	limiter *ratelimit.Limiter
	cb      *circuitbreaker.CircuitBreaker[*httpclient.Response]

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewQuoter creates an external-aggregator venue quoter.
func NewQuoter(cfg Config, log logger.LoggerInterface) (*Quoter, error) {
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["0x-api-key"] = cfg.APIKey
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithProviderName("aggregator"),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, fmt.Errorf("build aggregator client: %w", err)
	}

	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 60
	}

	return &Quoter{
		client:  client,
		limiter: ratelimit.New(rpm),
		cb:      circuitbreaker.New[*httpclient.Response](circuitbreaker.DefaultConfig("aggregator")),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Quote fetches a sell quote for amountIn and parses the buy amount.
func (q *Quoter) Quote(ctx context.Context, venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "aggregator.quote",
		trace.WithAttributes(
			attribute.String("venue", venue.Name),
			attribute.String("sell_token", tokenIn.Address().Hex()),
			attribute.String("buy_token", tokenOut.Address().Hex()),
		),
	)
	defer span.End()

	if err := q.limiter.Wait(ctx); err != nil {
		span.RecordError(err)
		return domain.Quote{}, err
	}

	var result priceResponse

	_, err := q.cb.Execute(func() (*httpclient.Response, error) {
		return q.client.NewRequestWithOptions(
			httpclient.WithLabels(httpclient.NewLabel("venue", venue.Name)),
			httpclient.WithResponseErrorHandler(func(statusCode int, body []byte) error {
				if statusCode >= 400 {
					return fmt.Errorf("aggregator returned %d: %s", statusCode, truncate(body, 200))
				}
				return nil
			}),
		).
			SetQueryParams(map[string]string{
				"sellToken":  tokenIn.Address().Hex(),
				"buyToken":   tokenOut.Address().Hex(),
				"sellAmount": amountIn.String(),
			}).
			SetResult(&result).
			Get(ctx, "/swap/v1/price")
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return domain.Quote{}, apperror.New(apperror.CodeUpstreamUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(venue.Name+" price request failed"))
	}

	amountOut, ok := new(big.Int).SetString(result.BuyAmount, 10)
	if !ok || amountOut.Sign() < 0 {
		span.SetStatus(codes.Error, "unparseable buy amount")
		return domain.Quote{}, apperror.New(apperror.CodeUpstreamUnavailable,
			apperror.WithContext(fmt.Sprintf("%s: unparseable buy amount %q",
				venue.Name, result.BuyAmount)))
	}

	quote := domain.NewQuote(venue,
		tokenIn, tokenOut,
		asset.NewAmount(tokenIn, amountIn),
		asset.NewAmount(tokenOut, amountOut),
	)

	span.SetAttributes(attribute.String("amount_out", amountOut.String()))
	span.SetStatus(codes.Ok, "quoted")

	return quote, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
