// Package curve prices swaps on stable-swap pools by delegating to the
// pool's own get_dy quote function.
package curve

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/msolari/flasharb/business/chain/app"
	quoting "github.com/msolari/flasharb/business/quoting/app"
	"github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/logger"
)

const tracerName = "curve"

var _ quoting.VenueQuoter = (*Quoter)(nil)

// Quoter prices swaps on a configured stable-swap pool. Token indices
// are resolved by scanning the pool's coins list; the pool computes
// the output itself, so local math stays out of this adapter.
type Quoter struct {
	caller  chainapp.Caller
	poolABI abi.ABI

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewQuoter creates a stable-swap venue quoter.
func NewQuoter(caller chainapp.Caller, log logger.LoggerInterface) (*Quoter, error) {
	poolABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("parse pool ABI: %w", err)
	}

	return &Quoter{
		caller:  caller,
		poolABI: poolABI,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// Quote resolves both token indices in the venue's pool and delegates
// the swap computation to get_dy.
func (q *Quoter) Quote(ctx context.Context, venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "curve.quote",
		trace.WithAttributes(
			attribute.String("venue", venue.Name),
			attribute.String("pool", venue.Pool.Hex()),
		),
	)
	defer span.End()

	i, j, err := q.resolveIndices(ctx, venue.Pool, tokenIn.Address(), tokenOut.Address())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index resolution failed")
		return domain.Quote{}, err
	}

	if i < 0 || j < 0 {
		span.AddEvent("token_not_in_pool")
		return domain.Quote{}, apperror.New(apperror.CodeNoLiquidity,
			apperror.WithContext(fmt.Sprintf("%s: pool %s does not hold %s/%s",
				venue.Name, venue.Pool.Hex(), tokenIn.Symbol(), tokenOut.Symbol())))
	}

	amountOut, err := q.getDy(ctx, venue.Pool, i, j, amountIn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "get_dy failed")
		return domain.Quote{}, err
	}

	quote := domain.NewQuote(venue,
		tokenIn, tokenOut,
		asset.NewAmount(tokenIn, amountIn),
		asset.NewAmount(tokenOut, amountOut),
	)

	span.SetAttributes(
		attribute.Int("i", i),
		attribute.Int("j", j),
		attribute.String("amount_out", amountOut.String()),
	)
	span.SetStatus(codes.Ok, "quoted")

	return quote, nil
}

// resolveIndices scans coins(0..maxCoins) for both tokens. A failed
// read past index 0 means the end of the coin list, not an outage.
func (q *Quoter) resolveIndices(ctx context.Context, pool, tokenIn, tokenOut common.Address) (int, int, error) {
	i, j := -1, -1

	for idx := 0; idx < maxCoins; idx++ {
		callData, err := q.poolABI.Pack("coins", big.NewInt(int64(idx)))
		if err != nil {
			return -1, -1, fmt.Errorf("encode coins(%d): %w", idx, err)
		}

		out, err := q.caller.Call(ctx, pool, callData)
		if err != nil {
			if idx == 0 {
				return -1, -1, apperror.New(apperror.CodeUpstreamUnavailable,
					apperror.WithCause(err),
					apperror.WithContext("coins(0) transport failure"))
			}
			break
		}

		results, err := q.poolABI.Unpack("coins", out)
		if err != nil || len(results) < 1 {
			break
		}

		coin := results[0].(common.Address)
		if coin == tokenIn {
			i = idx
		}
		if coin == tokenOut {
			j = idx
		}
		if i >= 0 && j >= 0 {
			break
		}
	}

	return i, j, nil
}

func (q *Quoter) getDy(ctx context.Context, pool common.Address, i, j int, dx *big.Int) (*big.Int, error) {
	callData, err := q.poolABI.Pack("get_dy", big.NewInt(int64(i)), big.NewInt(int64(j)), dx)
	if err != nil {
		return nil, fmt.Errorf("encode get_dy: %w", err)
	}

	out, err := q.caller.Call(ctx, pool, callData)
	if err != nil {
		return nil, apperror.New(apperror.CodeUpstreamUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("get_dy transport failure"))
	}

	results, err := q.poolABI.Unpack("get_dy", out)
	if err != nil || len(results) < 1 {
		return nil, apperror.New(apperror.CodeStalePoolState,
			apperror.WithCause(err),
			apperror.WithContext("undecodable get_dy result"))
	}

	return results[0].(*big.Int), nil
}
