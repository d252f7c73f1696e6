package univ3

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

const tracerName = "univ3"

var zeroAddress = common.Address{}

var _ quoting.VenueQuoter = (*Quoter)(nil)

// Quoter prices swaps on concentrated-liquidity pools from the current
// slot0 price. Fee tiers are tried in ascending order; the first tier
// with a live pool wins.
type Quoter struct {
	caller     chainapp.Caller
	factoryABI abi.ABI
	poolABI    abi.ABI

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewQuoter creates a concentrated-liquidity venue quoter.
func NewQuoter(caller chainapp.Caller, log logger.LoggerInterface) (*Quoter, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("parse factory ABI: %w", err)
	}

	poolABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("parse pool ABI: %w", err)
	}

	return &Quoter{
		caller:     caller,
		factoryABI: factoryABI,
		poolABI:    poolABI,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Quote resolves a pool per fee tier and prices against its slot0.
func (q *Quoter) Quote(ctx context.Context, venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "univ3.quote",
		trace.WithAttributes(
			attribute.String("venue", venue.Name),
			attribute.String("factory", venue.Factory.Hex()),
		),
	)
	defer span.End()

	zeroForOne := ZeroForOne(tokenIn.Address(), tokenOut.Address())
	sawStale := false

	for _, tier := range FeeTiers {
		pool, err := q.resolvePool(ctx, venue.Factory, tokenIn.Address(), tokenOut.Address(), tier)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pool resolution failed")
			return domain.Quote{}, err
		}

		if pool == zeroAddress {
			span.AddEvent("tier_without_pool",
				trace.WithAttributes(attribute.Int64("fee_tier", tier)))
			continue
		}

		sqrtPriceX96, err := q.readSqrtPrice(ctx, pool)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "slot0 read failed")
			return domain.Quote{}, err
		}

		if sqrtPriceX96.Sign() == 0 {
			sawStale = true
			span.AddEvent("tier_with_zero_price",
				trace.WithAttributes(attribute.Int64("fee_tier", tier)))
			continue
		}

		amountOut := AmountOut(amountIn, sqrtPriceX96, tier, zeroForOne)

		quote := domain.NewQuote(venue,
			tokenIn, tokenOut,
			asset.NewAmount(tokenIn, amountIn),
			asset.NewAmount(tokenOut, amountOut),
		)

		span.SetAttributes(
			attribute.Int64("fee_tier", tier),
			attribute.String("amount_out", amountOut.String()),
		)
		span.SetStatus(codes.Ok, "quoted")

		return quote, nil
	}

	if sawStale {
		return domain.Quote{}, apperror.New(apperror.CodeStalePoolState,
			apperror.WithContext(fmt.Sprintf("%s: only uninitialized pools for %s/%s",
				venue.Name, tokenIn.Symbol(), tokenOut.Symbol())))
	}

	return domain.Quote{}, apperror.New(apperror.CodeNoLiquidity,
		apperror.WithContext(fmt.Sprintf("%s: no pool in any fee tier for %s/%s",
			venue.Name, tokenIn.Symbol(), tokenOut.Symbol())))
}

func (q *Quoter) resolvePool(ctx context.Context, factory, tokenA, tokenB common.Address, feeTier int64) (common.Address, error) {
	callData, err := q.factoryABI.Pack("getPool", tokenA, tokenB, big.NewInt(feeTier))
	if err != nil {
		return zeroAddress, fmt.Errorf("encode getPool: %w", err)
	}

	out, err := q.caller.Call(ctx, factory, callData)
	if err != nil {
		return zeroAddress, apperror.New(apperror.CodeUpstreamUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("getPool transport failure"))
	}

	results, err := q.factoryABI.Unpack("getPool", out)
	if err != nil || len(results) < 1 {
		return zeroAddress, apperror.New(apperror.CodeStalePoolState,
			apperror.WithCause(err),
			apperror.WithContext("undecodable getPool result"))
	}

	return results[0].(common.Address), nil
}

func (q *Quoter) readSqrtPrice(ctx context.Context, pool common.Address) (*big.Int, error) {
	callData, err := q.poolABI.Pack("slot0")
	if err != nil {
		return nil, fmt.Errorf("encode slot0: %w", err)
	}

	out, err := q.caller.Call(ctx, pool, callData)
	if err != nil {
		return nil, apperror.New(apperror.CodeUpstreamUnavailable,
			apperror.WithCause(err),
			apperror.WithContext("slot0 transport failure"))
	}

	results, err := q.poolABI.Unpack("slot0", out)
	if err != nil || len(results) < 1 {
		return nil, apperror.New(apperror.CodeStalePoolState,
			apperror.WithCause(err),
			apperror.WithContext("undecodable slot0 result"))
	}

	return results[0].(*big.Int), nil
}
