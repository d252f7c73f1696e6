package univ2

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

const tracerName = "univ2"

var zeroAddress = common.Address{}

// Ensure Quoter implements the venue port.
var _ quoting.VenueQuoter = (*Quoter)(nil)

// Quoter prices swaps on constant-product pools by reading pair state
// directly and running the pool formula locally.
type Quoter struct {
	caller     chainapp.Caller
	factoryABI abi.ABI
	pairABI    abi.ABI

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewQuoter creates a constant-product venue quoter.
func NewQuoter(caller chainapp.Caller, log logger.LoggerInterface) (*Quoter, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, fmt.Errorf("parse factory ABI: %w", err)
	}

	pairABI, err := abi.JSON(strings.NewReader(PairABI))
	if err != nil {
		return nil, fmt.Errorf("parse pair ABI: %w", err)
	}

	return &Quoter{
		caller:     caller,
		factoryABI: factoryABI,
		pairABI:    pairABI,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
	}, nil
}

// Quote resolves the pair from the venue's factory, reads reserves and
// computes the exact output amount.
func (q *Quoter) Quote(ctx context.Context, venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (domain.Quote, error) {
	ctx, span := q.tracer.Start(ctx, "univ2.quote",
		trace.WithAttributes(
			attribute.String("venue", venue.Name),
			attribute.String("factory", venue.Factory.Hex()),
		),
	)
	defer span.End()

	pair, err := q.resolvePair(ctx, venue.Factory, tokenIn.Address(), tokenOut.Address())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pair resolution failed")
		return domain.Quote{}, err
	}

	if pair == zeroAddress {
		span.AddEvent("no_pair")
		return domain.Quote{}, apperror.New(apperror.CodeNoLiquidity,
			apperror.WithContext(fmt.Sprintf("%s: no pair for %s/%s",
				venue.Name, tokenIn.Symbol(), tokenOut.Symbol())))
	}

	reserveIn, reserveOut, err := q.readReserves(ctx, pair, tokenIn.Address())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reserve read failed")
		return domain.Quote{}, err
	}

	if reserveIn.Sign() == 0 || reserveOut.Sign() == 0 {
		span.AddEvent("degenerate_reserves")
		return domain.Quote{}, apperror.New(apperror.CodeStalePoolState,
			apperror.WithContext(fmt.Sprintf("%s: pair %s has a zero reserve",
				venue.Name, pair.Hex())))
	}

	amountOut := AmountOut(amountIn, reserveIn, reserveOut, venue.FeeNumerator(), venue.FeeDenominator())

	quote := domain.NewQuote(venue,
		tokenIn, tokenOut,
		asset.NewAmount(tokenIn, amountIn),
		asset.NewAmount(tokenOut, amountOut),
	)

	span.SetAttributes(attribute.String("amount_out", amountOut.String()))
	span.SetStatus(codes.Ok, "quoted")

	return quote, nil
}

func (q *Quoter) resolvePair(ctx context.Context, factory, tokenA, tokenB common.Address) (common.Address, error) {
	callData, err := q.factoryABI.Pack("getPair", tokenA, tokenB)
	if err != nil {
		return zeroAddress, fmt.Errorf("encode getPair: %w", err)
	}

	out, err := q.caller.Call(ctx, factory, callData)
	if err != nil {
		return zeroAddress, mapTransportError(err, "getPair")
	}

	results, err := q.factoryABI.Unpack("getPair", out)
	if err != nil || len(results) < 1 {
		return zeroAddress, apperror.New(apperror.CodeStalePoolState,
			apperror.WithCause(err),
			apperror.WithContext("undecodable getPair result"))
	}

	return results[0].(common.Address), nil
}

// readReserves returns the pair reserves ordered as (in, out) for the
// given input token, using the pool's own token0 ordering.
func (q *Quoter) readReserves(ctx context.Context, pair, tokenIn common.Address) (*big.Int, *big.Int, error) {
	token0Data, err := q.pairABI.Pack("token0")
	if err != nil {
		return nil, nil, fmt.Errorf("encode token0: %w", err)
	}

	out, err := q.caller.Call(ctx, pair, token0Data)
	if err != nil {
		return nil, nil, mapTransportError(err, "token0")
	}

	t0Results, err := q.pairABI.Unpack("token0", out)
	if err != nil || len(t0Results) < 1 {
		return nil, nil, apperror.New(apperror.CodeStalePoolState,
			apperror.WithCause(err),
			apperror.WithContext("undecodable token0 result"))
	}
	token0 := t0Results[0].(common.Address)

	reservesData, err := q.pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("encode getReserves: %w", err)
	}

	out, err = q.caller.Call(ctx, pair, reservesData)
	if err != nil {
		return nil, nil, mapTransportError(err, "getReserves")
	}

	results, err := q.pairABI.Unpack("getReserves", out)
	if err != nil || len(results) < 2 {
		return nil, nil, apperror.New(apperror.CodeStalePoolState,
			apperror.WithCause(err),
			apperror.WithContext("undecodable getReserves result"))
	}

	reserve0 := results[0].(*big.Int)
	reserve1 := results[1].(*big.Int)

	if tokenIn == token0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// mapTransportError classifies caller failures as upstream issues
// unless they already carry a quoting code.
func mapTransportError(err error, op string) error {
	if apperror.IsCode(err, apperror.CodeCircuitOpen) ||
		apperror.IsCode(err, apperror.CodeContractCallFailed) ||
		apperror.IsCode(err, apperror.CodeEthereumConnectionFailed) {
		return apperror.New(apperror.CodeUpstreamUnavailable,
			apperror.WithCause(err),
			apperror.WithContext(op+" transport failure"))
	}
	return err
}
