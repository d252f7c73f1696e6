// Package aave reads flash-loan terms from an Aave V3 pool.
package aave

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	chainapp "github.com/msolari/flasharb/business/chain/app"
	fundingapp "github.com/msolari/flasharb/business/funding/app"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/cache"
	"github.com/msolari/flasharb/internal/logger"
)

const (
	tracerName = "aave"

	// The premium changes only by governance vote.
	premiumCacheTTL = 10 * time.Minute
)

var _ fundingapp.FundingProvider = (*Provider)(nil)

// Config holds the Aave provider addressing.
type Config struct {
	PoolAddress common.Address
	// ATokens maps token symbol to its aToken contract. Liquidity is
	// the underlying balance sitting in the aToken.
	ATokens map[string]common.Address
}

// Provider reads the flash-loan premium and per-token liquidity from
// an Aave V3 deployment.
type Provider struct {
	caller   chainapp.Caller
	config   Config
	poolABI  abi.ABI
	erc20ABI abi.ABI

	premium *cache.Cache[string, decimal.Decimal]

	logger logger.LoggerInterface
	tracer trace.Tracer
}

// NewProvider creates an Aave funding provider.
func NewProvider(caller chainapp.Caller, cfg Config, log logger.LoggerInterface) (*Provider, error) {
	poolABI, err := abi.JSON(strings.NewReader(PoolABI))
	if err != nil {
		return nil, fmt.Errorf("parse pool ABI: %w", err)
	}

	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 ABI: %w", err)
	}

	return &Provider{
		caller:   caller,
		config:   cfg,
		poolABI:  poolABI,
		erc20ABI: erc20ABI,
		premium:  cache.New[string, decimal.Decimal](premiumCacheTTL),
		logger:   log,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// PremiumBps reads FLASHLOAN_PREMIUM_TOTAL, which Aave expresses in
// basis points already.
func (p *Provider) PremiumBps(ctx context.Context) (decimal.Decimal, error) {
	ctx, span := p.tracer.Start(ctx, "aave.premium")
	defer span.End()

	if bps, found := p.premium.Get(ctx, "premium"); found {
		span.AddEvent("cache_hit")
		return bps, nil
	}

	callData, err := p.poolABI.Pack("FLASHLOAN_PREMIUM_TOTAL")
	if err != nil {
		return decimal.Zero, fmt.Errorf("encode premium call: %w", err)
	}

	out, err := p.caller.Call(ctx, p.config.PoolAddress, callData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "premium read failed")
		return decimal.Zero, apperror.New(apperror.CodeFundingQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("FLASHLOAN_PREMIUM_TOTAL call failed"))
	}

	results, err := p.poolABI.Unpack("FLASHLOAN_PREMIUM_TOTAL", out)
	if err != nil || len(results) < 1 {
		span.SetStatus(codes.Error, "undecodable premium")
		return decimal.Zero, apperror.New(apperror.CodeFundingQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("undecodable FLASHLOAN_PREMIUM_TOTAL result"))
	}

	bps := decimal.NewFromBigInt(results[0].(*big.Int), 0)
	p.premium.Set(ctx, "premium", bps, premiumCacheTTL)

	span.SetAttributes(attribute.String("premium_bps", bps.String()))
	span.SetStatus(codes.Ok, "fetched")

	return bps, nil
}

// AvailableLiquidity reads the underlying token balance held by the
// token's aToken contract.
func (p *Provider) AvailableLiquidity(ctx context.Context, token *asset.Asset) (*big.Int, error) {
	ctx, span := p.tracer.Start(ctx, "aave.liquidity",
		trace.WithAttributes(attribute.String("token", token.Symbol())),
	)
	defer span.End()

	aToken, ok := p.config.ATokens[token.Symbol()]
	if !ok {
		span.AddEvent("no_atoken_configured")
		return nil, apperror.New(apperror.CodeFundingQuoteFailed,
			apperror.WithContext(fmt.Sprintf("no aToken configured for %s", token.Symbol())))
	}

	callData, err := p.erc20ABI.Pack("balanceOf", aToken)
	if err != nil {
		return nil, fmt.Errorf("encode balanceOf: %w", err)
	}

	out, err := p.caller.Call(ctx, token.Address(), callData)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "liquidity read failed")
		return nil, apperror.New(apperror.CodeFundingQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("balanceOf call failed"))
	}

	results, err := p.erc20ABI.Unpack("balanceOf", out)
	if err != nil || len(results) < 1 {
		span.SetStatus(codes.Error, "undecodable balance")
		return nil, apperror.New(apperror.CodeFundingQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("undecodable balanceOf result"))
	}

	liq := results[0].(*big.Int)

	span.SetAttributes(attribute.String("liquidity", liq.String()))
	span.SetStatus(codes.Ok, "fetched")

	return liq, nil
}
