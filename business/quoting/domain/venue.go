// Package domain contains the core domain types for the quoting context.
package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// VenueKind identifies the pricing mechanism of a liquidity venue.
// The set is closed: adding a kind requires touching the dispatch
// switch in the quoting service.
type VenueKind string

const (
	KindConstantProduct       VenueKind = "constant_product"
	KindConcentratedLiquidity VenueKind = "concentrated_liquidity"
	KindStableSwap            VenueKind = "stable_swap"
	KindExternalAggregator    VenueKind = "external_aggregator"
)

// ParseVenueKind parses a config string into a VenueKind.
func ParseVenueKind(s string) (VenueKind, error) {
	switch VenueKind(s) {
	case KindConstantProduct, KindConcentratedLiquidity, KindStableSwap, KindExternalAggregator:
		return VenueKind(s), nil
	}
	return "", fmt.Errorf("unknown venue kind %q", s)
}

// Venue is immutable configuration for one liquidity venue. Addressing
// is kind-specific: constant-product and concentrated venues address a
// factory, stable-swap venues address a single pool, aggregators carry
// no on-chain address at all.
type Venue struct {
	Name         string
	Kind         VenueKind
	FeeBps       int64
	Factory      common.Address
	Router       common.Address
	Pool         common.Address
	SwapGas      uint64
	LiquidityUSD decimal.Decimal
}

// FeeFraction returns the trading fee as a fraction (30 bps -> 0.003).
func (v Venue) FeeFraction() decimal.Decimal {
	return decimal.New(v.FeeBps, -4)
}

// FeeNumerator returns the input multiplier for exact integer AMM math:
// 30 bps -> 9970 over FeeDenominator 10000.
func (v Venue) FeeNumerator() int64 {
	return 10000 - v.FeeBps
}

// FeeDenominator returns the fee denominator for exact integer AMM math.
func (v Venue) FeeDenominator() int64 {
	return 10000
}

func (v Venue) String() string {
	return fmt.Sprintf("%s(%s)", v.Name, v.Kind)
}
