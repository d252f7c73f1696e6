package domain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msolari/flasharb/internal/asset"
)

var (
	weth = asset.MustNewToken(1,
		common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		"WETH", "Wrapped Ether", 18)
	usdc = asset.MustNewToken(1,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		"USDC", "USD Coin", 6)
)

func TestNewQuote_DerivesDecimalAdjustedPrice(t *testing.T) {
	venue := Venue{Name: "alpha", Kind: KindConstantProduct, FeeBps: 30, SwapGas: 120_000}

	// 1 WETH in, 3400 USDC out, across an 18/6 decimal gap.
	in := asset.NewAmount(weth, big.NewInt(1_000_000_000_000_000_000))
	out := asset.NewAmount(usdc, big.NewInt(3_400_000_000))

	quote := NewQuote(venue, weth, usdc, in, out)

	assert.True(t, quote.Price.Equal(decimal.NewFromInt(3400)), "price = %s", quote.Price)
	assert.Equal(t, "alpha", quote.VenueName)
	assert.Equal(t, uint64(120_000), quote.GasEstimate)
	assert.True(t, quote.IsUsable())
}

func TestNewQuote_ZeroInputIsUnusable(t *testing.T) {
	venue := Venue{Name: "alpha", Kind: KindConstantProduct}

	quote := NewQuote(venue, weth, usdc, asset.Zero(weth), asset.Zero(usdc))

	assert.True(t, quote.Price.IsZero())
	assert.False(t, quote.IsUsable())
}

func TestVenue_FeeMath(t *testing.T) {
	v := Venue{FeeBps: 30}

	assert.True(t, v.FeeFraction().Equal(decimal.RequireFromString("0.003")))
	assert.Equal(t, int64(9970), v.FeeNumerator())
	assert.Equal(t, int64(10000), v.FeeDenominator())
}

func TestParseVenueKind(t *testing.T) {
	kind, err := ParseVenueKind("stable_swap")
	require.NoError(t, err)
	assert.Equal(t, KindStableSwap, kind)

	_, err = ParseVenueKind("orderbook")
	assert.Error(t, err)
}

func TestPair_String(t *testing.T) {
	pair := NewPair(weth, usdc)

	assert.Equal(t, "WETH-USDC", pair.String())

	inverted := pair.Invert()
	assert.Equal(t, "USDC-WETH", inverted.String())
}
