package app

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	quotingApp "github.com/msolari/flasharb/business/quoting/app"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/asset"
	"github.com/msolari/flasharb/internal/logger"
)

var (
	testWETH = asset.MustNewToken(1,
		common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		"WETH", "Wrapped Ether", 18)
	testUSDC = asset.MustNewToken(1,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		"USDC", "USD Coin", 6)
)

// fakeVenueQuoter serves canned quotes or errors keyed by venue name.
type fakeVenueQuoter struct {
	prices map[string]string // venue name -> USDC per WETH
	errs   map[string]error
}

func (f *fakeVenueQuoter) Quote(_ context.Context, venue quotingDomain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (quotingDomain.Quote, error) {
	if err, ok := f.errs[venue.Name]; ok {
		return quotingDomain.Quote{}, err
	}

	price := decimal.RequireFromString(f.prices[venue.Name])
	in := asset.NewAmount(tokenIn, amountIn)

	// amountOut = amountIn * price, re-scaled to the out token.
	outDecimal := in.ToDecimal().Mul(price)
	out, err := asset.ParseDecimal(tokenOut, outDecimal)
	if err != nil {
		return quotingDomain.Quote{}, err
	}

	return quotingDomain.NewQuote(venue, tokenIn, tokenOut, in, out), nil
}

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelDebug, "test", nil)
}

func newTestScanner(t *testing.T, fake *fakeVenueQuoter, minSpreadPct string) *Scanner {
	t.Helper()

	quoter, err := quotingApp.NewQuoter(map[quotingDomain.VenueKind]quotingApp.VenueQuoter{
		quotingDomain.KindConstantProduct:       fake,
		quotingDomain.KindConcentratedLiquidity: fake,
	}, 0, testLogger())
	if err != nil {
		t.Fatalf("NewQuoter: %v", err)
	}

	scanner, err := NewScanner(quoter, decimal.RequireFromString(minSpreadPct), testLogger())
	if err != nil {
		t.Fatalf("NewScanner: %v", err)
	}
	return scanner
}

func testPair() quotingDomain.Pair {
	return quotingDomain.NewPair(testWETH, testUSDC)
}

func testVenues() []quotingDomain.Venue {
	return []quotingDomain.Venue{
		makeVenue("alpha", quotingDomain.KindConstantProduct, 30, 120_000, "2000000"),
		makeVenue("beta", quotingDomain.KindConcentratedLiquidity, 5, 130_000, "2000000"),
	}
}

func TestScanner_Scan_FindsSpread(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3468.00", // 2% above alpha
	}}
	scanner := newTestScanner(t, fake, "0.1")

	result := scanner.Scan(context.Background(), testPair(), testVenues())

	if len(result.Quotes) != 2 {
		t.Fatalf("usable quotes = %d, want 2", len(result.Quotes))
	}
	if len(result.Opportunities) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(result.Opportunities))
	}

	opp := result.Opportunities[0]
	if opp.BuyVenue.Name != "alpha" || opp.SellVenue.Name != "beta" {
		t.Errorf("route = buy %s sell %s, want buy alpha sell beta", opp.BuyVenue.Name, opp.SellVenue.Name)
	}
	decimalNear(t, opp.SpreadPct, "2.0", "0.01", "SpreadPct")
	if !opp.BuyPrice.LessThan(opp.SellPrice) {
		t.Errorf("buy price %s not below sell price %s", opp.BuyPrice, opp.SellPrice)
	}
}

func TestScanner_Scan_EqualPricesProduceNothing(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3400.00",
	}}
	scanner := newTestScanner(t, fake, "0.1")

	result := scanner.Scan(context.Background(), testPair(), testVenues())

	if len(result.Quotes) != 2 {
		t.Fatalf("usable quotes = %d, want 2", len(result.Quotes))
	}
	if len(result.Opportunities) != 0 {
		t.Errorf("opportunities = %d, want 0 for equal prices", len(result.Opportunities))
	}
}

func TestScanner_Scan_SpreadBelowNoiseFloor(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3401.00", // ~0.03%
	}}
	scanner := newTestScanner(t, fake, "0.1")

	result := scanner.Scan(context.Background(), testPair(), testVenues())

	if len(result.Opportunities) != 0 {
		t.Errorf("opportunities = %d, want 0 below the noise floor", len(result.Opportunities))
	}
}

func TestScanner_Scan_VenueFailureIsIsolated(t *testing.T) {
	fake := &fakeVenueQuoter{
		prices: map[string]string{
			"alpha": "3400.00",
			"beta":  "3468.00",
		},
		errs: map[string]error{
			"gamma": apperror.New(apperror.CodeUpstreamUnavailable),
		},
	}
	scanner := newTestScanner(t, fake, "0.1")

	venues := append(testVenues(),
		makeVenue("gamma", quotingDomain.KindConstantProduct, 30, 120_000, "2000000"))

	result := scanner.Scan(context.Background(), testPair(), venues)

	if len(result.Quotes) != 2 {
		t.Fatalf("usable quotes = %d, want 2 with one venue down", len(result.Quotes))
	}
	if len(result.Opportunities) != 1 {
		t.Errorf("opportunities = %d, want 1 from the surviving venues", len(result.Opportunities))
	}
}

func TestScanner_Scan_NoLiquidityVenueSkipped(t *testing.T) {
	fake := &fakeVenueQuoter{
		prices: map[string]string{"alpha": "3400.00"},
		errs: map[string]error{
			"beta": apperror.New(apperror.CodeNoLiquidity),
		},
	}
	scanner := newTestScanner(t, fake, "0.1")

	result := scanner.Scan(context.Background(), testPair(), testVenues())

	if len(result.Quotes) != 1 {
		t.Fatalf("usable quotes = %d, want 1", len(result.Quotes))
	}
	if len(result.Opportunities) != 0 {
		t.Errorf("opportunities = %d, want 0 with a single usable quote", len(result.Opportunities))
	}
}
