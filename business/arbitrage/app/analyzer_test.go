package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	fundingApp "github.com/msolari/flasharb/business/funding/app"
	quotingDomain "github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/apperror"
	"github.com/msolari/flasharb/internal/asset"
)

// fakeFundingProvider returns fixed Aave-style terms.
type fakeFundingProvider struct {
	premiumBps string
	liquidity  *big.Int
	err        error
}

func (f *fakeFundingProvider) PremiumBps(context.Context) (decimal.Decimal, error) {
	if f.err != nil {
		return decimal.Zero, f.err
	}
	return decimal.RequireFromString(f.premiumBps), nil
}

func (f *fakeFundingProvider) AvailableLiquidity(context.Context, *asset.Asset) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.liquidity, nil
}

func newTestAnalyzer(t *testing.T, fake *fakeVenueQuoter, provider fundingApp.FundingProvider) *Analyzer {
	t.Helper()

	scanner := newTestScanner(t, fake, "0.1")

	model := referenceModel()
	optimizer := NewOptimizer(model, DefaultOptimizerConfig())

	funding, err := fundingApp.NewService(provider, fundingApp.Config{}, testLogger())
	if err != nil {
		t.Fatalf("funding NewService: %v", err)
	}

	analyzer, err := NewAnalyzer(scanner, optimizer, model, funding, AnalyzerConfig{
		MinOpportunitySpreadPct: decimal.RequireFromString("0.5"),
		MinProfitUSD:            decimal.NewFromInt(50),
		SlippageTolerancePct:    decimal.NewFromInt(1),
	}, testLogger())
	if err != nil {
		t.Fatalf("NewAnalyzer: %v", err)
	}
	return analyzer
}

func TestAnalyzer_Analyze_ProfitablePath(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3468.00", // 2% spread
	}}
	provider := &fakeFundingProvider{
		premiumBps: "5",
		liquidity:  new(big.Int).Mul(big.NewInt(10_000_000), big.NewInt(1_000_000)),
	}
	analyzer := newTestAnalyzer(t, fake, provider)

	opp, none := analyzer.Analyze(context.Background(), testPair(), testVenues())

	if none != nil {
		t.Fatalf("want opportunity, got rejection %q", none.Reason)
	}
	if opp == nil {
		t.Fatal("want opportunity, got neither result")
	}

	if opp.ID == "" {
		t.Error("opportunity ID is empty")
	}
	if opp.BuyVenue != "alpha" || opp.SellVenue != "beta" {
		t.Errorf("route = buy %s sell %s, want buy alpha sell beta", opp.BuyVenue, opp.SellVenue)
	}
	if !opp.Sizing.Profitable {
		t.Errorf("sizing infeasible: %s", opp.Sizing.Reason)
	}
	if !opp.Evaluation.NetProfit.GreaterThanOrEqual(decimal.NewFromInt(50)) {
		t.Errorf("NetProfit = %s, want >= 50", opp.Evaluation.NetProfit)
	}
	if opp.Funding == nil {
		t.Fatal("funding terms not attached")
	}
	if !opp.Funding.PremiumBps.Equal(decimal.NewFromInt(5)) {
		t.Errorf("PremiumBps = %s, want provider's 5", opp.Funding.PremiumBps)
	}
}

func TestAnalyzer_Analyze_InsufficientPriceData(t *testing.T) {
	fake := &fakeVenueQuoter{
		prices: map[string]string{"alpha": "3400.00"},
		errs: map[string]error{
			"beta": apperror.New(apperror.CodeUpstreamUnavailable),
		},
	}
	analyzer := newTestAnalyzer(t, fake, nil)

	opp, none := analyzer.Analyze(context.Background(), testPair(), testVenues())

	if opp != nil {
		t.Fatal("want rejection with one usable quote")
	}
	if none == nil || none.Reason != "insufficient price data" {
		t.Errorf("rejection = %+v, want insufficient price data", none)
	}
}

func TestAnalyzer_Analyze_SpreadBelowThreshold(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3410.00", // ~0.3%: above the noise floor, below the gate
	}}
	analyzer := newTestAnalyzer(t, fake, nil)

	opp, none := analyzer.Analyze(context.Background(), testPair(), testVenues())

	if opp != nil {
		t.Fatal("want rejection below the opportunity threshold")
	}
	if none == nil || none.Reason != "spread below threshold" {
		t.Errorf("rejection = %+v, want spread below threshold", none)
	}
}

func TestAnalyzer_Analyze_FundingFailureFallsBack(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3468.00",
	}}
	provider := &fakeFundingProvider{err: errors.New("rpc down")}
	analyzer := newTestAnalyzer(t, fake, provider)

	opp, none := analyzer.Analyze(context.Background(), testPair(), testVenues())

	if none != nil {
		t.Fatalf("funding failure must not reject the pair: %q", none.Reason)
	}
	if opp.Funding == nil {
		t.Fatal("funding terms not attached")
	}
	if opp.Funding.Source != "default" {
		t.Errorf("Source = %s, want default fallback", opp.Funding.Source)
	}
	if !opp.Funding.PremiumBps.Equal(decimal.NewFromInt(9)) {
		t.Errorf("PremiumBps = %s, want fallback 9", opp.Funding.PremiumBps)
	}
}

func TestAnalyzer_ScanAll_SortsByNetProfit(t *testing.T) {
	fake := &fakeVenueQuoter{prices: map[string]string{
		"alpha": "3400.00",
		"beta":  "3468.00",
	}}
	analyzer := newTestAnalyzer(t, fake, nil)

	pairs := []quotingDomain.Pair{testPair()}

	opportunities, rejections := analyzer.ScanAll(context.Background(), pairs, testVenues())

	if len(opportunities) != 1 {
		t.Fatalf("opportunities = %d, want 1", len(opportunities))
	}
	if len(rejections) != 0 {
		t.Errorf("rejections = %d, want 0", len(rejections))
	}

	for i := 1; i < len(opportunities); i++ {
		if opportunities[i].Evaluation.NetProfit.GreaterThan(opportunities[i-1].Evaluation.NetProfit) {
			t.Error("opportunities not sorted by net profit descending")
		}
	}
}
