package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewGasCost(t *testing.T) {
	tests := []struct {
		name          string
		gasUnits      uint64
		gasPriceWei   string
		gasAssetPrice string
		wantGasAsset  string
		wantQuote     string
	}{
		{
			name:          "standard_25gwei_3400",
			gasUnits:      200_000,
			gasPriceWei:   "25000000000",
			gasAssetPrice: "3400",
			wantGasAsset:  "0.005",
			wantQuote:     "17",
		},
		{
			name:          "high_100gwei",
			gasUnits:      200_000,
			gasPriceWei:   "100000000000",
			gasAssetPrice: "3400",
			wantGasAsset:  "0.02",
			wantQuote:     "68",
		},
		{
			name:          "scenario_gas_budget",
			gasUnits:      500_000,
			gasPriceWei:   "100000000000", // 100 gwei
			gasAssetPrice: "3000",
			wantGasAsset:  "0.05",
			wantQuote:     "150",
		},
		{
			name:          "zero_units",
			gasUnits:      0,
			gasPriceWei:   "25000000000",
			gasAssetPrice: "3400",
			wantGasAsset:  "0",
			wantQuote:     "0",
		},
		{
			name:          "zero_price",
			gasUnits:      200_000,
			gasPriceWei:   "0",
			gasAssetPrice: "3400",
			wantGasAsset:  "0",
			wantQuote:     "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gasPriceWei := new(big.Int)
			gasPriceWei.SetString(tt.gasPriceWei, 10)
			refPrice := decimal.RequireFromString(tt.gasAssetPrice)

			gc := NewGasCost(tt.gasUnits, gasPriceWei, refPrice)

			wantGasAsset := decimal.RequireFromString(tt.wantGasAsset)
			if !gc.GasAsset.Equal(wantGasAsset) {
				t.Errorf("GasAsset = %s, want %s", gc.GasAsset, wantGasAsset)
			}

			wantQuote := decimal.RequireFromString(tt.wantQuote)
			if !gc.Quote.Equal(wantQuote) {
				t.Errorf("Quote = %s, want %s", gc.Quote, wantQuote)
			}

			wantWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(tt.gasUnits))
			if gc.TotalWei.Cmp(wantWei) != 0 {
				t.Errorf("TotalWei = %s, want %s", gc.TotalWei, wantWei)
			}
		})
	}
}

func TestGasPriceFromGwei(t *testing.T) {
	got := GasPriceFromGwei(25)
	want := big.NewInt(25_000_000_000)
	if got.Cmp(want) != 0 {
		t.Errorf("GasPriceFromGwei(25) = %s, want %s", got, want)
	}
}

func TestNewCostBreakdown_TotalIsExactSum(t *testing.T) {
	tests := []struct {
		name                                         string
		funding, gas, buyFee, sellFee, slippage, sum string
	}{
		{"round_numbers", "50", "150", "150", "25.5", "239.6", "615.1"},
		{"zero_components", "0", "0", "0", "0", "0", "0"},
		{"uneven_decimals", "0.333", "17.125", "12.0001", "8.9999", "1.1", "39.558"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := NewCostBreakdown(
				decimal.RequireFromString(tt.funding),
				decimal.RequireFromString(tt.gas),
				decimal.RequireFromString(tt.buyFee),
				decimal.RequireFromString(tt.sellFee),
				decimal.RequireFromString(tt.slippage),
			)

			want := decimal.RequireFromString(tt.sum)
			if !cb.Total.Equal(want) {
				t.Errorf("Total = %s, want %s", cb.Total, want)
			}

			recomputed := cb.FundingFee.Add(cb.GasCost).Add(cb.BuyFee).Add(cb.SellFee).Add(cb.SlippageCost)
			if !cb.Total.Equal(recomputed) {
				t.Errorf("Total = %s, components sum to %s", cb.Total, recomputed)
			}
		})
	}
}

func TestSpread(t *testing.T) {
	tests := []struct {
		name     string
		buy      string
		sell     string
		wantPct  string
	}{
		{"two_percent", "10.00", "10.20", "2"},
		{"zero_spread", "10.00", "10.00", "0"},
		{"negative_spread", "10.00", "9.50", "-5"},
		{"zero_buy_price", "0", "10.00", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Spread(decimal.RequireFromString(tt.buy), decimal.RequireFromString(tt.sell))
			want := decimal.RequireFromString(tt.wantPct)
			if !got.Equal(want) {
				t.Errorf("Spread(%s, %s) = %s, want %s", tt.buy, tt.sell, got, want)
			}
		})
	}
}
