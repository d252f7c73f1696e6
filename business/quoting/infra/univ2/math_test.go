package univ2

import (
	"math/big"
	"testing"
)

func TestAmountOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   string
		reserveIn  string
		reserveOut string
		feeNum     int64
		feeDen     int64
		want       string
	}{
		{
			// 1e18 in against 100e18/200e18 with a 30 bps fee:
			// 1e18*9970*200e18 / (100e18*10000 + 1e18*9970)
			name:       "standard_30bps_swap",
			amountIn:   "1000000000000000000",
			reserveIn:  "100000000000000000000",
			reserveOut: "200000000000000000000",
			feeNum:     9970,
			feeDen:     10000,
			want:       "1974316068794122597",
		},
		{
			name:       "zero_fee_small_trade",
			amountIn:   "1000",
			reserveIn:  "1000000",
			reserveOut: "1000000",
			feeNum:     10000,
			feeDen:     10000,
			want:       "999", // price impact alone
		},
		{
			name:       "zero_input",
			amountIn:   "0",
			reserveIn:  "1000000",
			reserveOut: "1000000",
			feeNum:     9970,
			feeDen:     10000,
			want:       "0",
		},
		{
			name:       "zero_reserve_in",
			amountIn:   "1000",
			reserveIn:  "0",
			reserveOut: "1000000",
			feeNum:     9970,
			feeDen:     10000,
			want:       "0",
		},
		{
			name:       "zero_reserve_out",
			amountIn:   "1000",
			reserveIn:  "1000000",
			reserveOut: "0",
			feeNum:     9970,
			feeDen:     10000,
			want:       "0",
		},
		{
			// Input comparable to the reserve moves the price hard:
			// output must stay below half the out-reserve.
			name:       "large_trade_heavy_impact",
			amountIn:   "100000000",
			reserveIn:  "100000000",
			reserveOut: "100000000",
			feeNum:     9970,
			feeDen:     10000,
			want:       "49924887",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amountIn, _ := new(big.Int).SetString(tt.amountIn, 10)
			reserveIn, _ := new(big.Int).SetString(tt.reserveIn, 10)
			reserveOut, _ := new(big.Int).SetString(tt.reserveOut, 10)

			got := AmountOut(amountIn, reserveIn, reserveOut, tt.feeNum, tt.feeDen)
			if got.String() != tt.want {
				t.Errorf("AmountOut = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountOut_RoundTripLosesValue(t *testing.T) {
	// Swapping out and immediately back must never return more than
	// went in; the fee and the price impact both bite.
	reserveA, _ := new(big.Int).SetString("500000000000000000000", 10)
	reserveB, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	amountIn, _ := new(big.Int).SetString("1000000000000000000", 10)

	out := AmountOut(amountIn, reserveA, reserveB, 9970, 10000)

	// The first swap shifts both reserves.
	newA := new(big.Int).Add(reserveA, amountIn)
	newB := new(big.Int).Sub(reserveB, out)

	back := AmountOut(out, newB, newA, 9970, 10000)
	if back.Cmp(amountIn) >= 0 {
		t.Errorf("round trip returned %s from %s, want strictly less", back, amountIn)
	}
}

func TestAmountOut_DoesNotMutateInputs(t *testing.T) {
	amountIn := big.NewInt(1000)
	reserveIn := big.NewInt(1000000)
	reserveOut := big.NewInt(2000000)

	AmountOut(amountIn, reserveIn, reserveOut, 9970, 10000)

	if amountIn.Int64() != 1000 || reserveIn.Int64() != 1000000 || reserveOut.Int64() != 2000000 {
		t.Error("inputs were mutated")
	}
}
