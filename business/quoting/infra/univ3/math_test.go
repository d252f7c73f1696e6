package univ3

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// sqrtX96 returns n * 2^96, i.e. the Q64.96 encoding of sqrt price n.
func sqrtX96(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Lsh(big.NewInt(1), 96))
}

func TestZeroForOne(t *testing.T) {
	low := common.HexToAddress("0x0000000000000000000000000000000000000001")
	high := common.HexToAddress("0x00000000000000000000000000000000000000ff")

	if !ZeroForOne(low, high) {
		t.Error("lower address in should be zeroForOne")
	}
	if ZeroForOne(high, low) {
		t.Error("higher address in should not be zeroForOne")
	}
}

func TestAmountOut(t *testing.T) {
	tests := []struct {
		name       string
		amountIn   int64
		sqrtPrice  *big.Int
		feeTier    int64
		zeroForOne bool
		want       string
	}{
		{
			// sqrt price 1 means a 1:1 pool; only the fee bites.
			name:       "unit_price_30bps",
			amountIn:   1_000_000,
			sqrtPrice:  sqrtX96(1),
			feeTier:    3000,
			zeroForOne: true,
			want:       "997000",
		},
		{
			name:       "unit_price_reverse_direction",
			amountIn:   1_000_000,
			sqrtPrice:  sqrtX96(1),
			feeTier:    3000,
			zeroForOne: false,
			want:       "997000",
		},
		{
			// sqrt price 2 means token1/token0 = 4.
			name:       "price_four_token0_in",
			amountIn:   1_000_000,
			sqrtPrice:  sqrtX96(2),
			feeTier:    500,
			zeroForOne: true,
			want:       "3998000",
		},
		{
			name:       "price_four_token1_in",
			amountIn:   1_000_000,
			sqrtPrice:  sqrtX96(2),
			feeTier:    500,
			zeroForOne: false,
			want:       "249875",
		},
		{
			name:       "one_percent_tier",
			amountIn:   1_000_000,
			sqrtPrice:  sqrtX96(1),
			feeTier:    10000,
			zeroForOne: true,
			want:       "990000",
		},
		{
			name:       "zero_input",
			amountIn:   0,
			sqrtPrice:  sqrtX96(1),
			feeTier:    3000,
			zeroForOne: true,
			want:       "0",
		},
		{
			name:       "zero_sqrt_price",
			amountIn:   1_000_000,
			sqrtPrice:  big.NewInt(0),
			feeTier:    3000,
			zeroForOne: true,
			want:       "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AmountOut(big.NewInt(tt.amountIn), tt.sqrtPrice, tt.feeTier, tt.zeroForOne)
			if got.String() != tt.want {
				t.Errorf("AmountOut = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestAmountOut_DirectionsAreReciprocal(t *testing.T) {
	// With the fee off, the two directions must be exact reciprocals
	// up to integer truncation.
	amountIn := big.NewInt(1_000_000_000)
	price := sqrtX96(3) // token1/token0 = 9

	out0 := AmountOut(amountIn, price, 0, true)
	out1 := AmountOut(out0, price, 0, false)

	diff := new(big.Int).Sub(amountIn, out1)
	if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
		t.Errorf("round trip %s -> %s -> %s, want within 1 unit", amountIn, out0, out1)
	}
}
