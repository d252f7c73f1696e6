// Package univ3 prices swaps on concentrated-liquidity venues from the
// pool's current square-root price.
package univ3

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	q192    = new(big.Int).Lsh(big.NewInt(1), 192)
	feeBase = big.NewInt(1_000_000)
)

// ZeroForOne reports whether tokenIn sorts as the pool's token0. Pools
// order tokens by ascending address.
func ZeroForOne(tokenIn, tokenOut common.Address) bool {
	return bytes.Compare(tokenIn.Bytes(), tokenOut.Bytes()) < 0
}

// AmountOut estimates the output for amountIn at the pool's current
// price, after the tier fee, ignoring price movement within the trade.
// sqrtPriceX96 encodes sqrt(token1/token0) in raw units as a Q64.96
// fixed-point value; squaring it gives the raw price at Q192 scale.
func AmountOut(amountIn, sqrtPriceX96 *big.Int, feeTier int64, zeroForOne bool) *big.Int {
	if amountIn.Sign() <= 0 || sqrtPriceX96.Sign() <= 0 {
		return new(big.Int)
	}

	afterFee := new(big.Int).Mul(amountIn, big.NewInt(1_000_000-feeTier))
	afterFee.Div(afterFee, feeBase)

	priceX192 := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)

	out := new(big.Int)
	if zeroForOne {
		// token0 in, token1 out: out = in * price
		out.Mul(afterFee, priceX192)
		out.Div(out, q192)
	} else {
		// token1 in, token0 out: out = in / price
		if priceX192.Sign() == 0 {
			return new(big.Int)
		}
		out.Mul(afterFee, q192)
		out.Div(out, priceX192)
	}

	return out
}
