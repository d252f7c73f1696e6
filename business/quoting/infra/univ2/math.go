// Package univ2 prices swaps on constant-product AMM venues.
package univ2

import "math/big"

// AmountOut computes the exact constant-product output:
//
//	out = in*feeNum*Rout / (Rin*feeDen + in*feeNum)
//
// All arithmetic is integer; rounding is down, matching the pool
// contract. A zero input or a zero reserve on either side yields zero.
func AmountOut(amountIn, reserveIn, reserveOut *big.Int, feeNum, feeDen int64) *big.Int {
	if amountIn.Sign() <= 0 || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}

	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(feeNum))
	numerator := new(big.Int).Mul(inWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, big.NewInt(feeDen))
	denominator.Add(denominator, inWithFee)

	return numerator.Div(numerator, denominator)
}
