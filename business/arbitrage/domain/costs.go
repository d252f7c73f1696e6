package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// GasCost converts a gas budget into quote-currency terms using a
// reference price for the gas asset.
type GasCost struct {
	GasUnits    uint64
	GasPriceWei *big.Int
	TotalWei    *big.Int
	GasAsset    decimal.Decimal // total in gas-asset units (e.g. ETH)
	Quote       decimal.Decimal // total in quote currency
}

// NewGasCost prices gasUnits at gasPriceWei, converting via the
// supplied gas-asset reference price.
func NewGasCost(gasUnits uint64, gasPriceWei *big.Int, gasAssetPrice decimal.Decimal) *GasCost {
	totalWei := new(big.Int).Mul(gasPriceWei, new(big.Int).SetUint64(gasUnits))

	// 1 gas asset = 10^18 wei
	gasAsset := decimal.NewFromBigInt(totalWei, -18)
	quote := gasAsset.Mul(gasAssetPrice)

	return &GasCost{
		GasUnits:    gasUnits,
		GasPriceWei: gasPriceWei,
		TotalWei:    totalWei,
		GasAsset:    gasAsset,
		Quote:       quote,
	}
}

// GasPriceFromGwei converts a gwei figure to wei.
func GasPriceFromGwei(gwei float64) *big.Int {
	d := decimal.NewFromFloat(gwei).Mul(decimal.New(1, 9))
	return d.BigInt()
}
