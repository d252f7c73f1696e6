// Package domain contains the core domain types for the chain context.
package domain

import (
	"math/big"
	"time"
)

// GasPrice represents gas price information.
type GasPrice struct {
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(wei *big.Int) *GasPrice {
	return &GasPrice{
		Wei:       wei,
		Timestamp: time.Now(),
	}
}

// Gwei returns the price in gwei.
func (p *GasPrice) Gwei() float64 {
	gwei := new(big.Float).SetInt(p.Wei)
	gwei.Quo(gwei, big.NewFloat(1e9))
	f, _ := gwei.Float64()
	return f
}

// GasEstimate represents estimated gas costs for an operation.
type GasEstimate struct {
	GasLimit uint64
	GasPrice *GasPrice
	TotalWei *big.Int
}

// NewGasEstimate computes the total cost for gasLimit units at price.
func NewGasEstimate(gasLimit uint64, price *GasPrice) *GasEstimate {
	return &GasEstimate{
		GasLimit: gasLimit,
		GasPrice: price,
		TotalWei: new(big.Int).Mul(price.Wei, new(big.Int).SetUint64(gasLimit)),
	}
}

// TotalGwei returns the total cost in gwei.
func (e *GasEstimate) TotalGwei() float64 {
	return e.GasPrice.Gwei() * float64(e.GasLimit)
}

// TotalEther returns the total cost in ether.
func (e *GasEstimate) TotalEther() float64 {
	return e.TotalGwei() / 1e9
}
