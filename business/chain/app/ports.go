// Package app contains port definitions for the chain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/msolari/flasharb/business/chain/domain"
)

// Caller performs read-only contract calls against the chain at the
// latest block. Implementations handle rate limiting and failure
// shedding; callers only see the returned bytes or an error.
type Caller interface {
	// Call executes an eth_call against the contract at to with the
	// given calldata and returns the raw return bytes.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// ChainID returns the connected chain's ID.
	ChainID() uint64
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// GetGasTipCap retrieves the suggested priority fee (EIP-1559).
	GetGasTipCap(ctx context.Context) (*big.Int, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, data []byte, to string) (uint64, error)
}
