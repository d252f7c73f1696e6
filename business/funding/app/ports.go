// Package app contains the funding service and its port definitions.
package app

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/internal/asset"
)

// FundingProvider reads flash-loan terms from a lending protocol.
type FundingProvider interface {
	// PremiumBps returns the current flash-loan premium in basis points.
	PremiumBps(ctx context.Context) (decimal.Decimal, error)

	// AvailableLiquidity returns the amount of token currently available
	// to borrow, in smallest on-chain units.
	AvailableLiquidity(ctx context.Context, token *asset.Asset) (*big.Int, error)
}
