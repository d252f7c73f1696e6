// Package app contains the quoting service and its port definitions.
package app

import (
	"context"
	"math/big"

	"github.com/msolari/flasharb/business/quoting/domain"
	"github.com/msolari/flasharb/internal/asset"
)

// VenueQuoter prices a swap on venues of one specific kind. Each infra
// adapter implements this for its mechanism; the service owns dispatch.
type VenueQuoter interface {
	// Quote prices swapping amountIn of tokenIn into tokenOut on venue.
	// amountIn is in smallest on-chain units.
	Quote(ctx context.Context, venue domain.Venue, tokenIn, tokenOut *asset.Asset, amountIn *big.Int) (domain.Quote, error)
}
