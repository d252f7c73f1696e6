package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/internal/asset"
)

// Quote is the result of pricing a single swap on a single venue.
// Amounts are in smallest on-chain units; Price is the decimal mid
// price (tokenOut per tokenIn, decimal-adjusted).
type Quote struct {
	VenueName   string
	VenueKind   VenueKind
	TokenIn     *asset.Asset
	TokenOut    *asset.Asset
	AmountIn    asset.Amount
	AmountOut   asset.Amount
	Price       decimal.Decimal
	GasEstimate uint64
	Timestamp   time.Time
}

// NewQuote builds a Quote and derives the mid price from the amounts.
// A zero input amount yields a zero price.
func NewQuote(venue Venue, tokenIn, tokenOut *asset.Asset, amountIn, amountOut asset.Amount) Quote {
	price := decimal.Zero
	if !amountIn.IsZero() {
		price = amountOut.ToDecimal().Div(amountIn.ToDecimal())
	}

	return Quote{
		VenueName:   venue.Name,
		VenueKind:   venue.Kind,
		TokenIn:     tokenIn,
		TokenOut:    tokenOut,
		AmountIn:    amountIn,
		AmountOut:   amountOut,
		Price:       price,
		GasEstimate: venue.SwapGas,
		Timestamp:   time.Now(),
	}
}

// IsUsable reports whether the quote carries a positive output and a
// positive price. Scanners skip unusable quotes.
func (q Quote) IsUsable() bool {
	return q.AmountOut.IsPositive() && q.Price.IsPositive()
}
