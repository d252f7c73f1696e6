// Package domain contains the core domain types for the funding context.
package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/msolari/flasharb/internal/asset"
)

// Sources for a funding quote. Fallback marks quotes synthesized from
// the documented defaults after an upstream failure.
const (
	SourceAave     = "aave"
	SourceFallback = "default"
)

// FundingQuote describes the cost of borrowing Amount of Token via a
// flash loan. MaxLoan is advisory: zero means unknown, in which case
// sizing falls back to the venue liquidity bound.
type FundingQuote struct {
	Token      *asset.Asset
	Amount     asset.Amount
	PremiumBps decimal.Decimal
	GasUnits   uint64
	MaxLoan    asset.Amount
	Source     string
	Timestamp  time.Time
}

// FeeRate returns the premium as a fraction (9 bps -> 0.0009).
func (q FundingQuote) FeeRate() decimal.Decimal {
	return q.PremiumBps.Div(decimal.NewFromInt(10_000))
}

// FeeOn returns the funding fee for a notional value in quote-currency
// terms.
func (q FundingQuote) FeeOn(notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(q.FeeRate())
}
