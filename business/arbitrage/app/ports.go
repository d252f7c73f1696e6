// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"github.com/msolari/flasharb/business/arbitrage/domain"
)

// Reporter renders analysis results. Implementations only format; every
// number comes straight from the domain types.
type Reporter interface {
	// Report renders one profitable opportunity.
	Report(opp *domain.Opportunity)

	// ReportNone renders a pair that produced nothing actionable.
	ReportNone(none *domain.NoOpportunity)

	// Summary renders a pass-level recap after all pairs ran.
	Summary(opportunities []*domain.Opportunity, rejections []*domain.NoOpportunity)
}
