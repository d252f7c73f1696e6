// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/msolari/flasharb/business/arbitrage/domain"
)

// ConsoleReporter renders analysis results to a terminal. It only
// formats: every figure comes from the domain types, nothing is
// recomputed here.
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter writes to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stdout}
}

// NewConsoleReporterWithWriter writes to the given writer. Used in tests.
func NewConsoleReporterWithWriter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Report renders one profitable opportunity with its full cost and
// sizing breakdown.
func (r *ConsoleReporter) Report(opp *domain.Opportunity) {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "OPPORTUNITY %s\n", opp.ID)
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Timestamp:   %s\n", opp.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(r.out, "Pair:        %s\n", opp.Pair.String())
	fmt.Fprintf(r.out, "Route:       buy %s @ %s, sell %s @ %s\n",
		opp.BuyVenue, opp.BuyPrice.StringFixed(6),
		opp.SellVenue, opp.SellPrice.StringFixed(6))
	fmt.Fprintf(r.out, "Spread:      %s%%\n", opp.SpreadPct.StringFixed(4))

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "SIZING (base token)")
	sizing := tablewriter.NewWriter(r.out)
	sizing.Header("Min", "Recommended", "Max")
	sizing.Append(
		opp.Sizing.MinAmount.StringFixed(4),
		opp.Sizing.RecommendedAmount.StringFixed(4),
		opp.Sizing.MaxAmount.StringFixed(4),
	)
	sizing.Render()

	eval := opp.Evaluation
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "COSTS AT RECOMMENDED SIZE (quote currency)")
	costs := tablewriter.NewWriter(r.out)
	costs.Header("Funding", "Gas", "Buy Fee", "Sell Fee", "Slippage", "Total")
	costs.Append(
		eval.Costs.FundingFee.StringFixed(2),
		eval.Costs.GasCost.StringFixed(2),
		eval.Costs.BuyFee.StringFixed(2),
		eval.Costs.SellFee.StringFixed(2),
		eval.Costs.SlippageCost.StringFixed(2),
		eval.Costs.Total.StringFixed(2),
	)
	costs.Render()

	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "PROFIT")
	profit := tablewriter.NewWriter(r.out)
	profit.Header("Gross", "Net", "Margin %", "ROI %", "Break-even %", "Safety %")
	profit.Append(
		eval.GrossRevenue.StringFixed(2),
		eval.NetProfit.StringFixed(2),
		eval.ProfitMargin.StringFixed(4),
		eval.ROI.StringFixed(4),
		eval.BreakEvenSpread.StringFixed(4),
		eval.SafetyMargin.StringFixed(4),
	)
	profit.Render()

	if opp.Funding != nil {
		fmt.Fprintf(r.out, "\nFunding: %s, premium %s bps, loan gas %d\n",
			opp.Funding.Source, opp.Funding.PremiumBps.String(), opp.Funding.GasUnits)
	}

	if len(opp.RiskFactors) > 0 {
		fmt.Fprintln(r.out, "")
		fmt.Fprintln(r.out, "RISKS")
		for _, risk := range opp.RiskFactors {
			fmt.Fprintf(r.out, "  [%s] %s: %s\n", risk.Severity, risk.Name, risk.Description)
		}
	}

	fmt.Fprintln(r.out, "================================================================================")
}

// ReportNone renders a single line; rejections are routine.
func (r *ConsoleReporter) ReportNone(none *domain.NoOpportunity) {
	fmt.Fprintf(r.out, "[%s] %s: no opportunity (%s)\n",
		none.Timestamp.Format("15:04:05"), none.Pair.String(), none.Reason)
}

// Summary renders a pass-level recap table.
func (r *ConsoleReporter) Summary(opportunities []*domain.Opportunity, rejections []*domain.NoOpportunity) {
	fmt.Fprintf(r.out, "\nPass complete: %d opportunities, %d pairs without\n",
		len(opportunities), len(rejections))

	if len(opportunities) == 0 {
		return
	}

	table := tablewriter.NewWriter(r.out)
	table.Header("Pair", "Buy", "Sell", "Spread %", "Size", "Net Profit")
	for _, opp := range opportunities {
		table.Append(
			opp.Pair.String(),
			opp.BuyVenue,
			opp.SellVenue,
			opp.SpreadPct.StringFixed(4),
			opp.Sizing.RecommendedAmount.StringFixed(4),
			opp.Evaluation.NetProfit.StringFixed(2),
		)
	}
	table.Render()
}
