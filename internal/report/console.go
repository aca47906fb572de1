package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"mt5-pnl-reporter/internal/models"
	"mt5-pnl-reporter/internal/runner"
)

const lineWidth = 72

// WriteConsole renders the sectioned run report to w. When detailed is true
// every position and pending order is listed individually, otherwise only
// the per-account aggregates are shown.
func WriteConsole(w io.Writer, res runner.Result, detailed bool) {
	writeHeader(w, "PROFIT / LOSS REPORT")
	writeRunSection(w, res.Combined)

	for _, acct := range res.Accounts {
		writeAccountSection(w, acct, detailed)
	}

	writeCombinedSection(w, res.Combined)
	writeStatisticsSection(w, res.Accounts)
}

func writeHeader(w io.Writer, title string) {
	rule := strings.Repeat("=", lineWidth)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s\n", center(title))
	fmt.Fprintln(w, rule)
}

func writeRunSection(w io.Writer, c models.CombinedSummary) {
	fmt.Fprintf(w, "Run ID:      %s\n", c.RunID)
	fmt.Fprintf(w, "Started:     %s\n", c.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Duration:    %.2fs\n", c.DurationSeconds)
	fmt.Fprintf(w, "Accounts:    %d configured, %d succeeded, %d failed, %d skipped\n",
		c.AccountsConfigured, c.AccountsSucceeded, c.AccountsFailed, c.AccountsSkipped)
	fmt.Fprintln(w)
}

func writeAccountSection(w io.Writer, a models.AccountSummary, detailed bool) {
	fmt.Fprintln(w, strings.Repeat("-", lineWidth))
	label := a.Name
	if label == "" {
		label = fmt.Sprintf("account %d", a.Login)
	}
	fmt.Fprintf(w, "Account: %s (login %d, %s)\n", label, a.Login, a.Server)

	switch a.Status {
	case models.StatusSucceeded:
		fmt.Fprintf(w, "Status:  succeeded\n")
	case models.StatusFailed:
		fmt.Fprintf(w, "Status:  FAILED (%s)\n", a.Reason)
		if a.Error != "" {
			fmt.Fprintf(w, "Error:   %s\n", a.Error)
		}
		fmt.Fprintln(w)
		return
	case models.StatusSkipped:
		fmt.Fprintf(w, "Status:  skipped")
		if a.Error != "" {
			fmt.Fprintf(w, " (%s)", a.Error)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w)
		return
	}

	fmt.Fprintf(w, "Records: %d positions, %d pending orders", a.Positions, a.Orders)
	if a.InvalidRecords > 0 {
		fmt.Fprintf(w, ", %d invalid", a.InvalidRecords)
	}
	if a.SkippedRecords > 0 {
		fmt.Fprintf(w, ", %d skipped", a.SkippedRecords)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Current P&L:      %12.2f\n", a.CurrentPnL)
	fmt.Fprintf(w, "Potential loss:   %12.2f\n", a.PotentialLoss)
	fmt.Fprintf(w, "Potential profit: %12.2f\n", a.PotentialProfit)
	fmt.Fprintf(w, "Open positions:   %d profitable, %d losing, %d breakeven\n",
		a.ProfitablePositions, a.LosingPositions, a.BreakevenPositions)

	if detailed {
		if len(a.PositionResults) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "  Positions:")
			for _, r := range a.PositionResults {
				writeResultLine(w, r)
			}
		}
		if len(a.OrderResults) > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "  Pending orders:")
			for _, r := range a.OrderResults {
				writeResultLine(w, r)
			}
		}
	}
	fmt.Fprintln(w)
}

func writeResultLine(w io.Writer, r models.PnLResult) {
	fmt.Fprintf(w, "    #%-10d %-10s %-15s %8.2f lots @ %.5f", r.Ticket, r.Symbol, r.Kind, r.Volume, r.Entry)
	if r.CurrentPnL != nil {
		fmt.Fprintf(w, "  pnl %10.2f", *r.CurrentPnL)
	}
	if r.PotentialLoss != nil {
		fmt.Fprintf(w, "  loss %10.2f", *r.PotentialLoss)
	}
	if r.PotentialProfit != nil {
		fmt.Fprintf(w, "  profit %10.2f", *r.PotentialProfit)
	}
	if r.DistanceToTrigger != nil {
		fmt.Fprintf(w, "  dist %.5f", *r.DistanceToTrigger)
	}
	if r.RiskRewardRatio != nil {
		fmt.Fprintf(w, "  r/r %.2f", *r.RiskRewardRatio)
	}
	fmt.Fprintln(w)
}

func writeCombinedSection(w io.Writer, c models.CombinedSummary) {
	writeHeader(w, "COMBINED TOTALS")
	fmt.Fprintf(w, "Positions:        %d\n", c.Positions)
	fmt.Fprintf(w, "Pending orders:   %d\n", c.Orders)
	if c.InvalidRecords > 0 {
		fmt.Fprintf(w, "Invalid records:  %d\n", c.InvalidRecords)
	}
	if c.SkippedRecords > 0 {
		fmt.Fprintf(w, "Skipped records:  %d\n", c.SkippedRecords)
	}
	fmt.Fprintf(w, "Current P&L:      %12.2f\n", c.CurrentPnL)
	fmt.Fprintf(w, "Potential loss:   %12.2f\n", c.PotentialLoss)
	fmt.Fprintf(w, "Potential profit: %12.2f\n", c.PotentialProfit)
	fmt.Fprintf(w, "Total volume:     %12.2f lots\n", c.TotalVolume)
	fmt.Fprintln(w)
}

func writeStatisticsSection(w io.Writer, accounts []models.AccountSummary) {
	volumeBySymbol := make(map[string]float64)
	var (
		profitable, losing, breakeven int
		positionCount                 int
		totalVolume                   float64
		largestWin, largestLoss       float64
		maxDrawdown                   float64
	)

	for _, a := range accounts {
		if a.Status != models.StatusSucceeded {
			continue
		}
		profitable += a.ProfitablePositions
		losing += a.LosingPositions
		breakeven += a.BreakevenPositions
		for _, r := range a.PositionResults {
			positionCount++
			totalVolume += r.Volume
			volumeBySymbol[r.Symbol] += r.Volume
			if r.CurrentPnL != nil {
				if *r.CurrentPnL > largestWin {
					largestWin = *r.CurrentPnL
				}
				if *r.CurrentPnL < largestLoss {
					largestLoss = *r.CurrentPnL
				}
			}
			if r.PotentialLoss != nil && *r.PotentialLoss < 0 {
				maxDrawdown += *r.PotentialLoss
			}
		}
	}

	if positionCount == 0 {
		return
	}

	writeHeader(w, "ADDITIONAL STATISTICS")
	fmt.Fprintf(w, "P&L distribution:  %d profitable, %d losing, %d breakeven\n", profitable, losing, breakeven)
	fmt.Fprintf(w, "Average size:      %.2f lots\n", totalVolume/float64(positionCount))
	fmt.Fprintf(w, "Largest winner:    %.2f\n", largestWin)
	fmt.Fprintf(w, "Largest loser:     %.2f\n", largestLoss)
	fmt.Fprintf(w, "Max drawdown:      %.2f (all stops hit)\n", maxDrawdown)
	fmt.Fprintf(w, "Symbols traded:    %d\n", len(volumeBySymbol))

	symbols := make([]string, 0, len(volumeBySymbol))
	for s := range volumeBySymbol {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	fmt.Fprintln(w, "Volume exposure:")
	for _, s := range symbols {
		fmt.Fprintf(w, "  %-12s %8.2f lots (%.1f%%)\n", s, volumeBySymbol[s], volumeBySymbol[s]/totalVolume*100)
	}
	fmt.Fprintln(w)
}

func center(s string) string {
	pad := (lineWidth - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}
