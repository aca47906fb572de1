// Package aggregate folds per-record P&L results into account summaries and
// account summaries into the combined run-level summary.
//
// The fold only adds: it is associative and order-independent, so summing the
// same inputs in any order yields identical totals. Records with an undefined
// optional field (no stop or take-profit set) contribute zero to the
// corresponding sum but still count toward the position/order totals.
package aggregate

import (
	"mt5-pnl-reporter/internal/models"
)

func addOptional(total *float64, v *float64) {
	if v != nil {
		*total += *v
	}
}

// Account folds position and order results into an AccountSummary. Identity,
// status and the invalid/skipped counters are filled in by the caller, which
// owns the record-policy decisions.
func Account(positions, orders []models.PnLResult) models.AccountSummary {
	var s models.AccountSummary
	symbols := make(map[string]struct{})

	for _, r := range positions {
		s.Positions++
		s.TotalVolume += r.Volume
		symbols[r.Symbol] = struct{}{}
		addOptional(&s.CurrentPnL, r.CurrentPnL)
		addOptional(&s.PotentialLoss, r.PotentialLoss)
		addOptional(&s.PotentialProfit, r.PotentialProfit)

		switch {
		case r.CurrentPnL != nil && *r.CurrentPnL > 0:
			s.ProfitablePositions++
		case r.CurrentPnL != nil && *r.CurrentPnL < 0:
			s.LosingPositions++
		default:
			s.BreakevenPositions++
		}
	}

	for _, r := range orders {
		s.Orders++
		s.TotalVolume += r.Volume
		symbols[r.Symbol] = struct{}{}
		addOptional(&s.PotentialLoss, r.PotentialLoss)
		addOptional(&s.PotentialProfit, r.PotentialProfit)
	}

	s.UniqueSymbols = len(symbols)
	s.PositionResults = positions
	s.OrderResults = orders
	return s
}

// Combine folds account summaries into a CombinedSummary, tallying outcome
// counts alongside the numeric sums. Run metadata (run ID, timestamps) is
// owned by the runner and set there.
func Combine(summaries []models.AccountSummary) models.CombinedSummary {
	var c models.CombinedSummary
	c.AccountsConfigured = len(summaries)

	for i := range summaries {
		s := &summaries[i]
		switch s.Status {
		case models.StatusSucceeded:
			c.AccountsSucceeded++
		case models.StatusFailed:
			c.AccountsFailed++
		case models.StatusSkipped:
			c.AccountsSkipped++
		}

		c.Positions += s.Positions
		c.Orders += s.Orders
		c.InvalidRecords += s.InvalidRecords
		c.SkippedRecords += s.SkippedRecords
		c.CurrentPnL += s.CurrentPnL
		c.PotentialLoss += s.PotentialLoss
		c.PotentialProfit += s.PotentialProfit
		c.TotalVolume += s.TotalVolume
	}

	return c
}
