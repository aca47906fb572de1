// Package report renders the outcome of a run: a sectioned console report,
// a timestamped JSON summary file, and an optional HTTP snapshot server.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mt5-pnl-reporter/internal/models"
	"mt5-pnl-reporter/internal/runner"
)

// ProcessingInfo carries the run metadata block of the JSON document.
type ProcessingInfo struct {
	RunID              string    `json:"run_id"`
	StartedAt          time.Time `json:"processing_start_time"`
	FinishedAt         time.Time `json:"processing_end_time"`
	DurationSeconds    float64   `json:"duration_seconds"`
	AccountsConfigured int       `json:"total_accounts"`
	AccountsSucceeded  int       `json:"accounts_processed_successfully"`
	AccountsFailed     int       `json:"accounts_failed"`
	AccountsSkipped    int       `json:"accounts_skipped"`
}

// CombinedTotals carries the cross-account numeric sums.
type CombinedTotals struct {
	Positions       int     `json:"positions"`
	Orders          int     `json:"orders"`
	InvalidRecords  int     `json:"invalid_records"`
	SkippedRecords  int     `json:"skipped_records"`
	CurrentPnL      float64 `json:"current_pnl"`
	PotentialLoss   float64 `json:"potential_loss"`
	PotentialProfit float64 `json:"potential_profit"`
	TotalVolume     float64 `json:"total_volume"`
}

// AccountDetail is the per-record breakdown for one account.
type AccountDetail struct {
	Login           int64              `json:"login"`
	PositionResults []models.PnLResult `json:"position_results,omitempty"`
	OrderResults    []models.PnLResult `json:"order_results,omitempty"`
}

// Document is the on-disk JSON layout of one run. Account summaries carry
// only aggregates; the per-record breakdown lives in DetailedResults and is
// omitted entirely when detailed output is disabled.
type Document struct {
	GeneratedAt      time.Time               `json:"generated_at"`
	ProcessingInfo   ProcessingInfo          `json:"processing_info"`
	CombinedTotals   CombinedTotals          `json:"combined_totals"`
	AccountSummaries []models.AccountSummary `json:"account_summaries"`
	DetailedResults  []AccountDetail         `json:"detailed_results,omitempty"`
}

// NewDocument builds the JSON document for a run result.
func NewDocument(res runner.Result, detailed bool) Document {
	c := res.Combined
	doc := Document{
		GeneratedAt: time.Now().UTC(),
		ProcessingInfo: ProcessingInfo{
			RunID:              c.RunID,
			StartedAt:          c.StartedAt,
			FinishedAt:         c.FinishedAt,
			DurationSeconds:    c.DurationSeconds,
			AccountsConfigured: c.AccountsConfigured,
			AccountsSucceeded:  c.AccountsSucceeded,
			AccountsFailed:     c.AccountsFailed,
			AccountsSkipped:    c.AccountsSkipped,
		},
		CombinedTotals: CombinedTotals{
			Positions:       c.Positions,
			Orders:          c.Orders,
			InvalidRecords:  c.InvalidRecords,
			SkippedRecords:  c.SkippedRecords,
			CurrentPnL:      c.CurrentPnL,
			PotentialLoss:   c.PotentialLoss,
			PotentialProfit: c.PotentialProfit,
			TotalVolume:     c.TotalVolume,
		},
		AccountSummaries: make([]models.AccountSummary, len(res.Accounts)),
	}

	for i, acct := range res.Accounts {
		if detailed && (len(acct.PositionResults) > 0 || len(acct.OrderResults) > 0) {
			doc.DetailedResults = append(doc.DetailedResults, AccountDetail{
				Login:           acct.Login,
				PositionResults: acct.PositionResults,
				OrderResults:    acct.OrderResults,
			})
		}
		acct.PositionResults = nil
		acct.OrderResults = nil
		doc.AccountSummaries[i] = acct
	}
	return doc
}

// WriteJSON writes the document into dir as
// profit_loss_summary_YYYYMMDD_HHMMSS.json and returns the full path.
func WriteJSON(dir string, doc Document) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	name := fmt.Sprintf("profit_loss_summary_%s.json", doc.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	// Write to temp file first, then rename into place.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", err
	}
	return path, nil
}
