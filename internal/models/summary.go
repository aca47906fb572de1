package models

import "time"

// AccountStatus is the terminal outcome of one account's processing run.
type AccountStatus string

const (
	// StatusSucceeded means the account connected, fetched and calculated.
	StatusSucceeded AccountStatus = "succeeded"
	// StatusFailed means processing was aborted for this account only.
	StatusFailed AccountStatus = "failed"
	// StatusSkipped means the account was never attempted because the run's
	// failure ceiling had already been reached.
	StatusSkipped AccountStatus = "skipped_failure_threshold"
)

// Failure reasons recorded on a failed AccountSummary.
const (
	ReasonConnectionExhausted = "connection_exhausted"
	ReasonSymbolConfiguration = "symbol_configuration_error"
	ReasonFetchFailed         = "fetch_failed"
)

// AccountSummary is the per-account fold of all PnLResult values plus the
// account's identity and outcome. It is owned by the processor run that
// produced it and is read-only afterwards.
type AccountSummary struct {
	Login  int64         `json:"login"`
	Server string        `json:"server"`
	Name   string        `json:"name,omitempty"`
	Status AccountStatus `json:"status"`
	// Reason is one of the Reason* constants when Status is failed.
	Reason string `json:"reason,omitempty"`
	Error  string `json:"error,omitempty"`

	Positions      int `json:"positions"`
	Orders         int `json:"orders"`
	InvalidRecords int `json:"invalid_records"`
	// SkippedRecords counts records dropped because their symbol had no
	// configured rate (skip-missing-symbol policy).
	SkippedRecords int `json:"skipped_records"`

	CurrentPnL      float64 `json:"current_pnl"`
	PotentialLoss   float64 `json:"potential_loss"`
	PotentialProfit float64 `json:"potential_profit"`

	ProfitablePositions int     `json:"profitable_positions"`
	LosingPositions     int     `json:"losing_positions"`
	BreakevenPositions  int     `json:"breakeven_positions"`
	TotalVolume         float64 `json:"total_volume"`
	UniqueSymbols       int     `json:"unique_symbols"`

	PositionResults []PnLResult `json:"position_results,omitempty"`
	OrderResults    []PnLResult `json:"order_results,omitempty"`

	ProcessedAt time.Time `json:"processed_at"`
}

// CombinedSummary is the whole-run fold of all account summaries plus run
// metadata. It is owned and mutated only by the runner.
type CombinedSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"processing_start_time"`
	FinishedAt time.Time `json:"processing_end_time"`
	// DurationSeconds is derived from the timestamps and kept for report output.
	DurationSeconds float64 `json:"duration_seconds"`

	AccountsConfigured int `json:"total_accounts"`
	AccountsSucceeded  int `json:"accounts_processed_successfully"`
	AccountsFailed     int `json:"accounts_failed"`
	AccountsSkipped    int `json:"accounts_skipped"`

	Positions      int `json:"positions"`
	Orders         int `json:"orders"`
	InvalidRecords int `json:"invalid_records"`
	SkippedRecords int `json:"skipped_records"`

	CurrentPnL      float64 `json:"current_pnl"`
	PotentialLoss   float64 `json:"potential_loss"`
	PotentialProfit float64 `json:"potential_profit"`
	TotalVolume     float64 `json:"total_volume"`
}

// AllSucceeded reports whether every configured account processed cleanly.
func (c *CombinedSummary) AllSucceeded() bool {
	return c.AccountsConfigured > 0 && c.AccountsSucceeded == c.AccountsConfigured
}

// NoneSucceeded reports whether not a single account produced results.
func (c *CombinedSummary) NoneSucceeded() bool {
	return c.AccountsSucceeded == 0
}
