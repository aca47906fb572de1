// Package runner iterates the configured accounts sequentially through the
// account processor and folds their summaries into the combined run result.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mt5-pnl-reporter/internal/aggregate"
	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/models"
)

// AccountProcessor processes one account and absorbs its failures into the
// returned summary.
type AccountProcessor interface {
	Process(ctx context.Context, acct config.Account) models.AccountSummary
}

// Result is the outcome of one full run: the combined summary plus the
// per-account summaries in configured order.
type Result struct {
	Combined models.CombinedSummary
	Accounts []models.AccountSummary
}

// ExitCode maps the run outcome onto the process exit status: 0 when every
// account succeeded, 1 when none did, 2 for partial failure.
func (r Result) ExitCode() int {
	switch {
	case r.Combined.NoneSucceeded():
		return 1
	case r.Combined.AllSucceeded():
		return 0
	default:
		return 2
	}
}

// Runner owns the sequential multi-account loop. Accounts are processed in
// declaration order, one at a time, with the configured inter-account delay
// and a running failure ceiling.
type Runner struct {
	processor AccountProcessor
	cfg       *config.Config
	logger    logrus.FieldLogger
}

// New creates a runner.
func New(proc AccountProcessor, cfg *config.Config, logger logrus.FieldLogger) *Runner {
	return &Runner{processor: proc, cfg: cfg, logger: logger}
}

// Run processes the given accounts and returns the folded result. One
// account's failure never aborts the run; once the failure ceiling is
// reached the remaining accounts are recorded as skipped, not attempted.
func (r *Runner) Run(ctx context.Context, accounts []config.Account) Result {
	started := time.Now().UTC()
	runID := uuid.New().String()
	log := r.logger.WithField("run_id", runID)
	log.Infof("starting processing of %d accounts", len(accounts))

	maxFailures := r.cfg.Processing.MaxAccountFailures
	if !r.cfg.Processing.ContinueOnAccountFailure {
		// Without continue-on-failure the first failure ends the run.
		maxFailures = 1
	}
	delay := r.cfg.AccountDelay()

	summaries := make([]models.AccountSummary, 0, len(accounts))
	failures := 0
	processedAny := false

	for _, acct := range accounts {
		if err := ctx.Err(); err != nil {
			log.WithField("login", acct.Login).Warn("run canceled; account not attempted")
			summaries = append(summaries, skippedSummary(acct, "run canceled"))
			continue
		}
		if failures >= maxFailures {
			log.WithField("login", acct.Login).Warnf("failure ceiling (%d) reached; skipping account", maxFailures)
			summaries = append(summaries, skippedSummary(acct, "failure threshold reached"))
			continue
		}

		if processedAny && delay > 0 {
			log.Debugf("waiting %s before next account", delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				log.WithField("login", acct.Login).Warn("run canceled during delay; account not attempted")
				summaries = append(summaries, skippedSummary(acct, "run canceled"))
				continue
			}
		}

		summary := r.processor.Process(ctx, acct)
		processedAny = true
		if summary.Status == models.StatusFailed {
			failures++
		}
		summaries = append(summaries, summary)
	}

	combined := aggregate.Combine(summaries)
	combined.RunID = runID
	combined.StartedAt = started
	combined.FinishedAt = time.Now().UTC()
	combined.DurationSeconds = combined.FinishedAt.Sub(started).Seconds()

	log.Infof("processing completed: %d successful, %d failed, %d skipped",
		combined.AccountsSucceeded, combined.AccountsFailed, combined.AccountsSkipped)

	return Result{Combined: combined, Accounts: summaries}
}

func skippedSummary(acct config.Account, detail string) models.AccountSummary {
	return models.AccountSummary{
		Login:       acct.Login,
		Server:      acct.Server,
		Name:        acct.Name,
		Status:      models.StatusSkipped,
		Error:       detail,
		ProcessedAt: time.Now().UTC(),
	}
}
