package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"mt5-pnl-reporter/internal/aggregate"
	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/models"
	"mt5-pnl-reporter/internal/pnl"
	"mt5-pnl-reporter/internal/rates"
	"mt5-pnl-reporter/internal/retry"
	"mt5-pnl-reporter/internal/terminal"
	"mt5-pnl-reporter/internal/validate"
)

// Processor runs the full lifecycle for single accounts. It borrows each
// Account for the duration of one Process call and owns the AccountSummary
// it returns; failures never propagate, they are absorbed into the summary.
type Processor struct {
	terminal terminal.Terminal
	rates    *rates.Table
	cfg      *config.Config
	retry    retry.Policy
	logger   logrus.FieldLogger
}

// New creates a processor. The retry policy for connections is derived from
// the processing configuration.
func New(term terminal.Terminal, table *rates.Table, cfg *config.Config, logger logrus.FieldLogger) *Processor {
	return &Processor{
		terminal: term,
		rates:    table,
		cfg:      cfg,
		retry: retry.Policy{
			MaxAttempts: cfg.Processing.MaxConnectionAttempts,
			Delay:       cfg.ConnectionRetryDelay(),
		},
		logger: logger,
	}
}

// Process runs one account through the lifecycle and returns its summary.
// The summary always carries the account identity and a terminal status.
func (p *Processor) Process(ctx context.Context, acct config.Account) models.AccountSummary {
	log := p.logger.WithFields(logrus.Fields{
		"login":  acct.Login,
		"server": acct.Server,
	})
	log.Info("processing account")

	sm := newStateMachine()
	step := func(to State) {
		if err := sm.Transition(to); err != nil {
			// A lifecycle violation is a bug, not an account condition.
			log.WithError(err).Error("lifecycle violation")
		}
	}
	failed := func(reason string, err error) models.AccountSummary {
		step(StateFailed)
		log.WithError(err).Error("account processing failed")
		return models.AccountSummary{
			Login:       acct.Login,
			Server:      acct.Server,
			Name:        acct.Name,
			Status:      models.StatusFailed,
			Reason:      reason,
			Error:       err.Error(),
			ProcessedAt: time.Now().UTC(),
		}
	}

	step(StateConnecting)
	var session terminal.Session
	err := p.retry.Do(ctx, log, func(ctx context.Context) error {
		s, err := p.terminal.Connect(ctx, acct)
		if err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		return failed(models.ReasonConnectionExhausted, err)
	}

	// The connection must be released on every exit path, including
	// mid-fetch failure and cancellation.
	released := false
	release := func() {
		if released {
			return
		}
		released = true
		step(StateDisconnecting)
		if err := session.Close(); err != nil {
			// Best-effort: the account's outcome is already determined.
			log.WithError(err).Warn("disconnect failed")
		}
	}
	defer release()

	step(StateFetching)
	positions, err := session.Positions(ctx)
	if err != nil {
		release()
		return failed(models.ReasonFetchFailed, fmt.Errorf("fetching positions: %w", err))
	}
	orders, err := session.Orders(ctx)
	if err != nil {
		release()
		return failed(models.ReasonFetchFailed, fmt.Errorf("fetching orders: %w", err))
	}
	log.WithFields(logrus.Fields{
		"positions": len(positions),
		"orders":    len(orders),
	}).Debug("records retrieved")

	step(StateValidating)
	var invalid, skipped int
	validPositions := make([]models.PositionRecord, 0, len(positions))
	for _, rec := range positions {
		if !p.cfg.Filter.Matches(rec.Magic) {
			continue
		}
		if err := validate.Position(rec); err != nil {
			invalid++
			log.WithError(err).Warn("dropping invalid position")
			continue
		}
		ok, fatal := p.checkSymbolRate(log, rec.Symbol, rec.Ticket, &skipped, &invalid)
		if fatal != nil {
			release()
			return failed(models.ReasonSymbolConfiguration, fatal)
		}
		if !ok {
			continue
		}
		validPositions = append(validPositions, rec)
	}
	validOrders := make([]models.PendingOrderRecord, 0, len(orders))
	for _, rec := range orders {
		if !p.cfg.Filter.Matches(rec.Magic) {
			continue
		}
		if err := validate.Order(rec); err != nil {
			invalid++
			log.WithError(err).Warn("dropping invalid order")
			continue
		}
		ok, fatal := p.checkSymbolRate(log, rec.Symbol, rec.Ticket, &skipped, &invalid)
		if fatal != nil {
			release()
			return failed(models.ReasonSymbolConfiguration, fatal)
		}
		if !ok {
			continue
		}
		validOrders = append(validOrders, rec)
	}

	step(StateCalculating)
	quotes := make(map[string]*terminal.Quote)
	positionResults := make([]models.PnLResult, 0, len(validPositions))
	for _, rec := range validPositions {
		res, err := pnl.Position(rec, p.rates)
		if err != nil {
			// Rate presence was confirmed during validation.
			invalid++
			log.WithError(err).Warn("dropping position result")
			continue
		}
		positionResults = append(positionResults, res)
	}
	orderResults := make([]models.PnLResult, 0, len(validOrders))
	for _, rec := range validOrders {
		market := p.marketPrice(ctx, log, session, quotes, rec)
		res, err := pnl.Order(rec, p.rates, market)
		if err != nil {
			invalid++
			log.WithError(err).Warn("dropping order result")
			continue
		}
		orderResults = append(orderResults, res)
	}

	step(StateAggregating)
	summary := aggregate.Account(positionResults, orderResults)
	summary.Login = acct.Login
	summary.Server = acct.Server
	summary.Name = acct.Name
	summary.InvalidRecords = invalid
	summary.SkippedRecords = skipped
	summary.ProcessedAt = time.Now().UTC()

	release()
	step(StateSucceeded)
	summary.Status = models.StatusSucceeded
	log.WithFields(logrus.Fields{
		"positions":   summary.Positions,
		"orders":      summary.Orders,
		"current_pnl": summary.CurrentPnL,
	}).Info("account processed")
	return summary
}

// checkSymbolRate applies the missing-rate policy for one record. It returns
// whether the record may be used, and a non-nil error when the whole account
// must fail (strict symbol validation). Skip takes precedence at the record
// level; with both policies disabled a missing rate still drops the record,
// never a silent fallback rate.
func (p *Processor) checkSymbolRate(log logrus.FieldLogger, symbol string, ticket int64,
	skipped, invalid *int) (bool, error) {
	if p.rates.Has(symbol) {
		return true, nil
	}
	v := p.cfg.Validation
	if v.SkipMissingSymbolConfig {
		*skipped++
		if v.LogMissingSymbolWarnings {
			log.Warnf("no rate configured for %s; skipping ticket %d", symbol, ticket)
		}
		return false, nil
	}
	if v.ValidateSymbolConfig {
		return false, fmt.Errorf("no rate configured for symbol %s (ticket %d)", symbol, ticket)
	}
	*invalid++
	log.Errorf("no rate configured for %s; dropping ticket %d", symbol, ticket)
	return false, nil
}

// marketPrice fetches the side-appropriate current price for a pending
// order: bid for sells, ask for buys. An unavailable quote leaves the
// distance-to-trigger undefined rather than zero.
func (p *Processor) marketPrice(ctx context.Context, log logrus.FieldLogger,
	session terminal.Session, cache map[string]*terminal.Quote,
	rec models.PendingOrderRecord) *float64 {
	q, ok := cache[rec.Symbol]
	if !ok {
		var err error
		q, err = session.Quote(ctx, rec.Symbol)
		if err != nil {
			log.WithError(err).Debugf("no market price for %s", rec.Symbol)
			q = nil
		}
		cache[rec.Symbol] = q
	}
	if q == nil {
		return nil
	}
	if rec.Kind.Side() == models.SideSell {
		return models.Float64(q.Bid)
	}
	return models.Float64(q.Ask)
}
