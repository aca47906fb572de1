package terminal

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/models"
)

// CircuitBreakerSettings configures circuit breaker behavior.
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// CircuitBreakerTerminal wraps a Terminal with circuit breaker functionality
// so an unresponsive bridge stops being hammered mid-run. Connect attempts
// and session fetches share one breaker: a bridge that cannot serve fetches
// will not serve logins either.
type CircuitBreakerTerminal struct {
	terminal Terminal
	breaker  *gobreaker.CircuitBreaker
}

// execBreaker is a generic helper for circuit breaker wrapper methods.
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// NewCircuitBreakerTerminal creates a CircuitBreakerTerminal with sensible defaults.
func NewCircuitBreakerTerminal(t Terminal, logger logrus.FieldLogger) *CircuitBreakerTerminal {
	return NewCircuitBreakerTerminalWithSettings(t, logger, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerTerminalWithSettings creates a CircuitBreakerTerminal with custom settings.
func NewCircuitBreakerTerminalWithSettings(t Terminal, logger logrus.FieldLogger,
	settings CircuitBreakerSettings) *CircuitBreakerTerminal {
	gbSettings := gobreaker.Settings{
		Name:        "TerminalCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warnf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerTerminal{
		terminal: t,
		breaker:  gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// Connect wraps the underlying terminal's Connect with the circuit breaker
// and returns a session whose fetches go through the same breaker.
func (c *CircuitBreakerTerminal) Connect(ctx context.Context, acct config.Account) (Session, error) {
	session, err := execBreaker(c.breaker, func() (Session, error) { return c.terminal.Connect(ctx, acct) })
	if err != nil {
		return nil, err
	}
	return &circuitBreakerSession{session: session, breaker: c.breaker}, nil
}

type circuitBreakerSession struct {
	session Session
	breaker *gobreaker.CircuitBreaker
}

func (s *circuitBreakerSession) Positions(ctx context.Context) ([]models.PositionRecord, error) {
	return execBreaker(s.breaker, func() ([]models.PositionRecord, error) { return s.session.Positions(ctx) })
}

func (s *circuitBreakerSession) Orders(ctx context.Context) ([]models.PendingOrderRecord, error) {
	return execBreaker(s.breaker, func() ([]models.PendingOrderRecord, error) { return s.session.Orders(ctx) })
}

func (s *circuitBreakerSession) Quote(ctx context.Context, symbol string) (*Quote, error) {
	return execBreaker(s.breaker, func() (*Quote, error) { return s.session.Quote(ctx, symbol) })
}

// Close releases the underlying session directly. Disconnects are best-effort
// and must run even when the breaker is open.
func (s *circuitBreakerSession) Close() error {
	return s.session.Close()
}

// Ensure CircuitBreakerTerminal implements Terminal at compile time.
var _ Terminal = (*CircuitBreakerTerminal)(nil)
