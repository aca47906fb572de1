// Package retry provides the connection retry policy used when establishing
// terminal sessions.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy is a fixed-delay retry policy: up to MaxAttempts attempts with
// Delay between them, no backoff. It is a plain value so it can be tested in
// isolation by injecting an operation that fails N times then succeeds.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultPolicy matches the default connection settings.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	Delay:       1 * time.Second,
}

// Do runs op until it succeeds or the policy is exhausted. The delay between
// attempts is cancellable; a context cancellation surfaces immediately and is
// never retried.
func (p Policy) Do(ctx context.Context, logger logrus.FieldLogger, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("operation canceled: %w", err)
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		logger.WithError(err).Warnf("attempt %d/%d failed", attempt, attempts)

		if attempt == attempts {
			break
		}
		select {
		case <-time.After(p.Delay):
		case <-ctx.Done():
			return fmt.Errorf("operation canceled during retry delay: %w", ctx.Err())
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
