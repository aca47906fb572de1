package terminal

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mt5-pnl-reporter/internal/config"
)

func TestCircuitBreaker_PassesThrough(t *testing.T) {
	fake := NewFake()
	fake.Script(111, &FakeAccount{})
	cb := NewCircuitBreakerTerminal(fake, testLogger())

	session, err := cb.Connect(context.Background(), config.Account{Login: 111})
	require.NoError(t, err)

	positions, err := session.Positions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)

	require.NoError(t, session.Close())
	assert.Equal(t, 1, fake.CloseCalls)
}

func TestCircuitBreaker_TripsAfterRepeatedFailures(t *testing.T) {
	fake := NewFake()
	fake.Script(111, &FakeAccount{FailConnects: 100})
	cb := NewCircuitBreakerTerminalWithSettings(fake, testLogger(), CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  3,
		FailureRatio: 0.6,
	})

	for i := 0; i < 3; i++ {
		_, err := cb.Connect(context.Background(), config.Account{Login: 111})
		require.Error(t, err)
	}

	// Breaker is open now; the underlying terminal is no longer called.
	before := fake.ConnectCalls
	_, err := cb.Connect(context.Background(), config.Account{Login: 111})
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, before, fake.ConnectCalls)
}

func TestCircuitBreaker_CloseBypassesOpenBreaker(t *testing.T) {
	fake := NewFake()
	fake.Script(111, &FakeAccount{})
	cb := NewCircuitBreakerTerminalWithSettings(fake, testLogger(), CircuitBreakerSettings{
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		MinRequests:  1,
		FailureRatio: 0.1,
	})

	session, err := cb.Connect(context.Background(), config.Account{Login: 111})
	require.NoError(t, err)

	// Trip the breaker with failing quotes.
	for i := 0; i < 3; i++ {
		_, _ = session.Quote(context.Background(), "UNKNOWN")
	}

	// The session must still release cleanly.
	require.NoError(t, session.Close())
	assert.Equal(t, 1, fake.CloseCalls)
}
