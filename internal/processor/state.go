// Package processor orchestrates one account's lifecycle: connect, fetch,
// validate, calculate, aggregate, disconnect. Connections are retried and
// every failure is isolated to its account.
package processor

import (
	"fmt"
	"time"
)

// State represents one phase of an account's processing lifecycle.
type State string

const (
	StateIdle          State = "idle"
	StateConnecting    State = "connecting"
	StateFetching      State = "fetching"
	StateValidating    State = "validating"
	StateCalculating   State = "calculating"
	StateAggregating   State = "aggregating"
	StateDisconnecting State = "disconnecting"
	StateSucceeded     State = "succeeded"
	StateFailed        State = "failed"
)

// stateTransition defines a valid lifecycle transition.
type stateTransition struct {
	From        State
	To          State
	Description string
}

// validTransitions encodes the lifecycle. Both terminal states are reached
// through disconnecting whenever a connection was established; only a
// connection that never came up may fail directly.
var validTransitions = []stateTransition{
	{StateIdle, StateConnecting, "start processing"},
	{StateConnecting, StateFetching, "session established"},
	{StateConnecting, StateFailed, "connection attempts exhausted"},

	{StateFetching, StateValidating, "records retrieved"},
	{StateValidating, StateCalculating, "records validated"},
	{StateCalculating, StateAggregating, "results computed"},
	{StateAggregating, StateDisconnecting, "summary built"},

	// Early exits after a connection exists still release it first.
	{StateFetching, StateDisconnecting, "fetch failed"},
	{StateValidating, StateDisconnecting, "strict symbol validation failed"},

	{StateDisconnecting, StateSucceeded, "clean run"},
	{StateDisconnecting, StateFailed, "failed after release"},
}

// stateMachine tracks and validates lifecycle transitions for one account run.
type stateMachine struct {
	current        State
	previous       State
	transitionTime time.Time
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current:        StateIdle,
		previous:       StateIdle,
		transitionTime: time.Now().UTC(),
	}
}

// Current returns the current state.
func (m *stateMachine) Current() State { return m.current }

// InTerminalState returns true once the run has reached succeeded or failed.
func (m *stateMachine) InTerminalState() bool {
	return m.current == StateSucceeded || m.current == StateFailed
}

// Transition moves to a new state, rejecting moves the lifecycle does not
// define.
func (m *stateMachine) Transition(to State) error {
	for _, t := range validTransitions {
		if t.From == m.current && t.To == to {
			m.previous = m.current
			m.current = to
			m.transitionTime = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid transition from %s to %s", m.current, to)
}
