// Package validate checks fetched position and order records before they are
// used in any calculation. Invalid records are dropped and counted by the
// caller; validation itself never aborts an account.
package validate

import (
	"fmt"

	"mt5-pnl-reporter/internal/models"
)

// InvalidRecordError describes why a fetched record was rejected.
type InvalidRecordError struct {
	Ticket int64
	Reason string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid record (ticket %d): %s", e.Ticket, e.Reason)
}

func invalid(ticket int64, format string, args ...interface{}) error {
	return &InvalidRecordError{Ticket: ticket, Reason: fmt.Sprintf(format, args...)}
}

// Position checks that a position record has all required fields and sane
// values.
func Position(rec models.PositionRecord) error {
	if rec.Ticket <= 0 {
		return invalid(rec.Ticket, "ticket must be positive, got %d", rec.Ticket)
	}
	if rec.Symbol == "" {
		return invalid(rec.Ticket, "symbol is empty")
	}
	if !rec.Side.Valid() {
		return invalid(rec.Ticket, "unrecognized side %q", rec.Side)
	}
	if rec.Volume <= 0 {
		return invalid(rec.Ticket, "volume must be > 0, got %v", rec.Volume)
	}
	if rec.OpenPrice <= 0 {
		return invalid(rec.Ticket, "open price must be > 0, got %v", rec.OpenPrice)
	}
	if rec.CurrentPrice <= 0 {
		return invalid(rec.Ticket, "current price must be > 0, got %v", rec.CurrentPrice)
	}
	return nil
}

// Order mirrors Position for pending orders, additionally requiring the order
// type to be one of the recognized kinds.
func Order(rec models.PendingOrderRecord) error {
	if rec.Ticket <= 0 {
		return invalid(rec.Ticket, "ticket must be positive, got %d", rec.Ticket)
	}
	if rec.Symbol == "" {
		return invalid(rec.Ticket, "symbol is empty")
	}
	if !rec.Kind.Valid() {
		return invalid(rec.Ticket, "unrecognized order kind %q", rec.Kind)
	}
	if rec.Volume <= 0 {
		return invalid(rec.Ticket, "volume must be > 0, got %v", rec.Volume)
	}
	if rec.TriggerPrice <= 0 {
		return invalid(rec.Ticket, "trigger price must be > 0, got %v", rec.TriggerPrice)
	}
	return nil
}
