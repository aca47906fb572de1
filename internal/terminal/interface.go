// Package terminal provides the client contract for the trading-terminal
// bridge that the reporter fetches account data from. It includes the HTTP
// bridge client implementation and a circuit-breaker wrapper.
package terminal

import (
	"context"

	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/models"
)

// Quote is a current market price pair for one symbol.
type Quote struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// Terminal establishes sessions against terminal accounts. Terminals this
// tool wraps are single-session-per-process, so exactly one session is open
// at a time; the caller must Close a session before connecting the next
// account.
type Terminal interface {
	Connect(ctx context.Context, acct config.Account) (Session, error)
}

// Session is one established account connection. All fetch methods are
// read-only; an empty result is valid and not an error.
type Session interface {
	Positions(ctx context.Context) ([]models.PositionRecord, error)
	Orders(ctx context.Context) ([]models.PendingOrderRecord, error)
	Quote(ctx context.Context, symbol string) (*Quote, error)
	Close() error
}
