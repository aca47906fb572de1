package terminal

import (
	"context"
	"fmt"
	"sync"

	"mt5-pnl-reporter/internal/config"
	"mt5-pnl-reporter/internal/models"
)

// FakeAccount is the scripted dataset one fake session serves.
type FakeAccount struct {
	Positions []models.PositionRecord
	Orders    []models.PendingOrderRecord
	Quotes    map[string]Quote
	// FailConnects makes the first N Connect calls for this login fail
	// before one succeeds.
	FailConnects int
	// FetchErr makes Positions/Orders return this error.
	FetchErr error
}

// Fake is an in-memory Terminal for tests. Sessions serve canned records per
// login and count lifecycle calls so tests can assert the scoped
// acquire/release discipline.
type Fake struct {
	mu       sync.Mutex
	accounts map[int64]*FakeAccount

	ConnectCalls int
	CloseCalls   int
	connected    int64 // login of the open session, 0 when none
}

// NewFake creates a fake terminal with no scripted accounts.
func NewFake() *Fake {
	return &Fake{accounts: make(map[int64]*FakeAccount)}
}

// Script registers the dataset served for a login.
func (f *Fake) Script(login int64, acct *FakeAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[login] = acct
}

// Connected returns the login of the currently open session, or 0.
func (f *Fake) Connected() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *Fake) Connect(ctx context.Context, acct config.Account) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.ConnectCalls++

	scripted, ok := f.accounts[acct.Login]
	if !ok {
		return nil, fmt.Errorf("no terminal account for login %d", acct.Login)
	}
	if scripted.FailConnects > 0 {
		scripted.FailConnects--
		return nil, fmt.Errorf("connection refused for login %d", acct.Login)
	}
	if f.connected != 0 {
		return nil, fmt.Errorf("session for login %d still open", f.connected)
	}
	f.connected = acct.Login
	return &fakeSession{terminal: f, account: scripted, login: acct.Login}, nil
}

type fakeSession struct {
	terminal *Fake
	account  *FakeAccount
	login    int64
}

func (s *fakeSession) Positions(ctx context.Context) ([]models.PositionRecord, error) {
	if s.account.FetchErr != nil {
		return nil, s.account.FetchErr
	}
	out := make([]models.PositionRecord, len(s.account.Positions))
	copy(out, s.account.Positions)
	return out, nil
}

func (s *fakeSession) Orders(ctx context.Context) ([]models.PendingOrderRecord, error) {
	if s.account.FetchErr != nil {
		return nil, s.account.FetchErr
	}
	out := make([]models.PendingOrderRecord, len(s.account.Orders))
	copy(out, s.account.Orders)
	return out, nil
}

func (s *fakeSession) Quote(ctx context.Context, symbol string) (*Quote, error) {
	q, ok := s.account.Quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("no quote found for symbol: %s", symbol)
	}
	return &q, nil
}

func (s *fakeSession) Close() error {
	s.terminal.mu.Lock()
	defer s.terminal.mu.Unlock()
	s.terminal.CloseCalls++
	s.terminal.connected = 0
	return nil
}

// Ensure Fake implements Terminal at compile time.
var _ Terminal = (*Fake)(nil)
