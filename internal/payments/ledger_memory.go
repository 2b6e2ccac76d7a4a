package payments

import (
	"context"
	"fmt"
	"sync"

	id "tokensafe/pkg/domain"
	"tokensafe/pkg/platform/checked"
	"tokensafe/pkg/platform/sentinel"
)

// InMemoryLedger is a balance ledger for development and tests. Transfers
// are atomic under one lock, so a failed debit never leaves a partial
// credit behind.
type InMemoryLedger struct {
	mu       sync.Mutex
	balances map[id.AccountID]uint64
}

func NewInMemoryLedger() *InMemoryLedger {
	return &InMemoryLedger{
		balances: make(map[id.AccountID]uint64),
	}
}

// Credit adds funds to an account, e.g. to seed test fixtures.
func (l *InMemoryLedger) Credit(account id.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := checked.AddU64(l.balances[account], amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", account, err)
	}
	l.balances[account] = next
	return nil
}

// Balance reports the current balance of an account.
func (l *InMemoryLedger) Balance(account id.AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

func (l *InMemoryLedger) Transfer(_ context.Context, from, to id.AccountID, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.balances[from] < amount {
		return fmt.Errorf("transfer %d from %s: %w", amount, from, sentinel.ErrInsufficientFunds)
	}
	credited, err := checked.AddU64(l.balances[to], amount)
	if err != nil {
		return fmt.Errorf("transfer %d to %s: %w", amount, to, err)
	}
	l.balances[from] -= amount
	l.balances[to] = credited
	return nil
}
