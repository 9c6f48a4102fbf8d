package ledger

import (
	"context"
	"sync"
)

// Memory is an in-process ledger used by tests and local development.
// A single mutex keeps every balance/allowance movement atomic.
type Memory struct {
	mu         sync.Mutex
	balances   map[string]int64
	allowances map[string]map[string]int64 // owner -> spender -> amount
}

func NewMemory() *Memory {
	return &Memory{
		balances:   make(map[string]int64),
		allowances: make(map[string]map[string]int64),
	}
}

func (m *Memory) BalanceOf(_ context.Context, account string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *Memory) AuthorizedAmount(_ context.Context, owner, spender string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowances[owner][spender], nil
}

func (m *Memory) Approve(_ context.Context, owner, spender string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner] == nil {
		m.allowances[owner] = make(map[string]int64)
	}
	m.allowances[owner][spender] = amount
	return nil
}

func (m *Memory) TransferFrom(_ context.Context, owner, spender, to string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.allowances[owner][spender] < amount {
		return ErrInsufficientAllowance
	}
	if m.balances[owner] < amount {
		return ErrInsufficientFunds
	}
	m.allowances[owner][spender] -= amount
	m.balances[owner] -= amount
	m.balances[to] += amount
	return nil
}

func (m *Memory) Transfer(_ context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[from] < amount {
		return ErrInsufficientFunds
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

func (m *Memory) Deposit(_ context.Context, account string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
	return nil
}

func (m *Memory) Withdraw(_ context.Context, account string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[account] < amount {
		return ErrInsufficientFunds
	}
	m.balances[account] -= amount
	return nil
}
