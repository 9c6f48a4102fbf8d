package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds is returned when an account cannot cover a transfer or withdrawal.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	// ErrInsufficientAllowance is returned when a spender exceeds what the owner authorized.
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	// ErrInvalidAmount is returned for negative amounts.
	ErrInvalidAmount = errors.New("ledger: invalid amount")
)

// Ledger holds fungible value per account with an allowance model.
// Amounts are int64 in the smallest currency unit; every call is atomic.
type Ledger interface {
	BalanceOf(ctx context.Context, account string) (int64, error)
	AuthorizedAmount(ctx context.Context, owner, spender string) (int64, error)

	// Approve sets (not adds) the amount spender may move out of owner's account.
	Approve(ctx context.Context, owner, spender string, amount int64) error

	// TransferFrom moves owner's funds to another account on behalf of spender,
	// consuming that much of the allowance.
	TransferFrom(ctx context.Context, owner, spender, to string, amount int64) error

	// Transfer moves the caller-specified account's own funds.
	Transfer(ctx context.Context, from, to string, amount int64) error

	Deposit(ctx context.Context, account string, amount int64) error
	Withdraw(ctx context.Context, account string, amount int64) error
}
