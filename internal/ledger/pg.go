package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG is the Postgres-backed ledger. Balances live in wallets, allowances
// in a separate (owner, spender) table. Each operation runs in its own
// transaction with conditional updates guarding balances.
type PG struct {
	pool *pgxpool.Pool
}

func NewPG(pool *pgxpool.Pool) *PG {
	return &PG{pool: pool}
}

func (p *PG) BalanceOf(ctx context.Context, account string) (int64, error) {
	var balance int64
	err := p.pool.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE account = $1`, account,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: balance of %s: %w", account, err)
	}
	return balance, nil
}

func (p *PG) AuthorizedAmount(ctx context.Context, owner, spender string) (int64, error) {
	var amount int64
	err := p.pool.QueryRow(ctx,
		`SELECT amount FROM allowances WHERE owner = $1 AND spender = $2`, owner, spender,
	).Scan(&amount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ledger: allowance %s->%s: %w", owner, spender, err)
	}
	return amount, nil
}

func (p *PG) Approve(ctx context.Context, owner, spender string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO allowances (owner, spender, amount) VALUES ($1, $2, $3)
		 ON CONFLICT (owner, spender) DO UPDATE SET amount = EXCLUDED.amount`,
		owner, spender, amount,
	)
	if err != nil {
		return fmt.Errorf("ledger: approve: %w", err)
	}
	return nil
}

func (p *PG) TransferFrom(ctx context.Context, owner, spender, to string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	res, err := tx.Exec(ctx,
		`UPDATE allowances SET amount = amount - $1
		 WHERE owner = $2 AND spender = $3 AND amount >= $1`,
		amount, owner, spender,
	)
	if err != nil {
		return fmt.Errorf("ledger: consume allowance: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientAllowance
	}

	if err := debit(ctx, tx, owner, amount); err != nil {
		return err
	}
	if err := credit(ctx, tx, to, amount); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit tx: %w", err)
	}
	return nil
}

func (p *PG) Transfer(ctx context.Context, from, to string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := debit(ctx, tx, from, amount); err != nil {
		return err
	}
	if err := credit(ctx, tx, to, amount); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit tx: %w", err)
	}
	return nil
}

func (p *PG) Deposit(ctx context.Context, account string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := credit(ctx, tx, account, amount); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit tx: %w", err)
	}
	return nil
}

func (p *PG) Withdraw(ctx context.Context, account string, amount int64) error {
	if amount < 0 {
		return ErrInvalidAmount
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ledger: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := debit(ctx, tx, account, amount); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ledger: commit tx: %w", err)
	}
	return nil
}

func debit(ctx context.Context, tx pgx.Tx, account string, amount int64) error {
	res, err := tx.Exec(ctx,
		`UPDATE wallets SET balance = balance - $1 WHERE account = $2 AND balance >= $1`,
		amount, account,
	)
	if err != nil {
		return fmt.Errorf("ledger: debit %s: %w", account, err)
	}
	if res.RowsAffected() == 0 {
		return ErrInsufficientFunds
	}
	return nil
}

func credit(ctx context.Context, tx pgx.Tx, account string, amount int64) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO wallets (account, balance) VALUES ($1, $2)
		 ON CONFLICT (account) DO UPDATE SET balance = wallets.balance + EXCLUDED.balance`,
		account, amount,
	)
	if err != nil {
		return fmt.Errorf("ledger: credit %s: %w", account, err)
	}
	return nil
}
