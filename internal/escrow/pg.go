package escrow

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists orders in Postgres. Settle uses a conditional update
// on released = FALSE so the flip can only ever happen once, even if a
// second process reaches the same order.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const orderColumns = `id, product_id, buyer_id, seller_id, amount, confirmed, released, created_at`

func (s *PGStore) Insert(ctx context.Context, o Order) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, product_id, buyer_id, seller_id, amount, confirmed, released, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		o.ID, o.ProductID, o.BuyerID, o.SellerID, o.Amount, o.Confirmed, o.Released, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("escrow: insert order: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id uint64) (Order, error) {
	var o Order
	err := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.ProductID, &o.BuyerID, &o.SellerID, &o.Amount, &o.Confirmed, &o.Released, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("escrow: get order: %w", err)
	}
	return o, nil
}

func (s *PGStore) ByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
		 WHERE buyer_id = $1 OR seller_id = $1 ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("escrow: orders by user: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.ProductID, &o.BuyerID, &o.SellerID, &o.Amount, &o.Confirmed, &o.Released, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("escrow: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("escrow: read orders: %w", err)
	}
	return out, nil
}

func (s *PGStore) Settle(ctx context.Context, id uint64, confirmed bool) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE orders SET released = TRUE, confirmed = $2, settled_at = NOW()
		 WHERE id = $1 AND released = FALSE`,
		id, confirmed,
	)
	if err != nil {
		return fmt.Errorf("escrow: settle order: %w", err)
	}
	if res.RowsAffected() == 0 {
		// Either the order is unknown or the flip already happened.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ErrAlreadySettled
	}
	return nil
}

func (s *PGStore) MaxID(ctx context.Context) (uint64, error) {
	var max uint64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM orders`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("escrow: max id: %w", err)
	}
	return max, nil
}

func (s *PGStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE NOT released),
		        COUNT(*) FILTER (WHERE released AND confirmed),
		        COUNT(*) FILTER (WHERE released AND NOT confirmed)
		 FROM orders`,
	).Scan(&st.Total, &st.Held, &st.ConfirmedReleased, &st.TimeoutReleased)
	if err != nil {
		return Stats{}, fmt.Errorf("escrow: stats: %w", err)
	}
	return st, nil
}
