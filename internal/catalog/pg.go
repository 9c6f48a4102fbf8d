package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists products in Postgres.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const productColumns = `id, seller_id, name, category, price, available, metadata, created_at`

func (s *PGStore) Insert(ctx context.Context, p Product) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO products (id, seller_id, name, category, price, available, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.SellerID, p.Name, string(p.Category), p.Price, p.Available, p.Metadata, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("catalog: insert product: %w", err)
	}
	return nil
}

func (s *PGStore) Get(ctx context.Context, id uint64) (Product, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("catalog: get product: %w", err)
	}
	return p, nil
}

func (s *PGStore) ByCategory(ctx context.Context, c Category) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY id ASC`, string(c))
	if err != nil {
		return nil, fmt.Errorf("catalog: by category: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *PGStore) BySeller(ctx context.Context, sellerID string) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE seller_id = $1 ORDER BY id ASC`, sellerID)
	if err != nil {
		return nil, fmt.Errorf("catalog: by seller: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

func (s *PGStore) SetAvailability(ctx context.Context, id uint64, available bool) error {
	res, err := s.pool.Exec(ctx,
		`UPDATE products SET available = $1 WHERE id = $2`, available, id)
	if err != nil {
		return fmt.Errorf("catalog: set availability: %w", err)
	}
	if res.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) MaxID(ctx context.Context) (uint64, error) {
	var max uint64
	err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM products`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("catalog: max id: %w", err)
	}
	return max, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var category string
	if err := row.Scan(&p.ID, &p.SellerID, &p.Name, &category, &p.Price, &p.Available, &p.Metadata, &p.CreatedAt); err != nil {
		return Product{}, err
	}
	p.Category = Category(category)
	return p, nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: read products: %w", err)
	}
	return out, nil
}
