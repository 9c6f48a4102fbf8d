package reputation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PG stores reputation tallies in Postgres. The credit is a single
// upsert returning the new total, so concurrent credits never lose
// updates.
type PG struct {
	pool     *pgxpool.Pool
	notifier Notifier
}

func NewPG(pool *pgxpool.Pool, notifier Notifier) *PG {
	return &PG{pool: pool, notifier: notifier}
}

func (p *PG) Credit(ctx context.Context, userID string, points int64) error {
	if points <= 0 {
		return ErrInvalidPoints
	}
	var total int64
	err := p.pool.QueryRow(ctx,
		`INSERT INTO reputation (user_id, points) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET points = reputation.points + EXCLUDED.points
		 RETURNING points`,
		userID, points,
	).Scan(&total)
	if err != nil {
		return fmt.Errorf("reputation: credit %s: %w", userID, err)
	}

	if p.notifier != nil {
		p.notifier.ReputationUpdated(userID, total, points)
	}
	return nil
}

func (p *PG) Score(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := p.pool.QueryRow(ctx,
		`SELECT points FROM reputation WHERE user_id = $1`, userID,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reputation: score %s: %w", userID, err)
	}
	return total, nil
}
