package auth

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// EnsureAdmin creates (or finds) the marketplace administrator from
// ADMIN_EMAIL / ADMIN_PASSWORD and returns its user id. The settlement
// engine pins this identity at construction: only it may change the
// delivery timeout.
func EnsureAdmin(ctx context.Context, pool *pgxpool.Pool) (string, error) {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "admin@marketbay.local"
	}

	var id string
	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&id)
	if err == nil {
		// Promote in place if the row predates the admin role.
		if _, err := pool.Exec(ctx, `UPDATE users SET role = 'admin' WHERE id = $1`, id); err != nil {
			return "", fmt.Errorf("auth: promote admin: %w", err)
		}
		return id, nil
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		return "", fmt.Errorf("auth: ADMIN_PASSWORD required to bootstrap %s", email)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash admin password: %w", err)
	}

	id = uuid.New().String()
	_, err = pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password, role, created_at)
		VALUES ($1, 'Marketplace Admin', $2, $3, 'admin', $4)
	`, id, email, string(hashed), time.Now())
	if err != nil {
		return "", fmt.Errorf("auth: create admin: %w", err)
	}
	return id, nil
}
