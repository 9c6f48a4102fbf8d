package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and ensures the schema.
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	EnsureSchema(Conn)
}

// EnsureSchema creates any missing tables and indexes. Idempotent.
func EnsureSchema(pool *pgxpool.Pool) {
	ensureUsersTable(pool)
	ensureLedgerTables(pool)
	ensureProductsTable(pool)
	ensureOrdersTable(pool)
	ensureReputationTable(pool)
}

func ensureUsersTable(pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'buyer' CHECK (role IN ('buyer', 'seller', 'admin')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		log.Printf("failed to ensure users table: %v", err)
	}
}

func ensureLedgerTables(pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS wallets (
			account TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
		)`)
	if err != nil {
		log.Printf("failed to ensure wallets table: %v", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS allowances (
			owner TEXT NOT NULL,
			spender TEXT NOT NULL,
			amount BIGINT NOT NULL DEFAULT 0 CHECK (amount >= 0),
			PRIMARY KEY (owner, spender)
		)`)
	if err != nil {
		log.Printf("failed to ensure allowances table: %v", err)
	}
}

func ensureProductsTable(pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			seller_id TEXT NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL CHECK (category IN ('grains', 'crafts', 'fashion', 'home-decor')),
			price BIGINT NOT NULL CHECK (price > 0),
			available BOOLEAN NOT NULL DEFAULT TRUE,
			metadata TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_products_category ON products(category, id);
		CREATE INDEX IF NOT EXISTS idx_products_seller ON products(seller_id, id);
	`)
	if err != nil {
		log.Printf("failed to ensure products table: %v", err)
	}
}

func ensureOrdersTable(pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id BIGINT PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES products(id),
			buyer_id TEXT NOT NULL,
			seller_id TEXT NOT NULL,
			amount BIGINT NOT NULL CHECK (amount > 0),
			confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			released BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			settled_at TIMESTAMP WITH TIME ZONE NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_buyer ON orders(buyer_id);
		CREATE INDEX IF NOT EXISTS idx_orders_seller ON orders(seller_id);
	`)
	if err != nil {
		log.Printf("failed to ensure orders table: %v", err)
	}
}

func ensureReputationTable(pool *pgxpool.Pool) {
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS reputation (
			user_id TEXT PRIMARY KEY,
			points BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0)
		)`)
	if err != nil {
		log.Printf("failed to ensure reputation table: %v", err)
	}
}
