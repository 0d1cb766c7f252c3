package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB holds the database connection pool and queries
type DB struct {
	Pool    *pgxpool.Pool
	Queries *Queries
}

// NewDB connects to dbURL and makes sure the schema exists.
func NewDB(ctx context.Context, dbURL string) (*DB, error) {
	if dbURL == "" {
		return nil, fmt.Errorf("database URL not set")
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	database := &DB{
		Pool:    pool,
		Queries: New(pool),
	}
	if err := database.Queries.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return database, nil
}

// Close closes the database connection
func (db *DB) Close() {
	db.Pool.Close()
}
