package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore is a Store backed by PostgreSQL through the pgx driver.
type PostgresStore struct {
	*sqlStore
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{sqlStore: &sqlStore{
		db: db,
		d: dialect{
			name:   "postgres",
			schema: postgresSchema,
			rebind: dollarPlaceholders,
		},
	}}
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return NewPostgres(db), nil
}
