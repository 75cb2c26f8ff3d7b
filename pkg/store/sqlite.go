package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a Store backed by an SQLite file or in-memory database.
type SQLiteStore struct {
	*sqlStore
}

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// NewSQLite wraps an open database handle.
func NewSQLite(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{sqlStore: &sqlStore{
		db: db,
		d: dialect{
			name:   "sqlite",
			schema: sqliteSchema,
			rebind: questionPlaceholders,
		},
	}}
}

// OpenSQLite opens the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	// Each connection to :memory: is a separate database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", path, err)
	}
	return NewSQLite(db), nil
}
