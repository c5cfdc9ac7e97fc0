package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

// Open opens (or creates) the sqlite database at `path` and applies the
// schema, ":memory:" opens a private in-memory database.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite serializes writers and every :memory: connection is its own database
	database.SetMaxOpenConns(1)

	_, err = database.ExecContext(ctx, "pragma busy_timeout = 5000")
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("open db: %w", err)
	}
	_, err = database.ExecContext(ctx, Schema)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return database, nil
}
