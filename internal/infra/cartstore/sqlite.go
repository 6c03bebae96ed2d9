// Package cartstore implements port.CartStorage: a durable string KV partitioned by
// client scope, standing in for browser local storage.
package cartstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS client_kv (
	scope      TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (scope, key)
)`

// SQLite stores cart values in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the database at path. Use ":memory:" for tests.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cart database: %w", err)
	}

	// One writer; also keeps a ":memory:" database alive on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply cart schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get returns the stored value and whether it exists.
func (s *SQLite) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM client_kv WHERE scope = ? AND key = ?", scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cart get: %w", err)
	}
	return value, true, nil
}

// Set replaces the value under (scope, key).
func (s *SQLite) Set(ctx context.Context, scope, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO client_kv (scope, key, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("cart set: %w", err)
	}
	return nil
}

// Delete removes the value; deleting a missing key is not an error.
func (s *SQLite) Delete(ctx context.Context, scope, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM client_kv WHERE scope = ? AND key = ?", scope, key); err != nil {
		return fmt.Errorf("cart delete: %w", err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
