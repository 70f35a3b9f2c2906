// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package credential

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ManuGH/tmbridge/internal/persistence/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	k TEXT PRIMARY KEY,
	v TEXT NOT NULL
)`

// SqliteStore keeps the credential in a key/value table.
type SqliteStore struct {
	db *sql.DB
}

func OpenSqliteStore(ctx context.Context, path string) (*SqliteStore, error) {
	db, err := sqlite.Open(ctx, path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Get(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = ?`, Key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlite: get credential: %w", err)
	}
	return v, nil
}

func (s *SqliteStore) Set(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v = excluded.v`,
		Key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set credential: %w", err)
	}
	return nil
}

func (s *SqliteStore) Close() error { return s.db.Close() }
