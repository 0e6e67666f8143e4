package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// PostgresStore keeps the keyspace in a single jsonb table for deployments
// where the storefront state must survive the host. Quota eviction is a
// local-medium concern and does not apply here.
//
// The Store port is synchronous by design, so statements run under a bounded
// background context rather than a caller-supplied one.
type PostgresStore struct {
	db       *sql.DB
	timeout  time.Duration
	notifier notifier
}

// NewPostgresStore creates the kv_entries table if needed and returns the
// store.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("creating kv_entries table: %w", err)
	}

	return &PostgresStore{db: db, timeout: 5 * time.Second}, nil
}

func (s *PostgresStore) Get(key string, dst any) bool {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if err != sql.ErrNoRows {
			slog.Warn("kv read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false
	}
	return true
}

func (s *PostgresStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, raw)
	if err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}

	if signal, ok := signalFor(key); ok {
		s.notifier.broadcast(signal)
	}
	return nil
}

func (s *PostgresStore) Remove(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = $1`, key); err != nil {
		slog.Warn("kv remove failed", "key", key, "error", err)
	}

	if signal, ok := signalFor(key); ok {
		s.notifier.broadcast(signal)
	}
}

func (s *PostgresStore) Subscribe(signal Signal) <-chan struct{} {
	return s.notifier.subscribe(signal)
}
