package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ConfigGet reads a key from the config table, grounded on
// original_source/queuectl's database.py get_config.
func (s *Store) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("config get: %w", err)
	}
	return value, true, nil
}

// ConfigSet upserts a key in the config table.
func (s *Store) ConfigSet(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("config set: %w", err)
	}
	return nil
}

// MaxRetriesDefault returns the configured default, or 3 if the key is
// absent (Open seeds it; this function does not write it).
func (s *Store) MaxRetriesDefault(ctx context.Context) (int, error) {
	value, ok, err := s.ConfigGet(ctx, "max_retries")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 3, nil
	}
	var n int
	if _, err := fmt.Sscanf(value, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse max_retries config: %w", err)
	}
	return n, nil
}

// BackoffBaseDefault returns the configured default backoff base.
func (s *Store) BackoffBaseDefault(ctx context.Context) (float64, error) {
	value, ok, err := s.ConfigGet(ctx, "backoff_base")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 2, nil
	}
	var f float64
	if _, err := fmt.Sscanf(value, "%g", &f); err != nil {
		return 0, fmt.Errorf("parse backoff_base config: %w", err)
	}
	return f, nil
}
