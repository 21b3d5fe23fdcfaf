package store

import (
	"context"
	"fmt"

	"github.com/opsloop/queuectl/internal/model"
)

// RetryDead moves a dead job back to pending, resetting attempts and
// clearing last_error, per the dead -> pending transition in spec §4.4.
func (s *Store) RetryDead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = ?, attempts = 0, last_error = '', run_at = NULL
		WHERE id = ? AND state = ?
	`, string(model.StatePending), id, string(model.StateDead))
	if err != nil {
		return fmt.Errorf("retry dead job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("retry dead job rows affected: %w", err)
	}
	if n == 0 {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return model.ErrNotFound
		}
		return model.ErrStateMismatch
	}
	return nil
}

// Purge deletes every job in StateDead, returning the count removed.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE state = ?`, string(model.StateDead))
	if err != nil {
		return 0, fmt.Errorf("purge dlq: %w", err)
	}
	return res.RowsAffected()
}
