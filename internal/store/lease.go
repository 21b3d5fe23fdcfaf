package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/opsloop/queuectl/internal/model"
)

// lockWaitBudget bounds how long Lease retries against lock contention
// before surfacing a transient Busy error to the caller, per spec §4.2.
const lockWaitBudget = 10 * time.Second

// Lease atomically selects and claims the next eligible job for workerID,
// or returns (nil, nil) if none is eligible. Eligible jobs are those in
// StatePending, or StateScheduled/StateFailed with run_at <= now. The
// eligible set is ordered by (priority DESC, created_at ASC, id ASC), a
// total deterministic order, and the winner is re-read afterward to
// return attempts post-increment.
func (s *Store) Lease(ctx context.Context, workerID string, now time.Time) (*model.Job, error) {
	deadline := time.Now().Add(lockWaitBudget)
	for {
		job, err := s.tryLease(ctx, workerID, now)
		if err == nil {
			return job, nil
		}
		if !errors.Is(err, ErrBusyLocal) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, model.ErrBusy
		}
		jitter := time.Duration(rand.Intn(50)) * time.Millisecond
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(25*time.Millisecond + jitter):
		}
	}
}

func (s *Store) tryLease(ctx context.Context, workerID string, now time.Time) (*model.Job, error) {
	tx, err := s.BeginExclusive(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var id string
	err = tx.tx.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE state = ?
		   OR (state = ? AND run_at <= ?)
		   OR (state = ? AND run_at <= ?)
		ORDER BY priority DESC, created_at ASC, id ASC
		LIMIT 1
	`, string(model.StatePending), string(model.StateScheduled), now, string(model.StateFailed), now).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			if commitErr := tx.Commit(); commitErr != nil {
				return nil, commitErr
			}
			return nil, nil
		}
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %v", ErrBusyLocal, err)
		}
		return nil, fmt.Errorf("select lease candidate: %w", err)
	}

	_, err = tx.tx.ExecContext(ctx, `
		UPDATE jobs
		SET state = ?, worker_id = ?, leased_at = ?, attempts = attempts + 1
		WHERE id = ?
	`, string(model.StateProcessing), workerID, now, id)
	if err != nil {
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %v", ErrBusyLocal, err)
		}
		return nil, fmt.Errorf("claim lease candidate: %w", err)
	}

	row := tx.tx.QueryRowContext(ctx, jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("reread leased job: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isBusy(err) {
			return nil, fmt.Errorf("%w: %v", ErrBusyLocal, err)
		}
		return nil, err
	}
	return job, nil
}

