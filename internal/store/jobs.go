package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/opsloop/queuectl/internal/model"
)

// Insert adds a new job row. It lands in StateScheduled if RunAt is in the
// future, else StatePending, per spec §4.1.
func (s *Store) Insert(ctx context.Context, spec model.JobSpec, maxRetries int, backoffBase float64, now time.Time) error {
	if strings.TrimSpace(spec.ID) == "" || strings.TrimSpace(spec.Command) == "" {
		return model.ErrInvalidSpec
	}
	if spec.TimeoutSeconds < 0 {
		return model.ErrInvalidSpec
	}
	if !model.ValidJobID(spec.ID) {
		return fmt.Errorf("%w: job id %q must not contain path separators", model.ErrInvalidSpec, spec.ID)
	}

	state := model.StatePending
	var runAt *time.Time
	if spec.RunAt != nil && spec.RunAt.After(now) {
		state = model.StateScheduled
		runAt = spec.RunAt
	}

	if spec.MaxRetries != nil {
		maxRetries = *spec.MaxRetries
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, command, state, priority, attempts, max_retries, backoff_base,
			timeout_seconds, run_at, created_at, last_error, worker_id, leased_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?, ?, ?, '', '', NULL)
	`, spec.ID, spec.Command, string(state), spec.Priority, maxRetries, backoffBase,
		spec.TimeoutSeconds, runAt, now)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return model.ErrDuplicate
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get fetches a single job by id.
func (s *Store) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// List returns jobs matching the filter, ordered by the total order used
// for leasing (priority desc, created_at asc, id asc) so listings are
// deterministic and mirror lease order.
func (s *Store) List(ctx context.Context, filter model.Filter) ([]*model.Job, error) {
	query := jobColumns + ` FROM jobs`
	var args []interface{}
	if filter.State != "" {
		query += ` WHERE state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY priority DESC, created_at ASC, id ASC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs per state, for the status admin operation.
func (s *Store) Stats(ctx context.Context) (map[model.State]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT state, COUNT(*) FROM jobs GROUP BY state`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[model.State]int)
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("scan job stats: %w", err)
		}
		stats[model.State(state)] = count
	}
	return stats, rows.Err()
}

// UpdateOutcome applies the retry policy's decision to a job row,
// transitioning it out of StateProcessing. It fails with StateMismatch if
// the row is no longer in StateProcessing with the given workerID, which
// makes the call idempotent against duplicate delivery: a second
// application finds the row already moved and is a no-op error, not a
// double-applied transition.
func (s *Store) UpdateOutcome(ctx context.Context, id, workerID string, newState model.State, runAt *time.Time, lastError string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET state = ?, run_at = ?, last_error = ?, worker_id = '', leased_at = NULL
		WHERE id = ? AND worker_id = ? AND state = ?
	`, string(newState), runAt, model.TruncateError(lastError), id, workerID, string(model.StateProcessing))
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update outcome rows affected: %w", err)
	}
	if n == 0 {
		exists, err := s.Get(ctx, id)
		if err != nil {
			return model.ErrNotFound
		}
		_ = exists
		return model.ErrStateMismatch
	}
	return nil
}

const jobColumns = `SELECT id, command, state, priority, attempts, max_retries, backoff_base,
	timeout_seconds, run_at, created_at, last_error, worker_id, leased_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var job model.Job
	var state string
	var runAt, leasedAt sql.NullTime
	if err := row.Scan(
		&job.ID, &job.Command, &state, &job.Priority, &job.Attempts, &job.MaxRetries, &job.BackoffBase,
		&job.TimeoutSeconds, &runAt, &job.CreatedAt, &job.LastError, &job.WorkerID, &leasedAt,
	); err != nil {
		return nil, err
	}
	job.State = model.State(state)
	if runAt.Valid {
		t := runAt.Time
		job.RunAt = &t
	}
	if leasedAt.Valid {
		t := leasedAt.Time
		job.LeasedAt = &t
	}
	return &job, nil
}
