// Package admin is the thin operations surface between a CLI (or any other
// front-end) and the store: enqueue, list, DLQ retry/purge, config get/set,
// status. Kept independent of cobra so it is directly testable without
// constructing a command tree, per SPEC_FULL.md §4.8.
package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/opsloop/queuectl/internal/model"
	"github.com/opsloop/queuectl/internal/store"
	"github.com/opsloop/queuectl/internal/supervisor"
)

// Admin wraps a Store and the operator-configured directories admin
// operations read from (logs) or report on (liveness file).
type Admin struct {
	Store      *store.Store
	LogDir     string
	LivenessPath string
}

// New constructs an Admin over an already-open store.
func New(st *store.Store, logDir, livenessPath string) *Admin {
	return &Admin{Store: st, LogDir: logDir, LivenessPath: livenessPath}
}

// Enqueue inserts a job, resolving max_retries and backoff_base from the
// config table's defaults unless the spec overrides max_retries. Per
// spec §4.3, both are snapshotted onto the row at this point.
func (a *Admin) Enqueue(ctx context.Context, spec model.JobSpec) error {
	maxRetries, err := a.Store.MaxRetriesDefault(ctx)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	backoffBase, err := a.Store.BackoffBaseDefault(ctx)
	if err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return a.Store.Insert(ctx, spec, maxRetries, backoffBase, time.Now())
}

// List returns jobs matching filter.
func (a *Admin) List(ctx context.Context, filter model.Filter) ([]*model.Job, error) {
	return a.Store.List(ctx, filter)
}

// DLQList returns every job currently in StateDead.
func (a *Admin) DLQList(ctx context.Context) ([]*model.Job, error) {
	return a.Store.List(ctx, model.Filter{State: model.StateDead})
}

// DLQRetry moves a dead job back to pending. Fails with ErrStateMismatch
// if the job is not dead, per spec §8's testable property.
func (a *Admin) DLQRetry(ctx context.Context, id string) error {
	return a.Store.RetryDead(ctx, id)
}

// DLQPurge deletes every dead job, returning the count removed.
func (a *Admin) DLQPurge(ctx context.Context) (int64, error) {
	return a.Store.Purge(ctx)
}

// ConfigGet reads a recognized config key.
func (a *Admin) ConfigGet(ctx context.Context, key string) (string, bool, error) {
	if !isRecognizedConfigKey(key) {
		return "", false, fmt.Errorf("%w: unrecognized config key %q", model.ErrInvalidSpec, key)
	}
	return a.Store.ConfigGet(ctx, key)
}

// ConfigSet writes a recognized config key. Only future enqueues observe
// the new value; already-enqueued jobs keep their snapshot per spec §4.3.
func (a *Admin) ConfigSet(ctx context.Context, key, value string) error {
	if !isRecognizedConfigKey(key) {
		return fmt.Errorf("%w: unrecognized config key %q", model.ErrInvalidSpec, key)
	}
	if err := validateConfigValue(key, value); err != nil {
		return err
	}
	return a.Store.ConfigSet(ctx, key, value)
}

func isRecognizedConfigKey(key string) bool {
	return key == "max_retries" || key == "backoff_base"
}

// validateConfigValue rejects a value that Store.MaxRetriesDefault or
// Store.BackoffBaseDefault would fail to parse later, so a typo at `config
// set` time doesn't silently break every future enqueue.
func validateConfigValue(key, value string) error {
	switch key {
	case "max_retries":
		if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("%w: max_retries must be an integer, got %q", model.ErrInvalidSpec, value)
		}
	case "backoff_base":
		if _, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err != nil {
			return fmt.Errorf("%w: backoff_base must be a number, got %q", model.ErrInvalidSpec, value)
		}
	}
	return nil
}

// Status summarizes job counts by state and the PIDs of a supervised
// fleet, if one is running.
type Status struct {
	Counts      map[model.State]int
	WorkerPIDs  []int
	FleetActive bool
}

// Status reports job counts by state and the liveness file's contents.
func (a *Admin) Status(ctx context.Context) (*Status, error) {
	counts, err := a.Store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	pids, err := supervisor.ReadPIDs(a.LivenessPath)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	return &Status{Counts: counts, WorkerPIDs: pids, FleetActive: len(pids) > 0}, nil
}

// Logs returns the captured stdout (or stderr, if stderr is true) for a
// job's most recent attempt.
func (a *Admin) Logs(id string, stderr bool) ([]byte, error) {
	if !model.ValidJobID(id) {
		return nil, fmt.Errorf("%w: no captured output for job %q", model.ErrNotFound, id)
	}
	name := id + ".out.log"
	if stderr {
		name = id + ".err.log"
	}
	data, err := os.ReadFile(filepath.Join(a.LogDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no captured output for job %q", model.ErrNotFound, id)
		}
		return nil, fmt.Errorf("logs: %w", err)
	}
	return data, nil
}
