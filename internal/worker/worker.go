// Package worker implements the single-threaded lease/execute/retry loop
// run by each worker process.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/opsloop/queuectl/internal/executor"
	"github.com/opsloop/queuectl/internal/metrics"
	"github.com/opsloop/queuectl/internal/model"
	"github.com/opsloop/queuectl/internal/retry"
	"github.com/opsloop/queuectl/internal/store"
)

// pollInterval is how long the loop sleeps between lease attempts when no
// job was eligible, honoring cancellation per spec §4.6.
const pollInterval = 500 * time.Millisecond

// Worker owns a stable identity and repeatedly leases, executes, and
// finalizes jobs until ctx is canceled.
type Worker struct {
	ID      string
	Store   *store.Store
	LogDir  string
	Logger  *slog.Logger
}

// New constructs a Worker with the given identity.
func New(id string, st *store.Store, logDir string, logger *slog.Logger) *Worker {
	return &Worker{ID: id, Store: st, LogDir: logDir, Logger: logger}
}

// Run executes the loop described in spec §4.6 until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	w.Logger.Info("worker starting", "worker_id", w.ID)
	for {
		if ctx.Err() != nil {
			w.Logger.Info("worker stopping", "worker_id", w.ID)
			return
		}

		job, err := w.Store.Lease(ctx, w.ID, time.Now())
		if err != nil {
			w.Logger.Error("lease failed", "worker_id", w.ID, "error", err)
			if !w.sleep(ctx) {
				return
			}
			continue
		}
		if job == nil {
			if !w.sleep(ctx) {
				return
			}
			continue
		}

		metrics.RecordLease()
		w.process(job)
	}
}

// outcomeCommitTimeout bounds the detached write that persists an
// attempt's outcome. It must not be tied to the worker's own ctx: a
// gracefully shutting-down worker has already canceled ctx by the time
// its in-flight attempt finishes, and that write still has to land.
const outcomeCommitTimeout = 10 * time.Second

func (w *Worker) process(job *model.Job) {
	logger := w.Logger.With("worker_id", w.ID, "job_id", job.ID, "attempt", job.Attempts)
	logger.Info("processing job", "command", job.Command)

	// No cancel channel is wired to ctx here: a graceful shutdown (ctx
	// canceled) must let the current attempt run to completion per spec
	// §4.6, bounded by the supervisor's shutdown timeout rather than the
	// executor's own hard-cancel grace. Forced escalation past that
	// timeout is a SIGKILL of this whole process, which the executor's
	// child process group dies with regardless of this channel.
	done := make(chan model.Outcome, 1)
	started := time.Now()
	go func() {
		done <- executor.Run(job, w.LogDir, nil)
	}()
	outcome := <-done

	decision := retry.Decide(outcome, job.Attempts, job.MaxRetries, job.BackoffBase, time.Now())
	metrics.RecordAttempt(outcome.Kind.String(), time.Since(started), decision.NextState == model.StateDead)

	commitCtx, commitCancel := context.WithTimeout(context.Background(), outcomeCommitTimeout)
	defer commitCancel()
	if err := w.Store.UpdateOutcome(commitCtx, job.ID, w.ID, decision.NextState, decision.RunAt, decision.LastError); err != nil {
		logger.Error("failed to record outcome", "error", err, "outcome", outcome.Kind.String())
		return
	}

	if decision.NextState == model.StateCompleted {
		logger.Info("job completed")
	} else {
		logger.Warn("job attempt failed", "next_state", decision.NextState, "outcome", outcome.Kind.String())
	}
}

func (w *Worker) sleep(ctx context.Context) bool {
	timer := time.NewTimer(pollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
