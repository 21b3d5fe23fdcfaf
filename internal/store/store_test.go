package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsloop/queuectl/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	st, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestInsertAndGet(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, model.JobSpec{ID: "job-1", Command: "echo hi"}, 3, 2, now); err != nil {
		t.Fatalf("insert: %v", err)
	}

	job, err := st.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.State != model.StatePending {
		t.Fatalf("expected pending, got %s", job.State)
	}
	if job.MaxRetries != 3 || job.BackoffBase != 2 {
		t.Fatalf("expected snapshotted max_retries=3 backoff_base=2, got %d/%v", job.MaxRetries, job.BackoffBase)
	}
}

func TestInsertFutureRunAtIsScheduled(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	runAt := now.Add(5 * time.Minute)

	if err := st.Insert(ctx, model.JobSpec{ID: "sched", Command: "echo x", RunAt: &runAt}, 3, 2, now); err != nil {
		t.Fatalf("insert: %v", err)
	}
	job, err := st.Get(ctx, "sched")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if job.State != model.StateScheduled {
		t.Fatalf("expected scheduled, got %s", job.State)
	}
}

func TestInsertDuplicateID(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	spec := model.JobSpec{ID: "dup", Command: "echo hi"}

	if err := st.Insert(ctx, spec, 3, 2, now); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if err := st.Insert(ctx, spec, 3, 2, now); !errors.Is(err, model.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestInsertInvalidSpec(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	cases := []model.JobSpec{
		{ID: "", Command: "echo hi"},
		{ID: "x", Command: ""},
		{ID: "y", Command: "echo hi", TimeoutSeconds: -1},
		{ID: "../../etc/passwd", Command: "echo hi"},
		{ID: "a/b", Command: "echo hi"},
	}
	for _, spec := range cases {
		if err := st.Insert(ctx, spec, 3, 2, now); !errors.Is(err, model.ErrInvalidSpec) {
			t.Fatalf("spec %+v: expected ErrInvalidSpec, got %v", spec, err)
		}
	}
}

func TestLeaseOrdering(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Now()

	// (id, priority) per spec §8 scenario 4: low/1, high/10, mid/5.
	if err := st.Insert(ctx, model.JobSpec{ID: "low", Command: "sleep 1", Priority: 1}, 3, 2, base); err != nil {
		t.Fatal(err)
	}
	if err := st.Insert(ctx, model.JobSpec{ID: "high", Command: "sleep 1", Priority: 10}, 3, 2, base.Add(time.Millisecond)); err != nil {
		t.Fatal(err)
	}
	if err := st.Insert(ctx, model.JobSpec{ID: "mid", Command: "sleep 1", Priority: 5}, 3, 2, base.Add(2*time.Millisecond)); err != nil {
		t.Fatal(err)
	}

	first, err := st.Lease(ctx, "w1", time.Now())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if first == nil || first.ID != "high" {
		t.Fatalf("expected high priority job leased first, got %+v", first)
	}

	second, err := st.Lease(ctx, "w2", time.Now())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if second == nil || second.ID != "mid" {
		t.Fatalf("expected mid priority job leased second, got %+v", second)
	}

	third, err := st.Lease(ctx, "w3", time.Now())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if third == nil || third.ID != "low" {
		t.Fatalf("expected low priority job leased third, got %+v", third)
	}

	none, err := st.Lease(ctx, "w4", time.Now())
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if none != nil {
		t.Fatalf("expected no more eligible jobs, got %+v", none)
	}
}

func TestLeaseSetsWorkerAndIncrementsAttempts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, model.JobSpec{ID: "job-1", Command: "echo hi"}, 3, 2, now); err != nil {
		t.Fatal(err)
	}
	job, err := st.Lease(ctx, "worker-a", now)
	if err != nil {
		t.Fatalf("lease: %v", err)
	}
	if job.State != model.StateProcessing {
		t.Fatalf("expected processing, got %s", job.State)
	}
	if job.WorkerID != "worker-a" {
		t.Fatalf("expected worker-a, got %s", job.WorkerID)
	}
	if job.Attempts != 1 {
		t.Fatalf("expected attempts=1, got %d", job.Attempts)
	}
	if job.LeasedAt == nil {
		t.Fatal("expected leased_at to be set")
	}
}

func TestUpdateOutcomeIdempotence(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, model.JobSpec{ID: "job-1", Command: "echo hi"}, 3, 2, now); err != nil {
		t.Fatal(err)
	}
	job, err := st.Lease(ctx, "worker-a", now)
	if err != nil || job == nil {
		t.Fatalf("lease: %v", err)
	}

	if err := st.UpdateOutcome(ctx, job.ID, "worker-a", model.StateCompleted, nil, ""); err != nil {
		t.Fatalf("first update_outcome: %v", err)
	}

	// Duplicate delivery of the same outcome must be a no-op error, not a
	// second applied transition, per spec §8.
	if err := st.UpdateOutcome(ctx, job.ID, "worker-a", model.StateCompleted, nil, ""); !errors.Is(err, model.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch on duplicate delivery, got %v", err)
	}

	got, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.StateCompleted {
		t.Fatalf("expected completed, got %s", got.State)
	}
	if got.WorkerID != "" || got.LeasedAt != nil {
		t.Fatalf("expected worker_id/leased_at cleared, got %q/%v", got.WorkerID, got.LeasedAt)
	}
}

func TestConfigGetSetRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if err := st.ConfigSet(ctx, "max_retries", "7"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	value, ok, err := st.ConfigGet(ctx, "max_retries")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if !ok || value != "7" {
		t.Fatalf("expected 7, got %q (ok=%v)", value, ok)
	}
}

func TestConfigDefaultsSeeded(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	n, err := st.MaxRetriesDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("expected default max_retries=3, got %d", n)
	}
	b, err := st.BackoffBaseDefault(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if b != 2 {
		t.Fatalf("expected default backoff_base=2, got %v", b)
	}
}

func TestRetryDeadRequiresDeadState(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, model.JobSpec{ID: "job-1", Command: "echo hi"}, 3, 2, now); err != nil {
		t.Fatal(err)
	}
	if err := st.RetryDead(ctx, "job-1"); !errors.Is(err, model.ErrStateMismatch) {
		t.Fatalf("expected ErrStateMismatch retrying a pending job, got %v", err)
	}
}

func TestRetryDeadResetsAttempts(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, model.JobSpec{ID: "job-1", Command: "echo hi"}, 0, 2, now); err != nil {
		t.Fatal(err)
	}
	job, err := st.Lease(ctx, "worker-a", now)
	if err != nil || job == nil {
		t.Fatalf("lease: %v", err)
	}
	if err := st.UpdateOutcome(ctx, job.ID, "worker-a", model.StateDead, nil, "boom"); err != nil {
		t.Fatalf("update_outcome: %v", err)
	}

	if err := st.RetryDead(ctx, job.ID); err != nil {
		t.Fatalf("retry dead: %v", err)
	}
	got, err := st.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != model.StatePending || got.Attempts != 0 || got.LastError != "" {
		t.Fatalf("expected reset pending job, got %+v", got)
	}
}

func TestPurgeRemovesOnlyDead(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := st.Insert(ctx, model.JobSpec{ID: "alive", Command: "echo hi"}, 3, 2, now); err != nil {
		t.Fatal(err)
	}
	// Higher priority so the lease below claims dead-1; at equal priority
	// and created_at the id-ASC tiebreak would pick "alive" instead.
	if err := st.Insert(ctx, model.JobSpec{ID: "dead-1", Command: "echo hi", Priority: 1}, 0, 2, now); err != nil {
		t.Fatal(err)
	}
	job, err := st.Lease(ctx, "worker-a", now)
	if err != nil || job == nil {
		t.Fatalf("lease: %v", err)
	}
	if err := st.UpdateOutcome(ctx, job.ID, "worker-a", model.StateDead, nil, "boom"); err != nil {
		t.Fatal(err)
	}

	n, err := st.Purge(ctx)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	if _, err := st.Get(ctx, "alive"); err != nil {
		t.Fatalf("expected alive job to survive purge: %v", err)
	}
	if _, err := st.Get(ctx, "dead-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected dead job gone, got %v", err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")

	st1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	if err := st1.Insert(context.Background(), model.JobSpec{ID: "job-1", Command: "echo hi"}, 3, 2, time.Now()); err != nil {
		t.Fatal(err)
	}
	st1.Close()

	st2, err := Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer st2.Close()

	job, err := st2.Get(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("expected prior data to survive reopen: %v", err)
	}
	if job.ID != "job-1" {
		t.Fatalf("unexpected job: %+v", job)
	}
}

func TestListFilterByState(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	for _, id := range []string{"a", "b", "c"} {
		if err := st.Insert(ctx, model.JobSpec{ID: id, Command: "echo hi"}, 3, 2, now); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := st.Lease(ctx, "worker-a", now); err != nil {
		t.Fatal(err)
	}

	pending, err := st.List(ctx, model.Filter{State: model.StatePending})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending jobs, got %d", len(pending))
	}

	processing, err := st.List(ctx, model.Filter{State: model.StateProcessing})
	if err != nil {
		t.Fatal(err)
	}
	if len(processing) != 1 {
		t.Fatalf("expected 1 processing job, got %d", len(processing))
	}
}
