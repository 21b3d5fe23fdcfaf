package retry

import (
	"testing"
	"time"

	"github.com/opsloop/queuectl/internal/model"
)

func TestDecideSuccess(t *testing.T) {
	d := Decide(model.Outcome{Kind: model.Success}, 1, 3, 2, time.Now())
	if d.NextState != model.StateCompleted {
		t.Fatalf("expected completed, got %s", d.NextState)
	}
	if d.RunAt != nil {
		t.Fatalf("expected no run_at on success, got %v", d.RunAt)
	}
}

func TestDecideFailureWithRetriesRemaining(t *testing.T) {
	now := time.Now()
	d := Decide(model.Outcome{Kind: model.NonZeroExit, ExitCode: 1}, 1, 3, 2, now)
	if d.NextState != model.StateFailed {
		t.Fatalf("expected failed, got %s", d.NextState)
	}
	if d.RunAt == nil {
		t.Fatal("expected a scheduled retry time")
	}
	wantDelay := 2 * time.Second // backoff_base^attempts = 2^1
	if got := d.RunAt.Sub(now); got < wantDelay-time.Millisecond || got > wantDelay+50*time.Millisecond {
		t.Fatalf("unexpected backoff delay: %v", got)
	}
	if d.LastError == "" {
		t.Fatal("expected a non-empty last_error")
	}
}

func TestDecideExhaustedRetriesGoesDead(t *testing.T) {
	// attempts=4 > max_retries=3 per spec §4.3's "attempts > max_retries" check.
	d := Decide(model.Outcome{Kind: model.TimedOut}, 4, 3, 2, time.Now())
	if d.NextState != model.StateDead {
		t.Fatalf("expected dead, got %s", d.NextState)
	}
	if d.RunAt != nil {
		t.Fatalf("dead jobs carry no run_at, got %v", d.RunAt)
	}
}

func TestDecideBackoffBaseOne(t *testing.T) {
	// backoff_base=1 means a constant one-second delay regardless of attempts,
	// matching spec §8 scenario 2's max_retries=2, backoff_base=1 setup.
	now := time.Now()
	d := Decide(model.Outcome{Kind: model.SpawnError, Message: "boom"}, 2, 2, 1, now)
	if d.NextState != model.StateFailed {
		t.Fatalf("attempts(2) is not > max_retries(2); expected failed, got %s", d.NextState)
	}
	if got := d.RunAt.Sub(now); got < 1*time.Second-time.Millisecond || got > 1*time.Second+50*time.Millisecond {
		t.Fatalf("expected ~1s delay with backoff_base=1, got %v", got)
	}
}

func TestDecideSpawnErrorMessagePreserved(t *testing.T) {
	d := Decide(model.Outcome{Kind: model.SpawnError, Message: "exec: \"nope\": not found"}, 0, 3, 2, time.Now())
	if d.LastError != "exec: \"nope\": not found" {
		t.Fatalf("expected spawn error message preserved, got %q", d.LastError)
	}
}
