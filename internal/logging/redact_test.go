package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	handler := newRedactingHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return slog.New(handler)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode log line: %v\n%s", err, buf.String())
	}
	return out
}

func TestRedactsKnownSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.Info("job failed", "stdout", "super secret output", "stderr", "boom", "last_error", "exit 1", "command", "curl -H 'x'")

	line := decodeLine(t, &buf)
	for _, key := range []string{"stdout", "stderr", "last_error", "command"} {
		if line[key] != redactedValue {
			t.Fatalf("expected %s to be redacted, got %v", key, line[key])
		}
	}
}

func TestRedactsFragmentMatchedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.Info("config set", "api_key", "abc123", "db_password", "hunter2", "auth_token", "xyz")

	line := decodeLine(t, &buf)
	for _, key := range []string{"api_key", "db_password", "auth_token"} {
		if line[key] != redactedValue {
			t.Fatalf("expected %s to be redacted, got %v", key, line[key])
		}
	}
}

func TestNonSensitiveAttrsPassThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.Info("job leased", "job_id", "job-1", "worker_id", "worker-a", "attempt", 2)

	line := decodeLine(t, &buf)
	if line["job_id"] != "job-1" || line["worker_id"] != "worker-a" {
		t.Fatalf("expected non-sensitive attrs preserved, got %v", line)
	}
	if line["attempt"] != float64(2) {
		t.Fatalf("expected attempt=2 preserved, got %v", line["attempt"])
	}
}

func TestRedactsWithAttrsChain(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf).With("last_error", "leaked on attach")
	logger.Info("retry scheduled")

	line := decodeLine(t, &buf)
	if line["last_error"] != redactedValue {
		t.Fatalf("expected last_error attached via With to be redacted, got %v", line["last_error"])
	}
}

func TestRedactsNestedGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf)
	logger.Info("outcome recorded", slog.Group("outcome", slog.String("stdout", "secret output"), slog.Int("exit_code", 1)))

	line := decodeLine(t, &buf)
	group, ok := line["outcome"].(map[string]any)
	if !ok {
		t.Fatalf("expected outcome group in output, got %v", line)
	}
	if group["stdout"] != redactedValue {
		t.Fatalf("expected nested stdout redacted, got %v", group["stdout"])
	}
	if group["exit_code"] != float64(1) {
		t.Fatalf("expected exit_code preserved, got %v", group["exit_code"])
	}
}
