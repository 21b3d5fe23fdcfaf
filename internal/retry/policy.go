// Package retry implements the pure decision function mapping an attempt's
// outcome to the job's next state and run time, independent of the store.
package retry

import (
	"fmt"
	"math"
	"time"

	"github.com/opsloop/queuectl/internal/model"
)

// Decision is the result of applying the retry policy to a finished attempt.
type Decision struct {
	NextState model.State
	RunAt     *time.Time // nil unless NextState == StateFailed
	LastError string     // empty on success
}

// Decide implements spec §4.3: success clears the job; any failure either
// becomes dead (attempts exceeds maxRetries) or failed-with-backoff.
// attempts is the job's attempts counter as already incremented by the
// lease operation for the attempt just finished.
func Decide(outcome model.Outcome, attempts, maxRetries int, backoffBase float64, now time.Time) Decision {
	if outcome.Kind == model.Success {
		return Decision{NextState: model.StateCompleted}
	}

	lastError := describe(outcome)

	if attempts > maxRetries {
		return Decision{NextState: model.StateDead, LastError: lastError}
	}

	delay := time.Duration(math.Pow(backoffBase, float64(attempts))) * time.Second
	runAt := now.Add(delay)
	return Decision{NextState: model.StateFailed, RunAt: &runAt, LastError: lastError}
}

func describe(outcome model.Outcome) string {
	switch outcome.Kind {
	case model.NonZeroExit:
		return fmt.Sprintf("command exited with status %d", outcome.ExitCode)
	case model.TimedOut:
		return "attempt exceeded its timeout"
	case model.SpawnError:
		return outcome.Message
	default:
		return outcome.Message
	}
}
