// Package executor runs a job's command as a child process under a system
// shell, captures its output to per-job log files, and enforces a timeout
// and cooperative cancellation by polling rather than blocking.
package executor

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/opsloop/queuectl/internal/model"
)

// pollInterval bounds how quickly a timeout or cancellation is noticed,
// per spec §4.5 ("the poll cadence bounds cancellation latency").
const pollInterval = 200 * time.Millisecond

// cancelGrace is how long Run keeps polling after cancellation is
// signaled before giving up and returning Cancelled, per spec §4.5.
const cancelGrace = 2 * time.Second

// Run executes job's command, redirecting stdout/stderr to
// <logDir>/<id>.out.log and <logDir>/<id>.err.log (truncated for this
// attempt), and returns the resulting Outcome. cancel is a forced-escalation
// signal only; a graceful worker shutdown must not close it, since spec §4.6
// requires the current attempt to run to completion in that case.
func Run(job *model.Job, logDir string, cancel <-chan struct{}) model.Outcome {
	outPath := filepath.Join(logDir, job.ID+".out.log")
	errPath := filepath.Join(logDir, job.ID+".err.log")

	outFile, err := os.Create(outPath)
	if err != nil {
		return model.Outcome{Kind: model.SpawnError, Message: fmt.Sprintf("open stdout sink: %v", err)}
	}
	defer outFile.Close()

	errFile, err := os.Create(errPath)
	if err != nil {
		return model.Outcome{Kind: model.SpawnError, Message: fmt.Sprintf("open stderr sink: %v", err)}
	}
	defer errFile.Close()

	cmd := shellCommand(job.Command)
	cmd.Stdout = outFile
	cmd.Stderr = errFile
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return model.Outcome{Kind: model.SpawnError, Message: fmt.Sprintf("spawn command: %v", err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var deadline <-chan time.Time
	if job.TimeoutSeconds > 0 {
		timer := time.NewTimer(time.Duration(job.TimeoutSeconds) * time.Second)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var cancelDeadline <-chan time.Time
	for {
		select {
		case err := <-done:
			if err == nil {
				return model.Outcome{Kind: model.Success}
			}
			if exitErr, ok := err.(*exec.ExitError); ok {
				return model.Outcome{Kind: model.NonZeroExit, ExitCode: exitErr.ExitCode()}
			}
			return model.Outcome{Kind: model.NonZeroExit, ExitCode: -1, Message: err.Error()}

		case <-deadline:
			terminateProcessGroup(cmd)
			<-done
			return model.Outcome{Kind: model.TimedOut, Message: fmt.Sprintf("exceeded %ds timeout", job.TimeoutSeconds)}

		case <-cancelDeadline:
			terminateProcessGroup(cmd)
			return model.Outcome{Kind: model.Cancelled}

		case <-cancel:
			timer := time.NewTimer(cancelGrace)
			defer timer.Stop()
			cancelDeadline = timer.C
			cancel = nil // already observed; disable this case for the rest of the loop

		case <-ticker.C:
			// wake up to re-check the select; all real signals are
			// delivered through the other channels above.
		}
	}
}

func shellCommand(command string) *exec.Cmd {
	if isWindows() {
		return exec.Command("cmd", "/C", command)
	}
	return exec.Command("sh", "-c", command)
}
