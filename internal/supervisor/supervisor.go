// Package supervisor spawns the worker fleet as independent OS
// processes, tracks their PIDs in a liveness file, and coordinates
// graceful-then-forced shutdown across them.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opsloop/queuectl/internal/metrics"
	"github.com/opsloop/queuectl/internal/model"
)

// Options configures a fleet start.
type Options struct {
	Count           int
	LivenessPath    string
	ShutdownTimeout time.Duration
	// WorkerArgs are flags forwarded to every spawned worker process
	// (e.g. --data-dir, --log-dir, --poll-interval) so each child sees
	// the same operational configuration as the supervisor.
	WorkerArgs []string
	// MetricsAddr, if non-empty, is the base address for Prometheus
	// /metrics. Each worker's counters live in its own process, so every
	// spawned child gets its own port, offset from this base by index.
	MetricsAddr string
}

// Supervisor owns the running fleet's child processes for the lifetime
// of one Start call.
type Supervisor struct {
	opts      Options
	logger    *slog.Logger
	processes []*os.Process
}

// New constructs a Supervisor.
func New(opts Options, logger *slog.Logger) *Supervisor {
	return &Supervisor{opts: opts, logger: logger}
}

// Start spawns opts.Count worker processes by re-executing this binary
// with a hidden "worker run --id=<id>" subcommand, and writes the
// liveness file (parent PID first, per spec §4.7). It blocks until ctx
// is canceled (by a caught signal or an external stop), then runs Stop.
func (s *Supervisor) Start(ctx context.Context) error {
	if alive, err := s.fleetAlreadyRunning(); err != nil {
		return err
	} else if alive {
		return model.ErrAlreadyRunning
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable for re-exec: %w", err)
	}

	for i := 0; i < s.opts.Count; i++ {
		id := fmt.Sprintf("worker-%s", uuid.NewString())
		args := append([]string{"worker", "run", "--id=" + id}, s.opts.WorkerArgs...)
		metricsAddr, err := metrics.WorkerAddr(s.opts.MetricsAddr, i)
		if err != nil {
			s.killStarted()
			return err
		}
		if metricsAddr != "" {
			args = append(args, "--metrics-addr="+metricsAddr)
		}
		cmd := exec.Command(exe, args...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		setProcessGroup(cmd)
		if err := cmd.Start(); err != nil {
			s.killStarted()
			return fmt.Errorf("spawn worker %s: %w", id, err)
		}
		s.logger.Info("worker spawned", "worker_id", id, "pid", cmd.Process.Pid)
		s.processes = append(s.processes, cmd.Process)
		// Reap the child as soon as it exits; an unreaped zombie still
		// answers isAlive, which would make Stop wait out its deadline.
		go func() { _ = cmd.Wait() }()
	}

	if err := s.writeLivenessFile(); err != nil {
		s.killStarted()
		return err
	}

	<-ctx.Done()
	return s.Stop()
}

// Stop reads the liveness file, sends a graceful shutdown signal to
// every listed worker PID (and, when called from a process other than
// the supervisor, to the supervisor PID last), waits up to
// ShutdownTimeout, then force-kills stragglers, and removes the
// liveness file.
func (s *Supervisor) Stop() error {
	pids, err := ReadPIDs(s.opts.LivenessPath)
	if err != nil {
		return fmt.Errorf("read liveness file: %w", err)
	}
	if len(pids) == 0 {
		return model.ErrNoFleet
	}

	workerPIDs := pids[1:] // pids[0] is the parent/supervisor itself
	targets := workerPIDs
	if pids[0] != os.Getpid() {
		// External stop: the supervisor catches SIGTERM, which cancels
		// the ctx its Start is blocked on, so it exits too.
		targets = append(append([]int{}, workerPIDs...), pids[0])
	}
	for _, pid := range targets {
		if err := terminate(pid); err != nil {
			s.logger.Warn("failed to signal worker", "pid", pid, "error", err)
		}
	}

	deadline := time.Now().Add(s.opts.ShutdownTimeout)
	for _, pid := range targets {
		for isAlive(pid) && time.Now().Before(deadline) {
			time.Sleep(100 * time.Millisecond)
		}
		if isAlive(pid) {
			s.logger.Warn("escalating to forced termination", "pid", pid)
			_ = forceKill(pid)
		}
	}

	_ = os.Remove(s.opts.LivenessPath)
	s.logger.Info("fleet stopped")
	return nil
}

func (s *Supervisor) killStarted() {
	for _, p := range s.processes {
		_ = p.Kill()
	}
}

func (s *Supervisor) writeLivenessFile() error {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(os.Getpid()))
	sb.WriteByte('\n')
	for _, p := range s.processes {
		sb.WriteString(strconv.Itoa(p.Pid))
		sb.WriteByte('\n')
	}
	return os.WriteFile(s.opts.LivenessPath, []byte(sb.String()), 0o644)
}

func (s *Supervisor) fleetAlreadyRunning() (bool, error) {
	pids, err := ReadPIDs(s.opts.LivenessPath)
	if err != nil {
		return false, fmt.Errorf("read liveness file: %w", err)
	}
	if len(pids) == 0 {
		return false, nil
	}
	return isAlive(pids[0]), nil
}

// ReadPIDs parses a liveness file's newline-separated PIDs (parent first,
// then each worker), skipping blank or malformed lines. Shared with
// internal/admin's Status so both agree on the same liveness-file format.
func ReadPIDs(path string) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var pids []int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
