// Package metrics exposes Prometheus counters and a histogram over job
// lease/completion/dead-letter events, served on an operator-configured
// address. Scoped to queue outcomes only: there is no DB pool or HTTP
// transport layer in this engine for a collector to poll, unlike the
// Postgres-backed worker this package is grounded on.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	leasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "queuectl_leases_total",
		Help: "Total number of jobs leased by any worker.",
	})
	completionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "queuectl_completions_total",
		Help: "Total number of attempts, labeled by their terminal outcome kind.",
	}, []string{"outcome"})
	deadLettersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "queuectl_dead_letters_total",
		Help: "Total number of jobs that reached the dead-letter state.",
	})
	attemptDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "queuectl_attempt_duration_seconds",
		Help:    "Wall-clock duration of a single job attempt.",
		Buckets: prometheus.DefBuckets,
	})
)

// RecordLease increments the lease counter.
func RecordLease() {
	leasesTotal.Inc()
}

// RecordAttempt records an attempt's outcome label and duration, and the
// dead-letter counter if the outcome was terminal.
func RecordAttempt(outcome string, duration time.Duration, dead bool) {
	completionsTotal.WithLabelValues(outcome).Inc()
	attemptDuration.Observe(duration.Seconds())
	if dead {
		deadLettersTotal.Inc()
	}
}

// WorkerAddr derives a per-worker metrics address from a base address by
// adding index to its port, since counters live in each worker's own
// process (one per OS process) and a single shared port can't be bound by
// all of them at once. An empty base yields an empty result, meaning the
// caller's worker should not serve /metrics at all.
func WorkerAddr(base string, index int) (string, error) {
	if base == "" {
		return "", nil
	}
	host, portStr, err := net.SplitHostPort(base)
	if err != nil {
		return "", fmt.Errorf("parse metrics addr %q: %w", base, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("parse metrics port %q: %w", portStr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+index)), nil
}

// Serve starts an HTTP server exposing /metrics on addr. It runs until
// ctx is canceled, then shuts down gracefully; a non-empty, non-shutdown
// error is logged rather than returned, since metrics serving is not
// load-bearing for the queue engine's own operation.
func Serve(ctx context.Context, addr string, logger *slog.Logger) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", "error", err)
	}
}
