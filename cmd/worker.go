package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/opsloop/queuectl/internal/logging"
	"github.com/opsloop/queuectl/internal/metrics"
	"github.com/opsloop/queuectl/internal/store"
	"github.com/opsloop/queuectl/internal/supervisor"
	"github.com/opsloop/queuectl/internal/worker"
	"github.com/spf13/cobra"
)

func workerCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "worker",
		Short: "Manage the worker fleet",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start a fleet of worker processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			count, _ := cmd.Flags().GetInt("count")

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			notifyShutdown(cancel)

			sup := supervisor.New(supervisor.Options{
				Count:           count,
				LivenessPath:    app.Cfg.LivenessPath,
				ShutdownTimeout: app.Cfg.ShutdownTimeout,
				MetricsAddr:     app.Cfg.MetricsAddr,
				WorkerArgs: []string{
					"--data-dir=" + app.Cfg.DataDir,
					"--log-dir=" + app.Cfg.LogDir,
					"--poll-interval=" + app.Cfg.PollInterval.String(),
				},
			}, app.Logger)

			// Counters live in each worker child's own process; the
			// supervisor assigns every child its own /metrics port (see
			// supervisor.Options.MetricsAddr) rather than serving here.
			fmt.Printf("starting %d worker(s), press Ctrl+C to shut down\n", count)
			return sup.Start(ctx)
		},
	}
	start.Flags().Int("count", 1, "number of worker processes to start")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Signal the running fleet to shut down",
		RunE: func(cmd *cobra.Command, args []string) error {
			sup := supervisor.New(supervisor.Options{
				LivenessPath:    app.Cfg.LivenessPath,
				ShutdownTimeout: app.Cfg.ShutdownTimeout,
			}, app.Logger)
			return sup.Stop()
		},
	}

	run := &cobra.Command{
		Use:    "run",
		Short:  "Run a single worker loop (internal: invoked by 'worker start' via re-exec)",
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, _ := cmd.Flags().GetString("id")
			if id == "" {
				return fmt.Errorf("--id is required")
			}
			metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

			st, err := store.Open(app.Cfg.DBPath())
			if err != nil {
				return err
			}
			defer st.Close()

			logger := logging.Init(id)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			notifyShutdown(cancel)

			if metricsAddr != "" {
				go metrics.Serve(ctx, metricsAddr, logger)
			}

			w := worker.New(id, st, app.Cfg.LogDir, logger)
			w.Run(ctx)
			return nil
		},
	}
	run.Flags().String("id", "", "worker identity")
	run.Flags().String("metrics-addr", "", "address to serve this worker's /metrics on (set by the supervisor)")

	root.AddCommand(start, stop, run)
	return root
}

func notifyShutdown(cancel context.CancelFunc) {
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()
}
