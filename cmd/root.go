package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/opsloop/queuectl/internal/model"
	"github.com/spf13/cobra"
)

func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "queuectl",
		Short: "A persistent background job queue",
	}
	app.Cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(initCmd(app))
	root.AddCommand(enqueueCmd(app))
	root.AddCommand(listCmd(app))
	root.AddCommand(dlqCmd(app))
	root.AddCommand(configCmd(app))
	root.AddCommand(workerCmd(app))
	root.AddCommand(statusCmd(app))
	root.AddCommand(logsCmd(app))
	return root
}

// Execute runs the command tree and terminates the process with the
// exit code spec.md §6 assigns to the error kind that surfaced, if any.
func Execute(app *App) {
	root := newRootCmd(app)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidSpec), errors.Is(err, model.ErrDuplicate):
		return 1
	case errors.Is(err, model.ErrStateMismatch), errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrAlreadyRunning), errors.Is(err, model.ErrNoFleet):
		return 3
	default:
		return 2
	}
}
