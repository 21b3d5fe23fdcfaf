// Package logging provides the JSON structured logger shared by the
// supervisor and worker processes.
package logging

import (
	"log/slog"
	"os"
)

// Init builds a JSON logger attributed with the given process role
// (e.g. "supervisor" or a worker's id) and installs it as slog's default.
func Init(role string) *slog.Logger {
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	handler = newRedactingHandler(handler)
	logger := slog.New(handler).With("role", role)
	slog.SetDefault(logger)
	return logger
}
