package cmd

import (
	"log/slog"

	"github.com/opsloop/queuectl/internal/admin"
	"github.com/opsloop/queuectl/internal/config"
	"github.com/opsloop/queuectl/internal/store"
)

// App bundles the dependencies every subcommand needs, built once in
// main and threaded through the command tree.
type App struct {
	Cfg    *config.Config
	Store  *store.Store
	Admin  *admin.Admin
	Logger *slog.Logger
}
