package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// initCmd exists mostly for operator ergonomics: opening the store via
// Admin already runs the idempotent CREATE TABLE IF NOT EXISTS schema,
// so this command's job is just to surface that as an explicit,
// nameable step per spec §6.
func initCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the store and its tables if absent",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("store ready:", app.Cfg.DBPath())
			return nil
		},
	}
}
