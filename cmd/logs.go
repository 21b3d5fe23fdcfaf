package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func logsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print a job's captured output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stderr, _ := cmd.Flags().GetBool("stderr")
			data, err := app.Admin.Logs(args[0], stderr)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			if err != nil {
				return fmt.Errorf("write logs: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().Bool("stderr", false, "print captured stderr instead of stdout")
	return cmd
}
