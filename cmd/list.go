package cmd

import (
	"fmt"

	"github.com/opsloop/queuectl/internal/model"
	"github.com/spf13/cobra"
)

func listCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, optionally filtered by state",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, _ := cmd.Flags().GetString("state")
			limit, _ := cmd.Flags().GetInt("limit")

			jobs, err := app.Admin.List(cmd.Context(), model.Filter{State: model.State(state), Limit: limit})
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("no jobs found")
				return nil
			}

			fmt.Println("ID\tSTATE\tPRIORITY\tATTEMPTS\tCOMMAND")
			for _, job := range jobs {
				fmt.Printf("%s\t%s\t%d\t%d\t%s\n", job.ID, job.State, job.Priority, job.Attempts, job.Command)
			}
			return nil
		},
	}
	cmd.Flags().String("state", "", "filter by state (scheduled|pending|processing|completed|failed|dead)")
	cmd.Flags().Int("limit", 0, "maximum number of jobs to return (0 = unlimited)")
	return cmd
}
