package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func statusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize job counts by state and the live worker fleet",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := app.Admin.Status(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println("--- job counts ---")
			if len(status.Counts) == 0 {
				fmt.Println("no jobs in the queue")
			}
			for state, count := range status.Counts {
				fmt.Printf("%s\t%d\n", state, count)
			}

			fmt.Println("--- worker fleet ---")
			if !status.FleetActive {
				fmt.Println("no fleet running")
				return nil
			}
			for _, pid := range status.WorkerPIDs {
				fmt.Println(pid)
			}
			return nil
		},
	}
}
