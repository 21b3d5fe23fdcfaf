package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func dlqCmd(app *App) *cobra.Command {
	dlq := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and manage the dead-letter queue",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs in the dead-letter queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			jobs, err := app.Admin.DLQList(cmd.Context())
			if err != nil {
				return err
			}
			if len(jobs) == 0 {
				fmt.Println("dead-letter queue is empty")
				return nil
			}
			fmt.Println("ID\tATTEMPTS\tLAST_ERROR")
			for _, job := range jobs {
				fmt.Printf("%s\t%d\t%s\n", job.ID, job.Attempts, job.LastError)
			}
			return nil
		},
	}

	retry := &cobra.Command{
		Use:   "retry <id>",
		Short: "Move a dead job back to pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Admin.DLQRetry(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Println("job retried:", args[0])
			return nil
		},
	}

	purge := &cobra.Command{
		Use:   "purge",
		Short: "Delete every dead job",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Admin.DLQPurge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("purged %d job(s)\n", n)
			return nil
		},
	}

	dlq.AddCommand(list, retry, purge)
	return dlq
}
