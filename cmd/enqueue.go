package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/opsloop/queuectl/internal/model"
	"github.com/spf13/cobra"
)

// jobSpecInput mirrors model.JobSpec but accepts run_at as an RFC3339
// string, since spec §6 specifies an ISO-8601 timestamp on the wire.
type jobSpecInput struct {
	ID             string `json:"id"`
	Command        string `json:"command"`
	Priority       int    `json:"priority"`
	TimeoutSeconds int    `json:"timeout"`
	RunAt          string `json:"run_at"`
	MaxRetries     *int   `json:"max_retries"`
}

func enqueueCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <spec-json>",
		Short: "Insert a job specification into the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input jobSpecInput
			if err := json.Unmarshal([]byte(args[0]), &input); err != nil {
				return fmt.Errorf("%w: invalid job JSON: %v", model.ErrInvalidSpec, err)
			}

			spec := model.JobSpec{
				ID:             input.ID,
				Command:        input.Command,
				Priority:       input.Priority,
				TimeoutSeconds: input.TimeoutSeconds,
				MaxRetries:     input.MaxRetries,
			}
			if input.RunAt != "" {
				t, err := time.Parse(time.RFC3339, input.RunAt)
				if err != nil {
					return fmt.Errorf("%w: invalid run_at: %v", model.ErrInvalidSpec, err)
				}
				spec.RunAt = &t
			}

			if err := app.Admin.Enqueue(cmd.Context(), spec); err != nil {
				return err
			}
			fmt.Println("job enqueued:", spec.ID)
			return nil
		},
	}
}
