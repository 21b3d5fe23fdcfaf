package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func configCmd(app *App) *cobra.Command {
	config := &cobra.Command{
		Use:   "config",
		Short: "Get or set domain configuration (max_retries, backoff_base)",
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a config value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, ok, err := app.Admin.ConfigGet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("(unset)")
				return nil
			}
			fmt.Println(value)
			return nil
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Admin.ConfigSet(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("%s = %s\n", args[0], args[1])
			return nil
		},
	}

	config.AddCommand(get, set)
	return config
}
