package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRosterCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roster",
		Short: "Manage the roster file",
	}

	cmd.AddCommand(newRosterInitCmd(app), newRosterPathCmd(app))

	return cmd
}

func newRosterInitCmd(app *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the built-in doctor roster to the roster file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := app.roster.Init(cmd.Context(), force)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote roster to %s\n", path)
			return err
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing roster file")

	return cmd
}

func newRosterPathCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the roster file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), app.roster.Path())
			return err
		},
	}
}
