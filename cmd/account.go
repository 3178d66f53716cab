package cmd

import (
	"fmt"
	"strings"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/spf13/cobra"
)

func newAccountCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage roster accounts",
	}

	cmd.AddCommand(
		newAccountListCmd(app),
		newAccountAddCmd(app),
	)

	return cmd
}

func newAccountListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the accounts a schedule run would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			accounts, fromFile, err := app.roster.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			if !fromFile {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "no roster at %s, showing the built-in doctors\n", app.roster.Path())
			}

			for _, account := range accounts {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", account.Email, account.DisplayName())
			}

			return nil
		},
	}
}

func newAccountAddCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <email> <password> [name]",
		Short: "Add an account to the roster file, or update it",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			account := domain.Account{Email: args[0], Password: args[1]}
			if len(args) == 3 {
				account.Name = strings.TrimSpace(args[2])
			}

			added, err := app.roster.Add(cmd.Context(), account)
			if err != nil {
				return err
			}

			verb := "updated"
			if added {
				verb = "added"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s\n", verb, account.Email, app.roster.Path())
			return err
		},
	}
}
