package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pdhealth/pdseed/internal/application"
	"github.com/pdhealth/pdseed/internal/domain"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newDoctorsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctors",
		Short: "Provision and inspect doctor accounts",
	}

	cmd.AddCommand(newDoctorsCreateCmd(app), newDoctorsListCmd(app))

	return cmd
}

func newDoctorsCreateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Register the roster doctors, create their profiles and approve them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			doctors, _, err := app.roster.Accounts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Provisioning %d doctors on %s\n", len(doctors), app.cfg.API.BaseURL)

			report, runErr := app.doctors.Provision(cmd.Context(), doctors, app.admin(), application.ProvisionOptions{
				PauseBetweenRequests: app.cfg.Provision.PauseBetweenRequests,
				AdminNotes:           app.cfg.Provision.AdminNotes,
				LookupLimit:          app.cfg.Provision.ListLimit,
			}, func(event application.ProvisionEvent) {
				printProvisionEvent(out, event)
			})
			if runErr != nil && !interrupted(runErr) {
				return runErr
			}

			rendered, err := app.provisionRenderer(report)
			if err != nil {
				return fmt.Errorf("render provisioning report: %w", err)
			}
			if _, err := fmt.Fprintln(out, "\n"+rendered); err != nil {
				return err
			}

			return runErr
		},
	}
}

func printProvisionEvent(out io.Writer, event application.ProvisionEvent) {
	prefix := fmt.Sprintf("[%d/%d] %s %s", event.Index+1, event.Total, event.Step, event.Account.Email)
	if event.Account.Email == "" {
		prefix = string(event.Step)
	}

	switch {
	case event.Err != nil:
		_, _ = fmt.Fprintf(out, "%s: failed: %s\n", prefix, domain.Reason(event.Err))
	case event.Detail != "":
		_, _ = fmt.Fprintf(out, "%s: ok (%s)\n", prefix, event.Detail)
	default:
		_, _ = fmt.Fprintf(out, "%s: ok\n", prefix)
	}
}

type rosterEntry struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

func newDoctorsListCmd(app *app) *cobra.Command {
	var asJSON bool
	var asRoster bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List doctor accounts known to the API (admin login required)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				limit = app.cfg.Provision.ListLimit
			}

			var listing application.DoctorListing
			fetch := func(ctx context.Context) error {
				var err error
				listing, err = app.doctors.ListDoctors(ctx, app.admin(), limit)
				return err
			}

			var err error
			if asJSON || asRoster {
				err = fetch(cmd.Context())
			} else {
				err = runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching doctors...", fetch)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case asJSON:
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(listing.Users)
			case asRoster:
				return writeRosterEntries(out, listing.Users)
			}

			_, _ = fmt.Fprintf(out, "found %d doctors (%d active)\n", len(listing.Users), listing.Active)
			for i, user := range listing.Users {
				state := "inactive"
				if user.Active {
					state = "active"
				}
				_, _ = fmt.Fprintf(out, "%d. %s (%s) - %s\n", i+1, user.Email, user.ID, state)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	cmd.Flags().BoolVar(&asRoster, "roster", false, "Print active doctors as roster file entries")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of users to fetch (default from provision.list_limit)")
	cmd.MarkFlagsMutuallyExclusive("json", "roster")

	return cmd
}

// writeRosterEntries prints active doctors in roster file syntax, using the
// default doctor password since the API never returns passwords.
func writeRosterEntries(out io.Writer, users []domain.User) error {
	file := struct {
		Accounts []rosterEntry `toml:"accounts"`
	}{}
	for _, user := range users {
		if !user.Active {
			continue
		}
		file.Accounts = append(file.Accounts, rosterEntry{Email: user.Email, Password: application.DefaultDoctorPassword})
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode roster entries: %w", err)
	}

	_, err = out.Write(data)
	return err
}
