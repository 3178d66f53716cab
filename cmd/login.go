package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/spf13/cobra"
)

const tokenPreviewLength = 50

func newLoginCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Log an account in and print its doctor profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			check, err := app.doctors.CheckLogin(cmd.Context(), args[0], args[1])
			if err != nil {
				return fmt.Errorf("login failed: %s", domain.Reason(err))
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "logged in as %s\n", args[0])
			_, _ = fmt.Fprintf(out, "id: %s\n", check.Session.AccountID)
			_, _ = fmt.Fprintf(out, "token: %s\n", check.Session.TokenPreview(tokenPreviewLength))
			if !check.Session.ExpiresAt.IsZero() {
				_, _ = fmt.Fprintf(out, "expires: %s\n", check.Session.ExpiresAt.Local().Format(time.DateTime))
			}

			if check.ProfileErr != nil {
				_, _ = fmt.Fprintf(out, "profile: unavailable: %s\n", domain.Reason(check.ProfileErr))
				return nil
			}

			var pretty bytes.Buffer
			if err := json.Indent(&pretty, check.Profile, "", "  "); err != nil {
				pretty.Reset()
				pretty.Write(check.Profile)
			}
			_, err = fmt.Fprintf(out, "profile:\n%s\n", pretty.String())
			return err
		},
	}
}
