package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pdhealth/pdseed/internal/application"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/spf13/cobra"
)

func newScheduleCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Generate daily availability slots for doctors",
	}

	cmd.AddCommand(newScheduleGenerateCmd(app), newScheduleSingleCmd(app))

	return cmd
}

func newScheduleGenerateCmd(app *app) *cobra.Command {
	var mode string
	var yes bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate slots for every roster account over the configured date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mode == "" {
				mode = app.cfg.Schedule.Mode
			}
			parsedMode, err := application.ParseMode(mode)
			if err != nil {
				return err
			}

			accounts, fromFile, err := app.roster.Accounts(cmd.Context())
			if err != nil {
				return err
			}
			req, err := app.scheduleRequest(parsedMode, accounts)
			if err != nil {
				return err
			}

			if asJSON {
				summary, runErr := app.schedule.Run(cmd.Context(), req, nil)
				if runErr != nil && !interrupted(runErr) {
					return runErr
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(summary); err != nil {
					return err
				}
				return runErr
			}

			out := cmd.OutOrStdout()
			source := app.roster.Path()
			if !fromFile {
				source = "built-in doctors"
			}
			_, _ = fmt.Fprintf(out, "Generating appointment slots (%s mode)\n", req.Mode)
			_, _ = fmt.Fprintf(out, "dates: %s (%d days)\n", req.Range, req.Range.Days())
			_, _ = fmt.Fprintf(out, "accounts: %d from %s\n", len(req.Accounts), source)
			_, _ = fmt.Fprintf(out, "tasks: %d\n", len(req.Accounts)*req.Range.Days())
			if req.Mode == application.ModeConcurrent {
				_, _ = fmt.Fprintf(out, "batch size: %d, pool size: %d\n", req.Options.BatchSize, req.Options.PoolSize)
			}

			if !yes {
				if err := waitForEnter(cmd.InOrStdin(), out); err != nil {
					return err
				}
			}

			_, err = app.runSchedule(cmd, req)
			return err
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Run mode: sequential or concurrent (default from schedule.mode)")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Start without waiting for Enter")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print only the run summary as JSON")

	return cmd
}

func newScheduleSingleCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "single <email> <password> <name>",
		Short: "Generate slots for one account without pauses between dates",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) < 3 {
				return fmt.Errorf("usage: %s", cmd.UseLine())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			account := domain.Account{Email: args[0], Password: args[1], Name: args[2]}
			if err := account.Validate(); err != nil {
				return err
			}

			req, err := app.scheduleRequest(application.ModeSequential, []domain.Account{account})
			if err != nil {
				return err
			}
			req.Options.PauseBetweenDates = 0

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", account.DisplayName(), account.Email)
			summary, err := app.runSchedule(cmd, req)
			if err != nil {
				return err
			}
			if len(summary.Results) != 1 || !summary.Results[0].Success {
				return fmt.Errorf("login failed for %s", account.Email)
			}

			return nil
		},
	}
}

func (a *app) scheduleRequest(mode application.Mode, accounts []domain.Account) (application.ScheduleRequest, error) {
	dates, err := a.cfg.DateRange()
	if err != nil {
		return application.ScheduleRequest{}, err
	}

	return application.ScheduleRequest{
		Mode:     mode,
		Accounts: accounts,
		Range:    dates,
		Options: application.ScheduleOptions{
			BatchSize:            a.cfg.Schedule.BatchSize,
			PoolSize:             a.cfg.Schedule.PoolSize,
			PauseBetweenDates:    a.cfg.Schedule.PauseBetweenDates,
			PauseBetweenAccounts: a.cfg.Schedule.PauseBetweenAccounts,
		},
	}, nil
}

// runSchedule runs req with console progress and prints the summary, also
// when the run was interrupted.
func (a *app) runSchedule(cmd *cobra.Command, req application.ScheduleRequest) (application.RunSummary, error) {
	observer := newConsoleObserver(cmd.OutOrStdout(), len(req.Accounts))
	summary, runErr := a.schedule.Run(cmd.Context(), req, observer)
	if runErr != nil && !interrupted(runErr) {
		return summary, runErr
	}

	rendered, err := a.summaryRenderer(summary)
	if err != nil {
		return summary, fmt.Errorf("render summary: %w", err)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), "\n"+rendered); err != nil {
		return summary, err
	}

	return summary, runErr
}

func waitForEnter(in io.Reader, out io.Writer) error {
	_, _ = fmt.Fprint(out, "Press Enter to start (Ctrl+C to cancel)...")
	_, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read confirmation: %w", err)
	}
	_, _ = fmt.Fprintln(out)

	return nil
}

func interrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
