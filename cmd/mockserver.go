package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pdhealth/pdseed/internal/adapters/mockapi"
	"github.com/spf13/cobra"
)

const mockShutdownTimeout = 5 * time.Second

func newMockServerCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve an in-memory healthcare API for local seeding runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if listen == "" {
				listen = app.cfg.Mock.Listen
			}

			server := mockapi.New(mockapi.Options{
				AdminEmail:    app.cfg.Admin.Email,
				AdminPassword: app.cfg.Admin.Password,
				Secret:        app.cfg.Mock.Secret,
				TokenTTL:      app.cfg.Mock.TokenTTL,
				Logger:        app.logger,
			})

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mock API on http://%s/api (admin %s)\n", listen, app.cfg.Admin.Email)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(listen)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), mockShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("shutdown mock api: %w", err)
			}

			return <-errCh
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from mock.listen)")

	return cmd
}
