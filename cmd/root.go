package cmd

import (
	"context"

	"github.com/pdhealth/pdseed/internal/config"
	"github.com/spf13/cobra"
)

func ExecuteContext(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	v := config.New()
	app := &app{viper: v}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "pdseed",
		Short:         "Seed the healthcare appointment API with doctors and availability slots",
		Long:          "pdseed registers and approves doctor accounts on the healthcare appointment API and bulk-generates their daily availability slots over a date range, sequentially or in concurrent batches.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.wire(cmd, configFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Config file (default ~/.pdseed/config.toml)")
	flags.String("base-url", "", "Healthcare API base URL (overrides api.base_url)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (overrides log.level)")
	_ = v.BindPFlag("api.base_url", flags.Lookup("base-url"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newRosterCmd(app),
		newScheduleCmd(app),
		newDoctorsCmd(app),
		newLoginCmd(app),
		newMockServerCmd(app),
	)

	return rootCmd
}
