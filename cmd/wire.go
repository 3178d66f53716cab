package cmd

import (
	"fmt"
	"net/http"

	"github.com/pdhealth/pdseed/internal/adapters/api/httpapi"
	"github.com/pdhealth/pdseed/internal/adapters/render/report"
	tomlrepo "github.com/pdhealth/pdseed/internal/adapters/repo/toml"
	"github.com/pdhealth/pdseed/internal/application"
	"github.com/pdhealth/pdseed/internal/config"
	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/pdhealth/pdseed/internal/logging"
	"github.com/pdhealth/pdseed/internal/ports"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app holds the dependencies shared by every command. It is filled in by
// the root command's PersistentPreRunE once flags are parsed.
type app struct {
	viper  *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
	clock  ports.Clock

	api      *httpapi.Client
	roster   *application.RosterService
	schedule *application.ScheduleService
	doctors  *application.DoctorService

	summaryRenderer   func(application.RunSummary) (string, error)
	provisionRenderer func(application.ProvisionReport) (string, error)
}

func (a *app) wire(cmd *cobra.Command, configFile string) error {
	cfg, err := config.Load(a.viper, configFile)
	if err != nil {
		return err
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	if cfg.Roster.Path != "" {
		a.viper.Set(tomlrepo.RosterPathKey, cfg.Roster.Path)
	}
	repo, err := tomlrepo.NewRepository(a.viper)
	if err != nil {
		return fmt.Errorf("wire roster repository: %w", err)
	}

	client := httpapi.NewClient(httpapi.Config{
		BaseURL:        cfg.API.BaseURL,
		Timeout:        cfg.API.Timeout,
		MaxAttempts:    cfg.Retry.MaxAttempts,
		InitialBackoff: cfg.Retry.InitialBackoff,
		UserAgent:      cfg.API.UserAgent,
	}, http.DefaultClient, logger)

	clock := ports.SystemClock{}

	a.cfg = cfg
	a.logger = logger
	a.clock = clock
	a.api = client
	a.roster = application.NewRosterService(repo)
	a.schedule = application.NewScheduleService(client, client, clock, logger)
	a.doctors = application.NewDoctorService(client, clock, logger)
	a.summaryRenderer = report.RenderSummary
	a.provisionRenderer = report.RenderProvision

	logger.Debug().
		Str("base_url", cfg.API.BaseURL).
		Str("roster", repo.Path()).
		Msg("wired")

	return nil
}

func (a *app) admin() domain.Account {
	return domain.Account{Email: a.cfg.Admin.Email, Password: a.cfg.Admin.Password}
}
