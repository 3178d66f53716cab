package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdhealth/pdseed/internal/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	EnvPrefix = "PDSEED"

	configName = "config"
	configType = "toml"
	configDir  = ".pdseed"

	ModeSequential = "sequential"
	ModeConcurrent = "concurrent"
)

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Provision ProvisionConfig `mapstructure:"provision"`
	Roster    RosterConfig    `mapstructure:"roster"`
	Log       LogConfig       `mapstructure:"log"`
	Mock      MockConfig      `mapstructure:"mock"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// RetryConfig applies to network failures only. One attempt means no retry.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

type ScheduleConfig struct {
	Mode                 string        `mapstructure:"mode"`
	StartDate            string        `mapstructure:"start_date"`
	EndDate              string        `mapstructure:"end_date"`
	BatchSize            int           `mapstructure:"batch_size"`
	PoolSize             int           `mapstructure:"pool_size"`
	PauseBetweenDates    time.Duration `mapstructure:"pause_between_dates"`
	PauseBetweenAccounts time.Duration `mapstructure:"pause_between_accounts"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type ProvisionConfig struct {
	PauseBetweenRequests time.Duration `mapstructure:"pause_between_requests"`
	AdminNotes           string        `mapstructure:"admin_notes"`
	ListLimit            int           `mapstructure:"list_limit"`
}

type RosterConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MockConfig struct {
	Listen   string        `mapstructure:"listen"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

var defaults = map[string]any{
	"api.base_url":   "https://be-healthcareapppd.onrender.com/api",
	"api.timeout":    15 * time.Second,
	"api.user_agent": "pdseed",

	"retry.max_attempts":    1,
	"retry.initial_backoff": 500 * time.Millisecond,

	"schedule.mode":                   ModeSequential,
	"schedule.start_date":             "2025-11-22",
	"schedule.end_date":               "2026-01-01",
	"schedule.batch_size":             3,
	"schedule.pool_size":              10,
	"schedule.pause_between_dates":    300 * time.Millisecond,
	"schedule.pause_between_accounts": time.Second,

	"admin.email":    "admin@healthcare.com",
	"admin.password": "Admin123456",

	"provision.pause_between_requests": 500 * time.Millisecond,
	"provision.admin_notes":            "Approved by seeding script",
	"provision.list_limit":             1000,

	"roster.path": "",

	"log.level":  "warn",
	"log.format": "console",

	"mock.listen":    "127.0.0.1:8080",
	"mock.secret":    "",
	"mock.token_ttl": 24 * time.Hour,
}

// New returns a viper instance with defaults and environment bindings. Flags
// may be bound to it before Load is called.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the config file and returns the validated configuration. An
// explicit configFile must exist; otherwise ~/.pdseed/config.toml is read
// when present.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = New()
	}

	v.SetConfigType(configType)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configName)
		if homeDir, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(homeDir, configDir))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.API.BaseURL), "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	parsed, err := url.Parse(c.API.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		errs = append(errs, fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts))
	}

	switch c.Schedule.Mode {
	case ModeSequential, ModeConcurrent:
	default:
		errs = append(errs, fmt.Errorf("schedule.mode must be %q or %q, got %q", ModeSequential, ModeConcurrent, c.Schedule.Mode))
	}
	if c.Schedule.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("schedule.batch_size must be at least 1, got %d", c.Schedule.BatchSize))
	}
	if c.Schedule.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("schedule.pool_size must be at least 1, got %d", c.Schedule.PoolSize))
	}
	if c.Schedule.PauseBetweenDates < 0 || c.Schedule.PauseBetweenAccounts < 0 || c.Provision.PauseBetweenRequests < 0 {
		errs = append(errs, errors.New("pauses must not be negative"))
	}
	if _, err := c.DateRange(); err != nil {
		errs = append(errs, err)
	}
	if c.Provision.ListLimit < 1 {
		errs = append(errs, fmt.Errorf("provision.list_limit must be at least 1, got %d", c.Provision.ListLimit))
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

func (c *Config) DateRange() (domain.DateRange, error) {
	return domain.ParseDateRange(c.Schedule.StartDate, c.Schedule.EndDate)
}
