package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "TRIALGATE"

// Store drivers.
const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Panel kinds.
const (
	PanelTerminal = "terminal"
	PanelWeb      = "web"
)

// Config holds all runtime settings.
type Config struct {
	Root string `envconfig:"ROOT"`

	// PageURL is the address the current run operates on. The gate only
	// activates when it equals AllowedPage exactly.
	PageURL     string `envconfig:"PAGE_URL"`
	AllowedPage string `envconfig:"ALLOWED_PAGE"`

	PayloadURL string `envconfig:"PAYLOAD_URL"`
	PaymentURL string `envconfig:"PAYMENT_URL"`

	TrialDuration time.Duration `envconfig:"TRIAL_DURATION" default:"30m"`
	CheckInterval time.Duration `envconfig:"CHECK_INTERVAL" default:"500ms"`

	StoreDriver    string `envconfig:"STORE_DRIVER" default:"file"`
	SQLitePath     string `envconfig:"SQLITE_PATH"`
	RedisURL       string `envconfig:"REDIS_URL"`
	RedisNamespace string `envconfig:"REDIS_NAMESPACE" default:"trialgate"`

	Interpreter string `envconfig:"INTERPRETER" default:"/bin/sh"`

	Panel     string `envconfig:"PANEL" default:"terminal"`
	PanelAddr string `envconfig:"PANEL_ADDR" default:"127.0.0.1:8787"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console"`
}

// LoadDotenv loads the given .env files (default ".env") into the process
// environment. Missing files are not an error.
func LoadDotenv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Paths resolves the filesystem layout for cfg.
func (c *Config) Paths() (*Paths, error) {
	return PathsFor(c.Root)
}

// Validate checks the settings the gate needs to run.
func (c *Config) Validate() error {
	var errs []error
	if c.AllowedPage == "" {
		errs = append(errs, errors.New(EnvPrefix+"_ALLOWED_PAGE is required"))
	}
	if c.PayloadURL == "" {
		errs = append(errs, errors.New(EnvPrefix+"_PAYLOAD_URL is required"))
	}
	if c.TrialDuration <= 0 {
		errs = append(errs, errors.New(EnvPrefix+"_TRIAL_DURATION must be positive"))
	}
	if c.CheckInterval <= 0 {
		errs = append(errs, errors.New(EnvPrefix+"_CHECK_INTERVAL must be positive"))
	}
	switch c.StoreDriver {
	case StoreFile, StoreSQLite:
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New(EnvPrefix+"_REDIS_URL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.StoreDriver))
	}
	switch c.Panel {
	case PanelTerminal, PanelWeb:
	default:
		errs = append(errs, fmt.Errorf("unknown panel %q", c.Panel))
	}
	return errors.Join(errs...)
}
