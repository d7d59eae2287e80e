package gantry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tfkr-ae/gantry/catalog"
	"github.com/tfkr-ae/gantry/db"
	"github.com/tfkr-ae/gantry/domain"
)

// WithOptions applies a series of configuration functions to the app.
// Each option function can modify the app configuration and return an error if it fails.
//
// Parameters:
//   - options: Variadic list of configuration functions
//
// Returns:
//   - error: First error encountered from any option function
func (app *App) WithOptions(options ...func(*App) error) error {
	for _, option := range options {
		err := option(app)
		if err != nil {
			return fmt.Errorf("applying option on gantry : %w", err)
		}
	}
	return nil
}

// WithConfigDir loads the configuration from the specified directory, creating
// the directory and its config.yaml on first run.
//
// Parameters:
//   - appConfigDir: Path to the configuration directory
//
// Returns:
//   - func(*App) error: Configuration function that loads the config
func WithConfigDir(appConfigDir string) func(*App) error {
	return func(app *App) error {
		cfg, err := LoadConfig(appConfigDir)
		if err != nil {
			return err
		}
		app.ConfigDir = appConfigDir
		app.Config = cfg
		return nil
	}
}

// WithConfig replaces the configuration with cfg.
func WithConfig(cfg *Config) func(*App) error {
	return func(app *App) error {
		if cfg == nil {
			return errors.New("config cannot be nil")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		app.Config = cfg
		app.ConfigDir = cfg.ConfigDir
		return nil
	}
}

// WithLogger sets the structured logger. A nil logger keeps the current one.
func WithLogger(logger *slog.Logger) func(*App) error {
	return func(app *App) error {
		if logger != nil {
			app.Logger = logger
		}
		return nil
	}
}

// WithConfiguredLogger builds a logger writing to w with the level and
// format from the configuration.
func WithConfiguredLogger(w io.Writer) func(*App) error {
	return func(app *App) error {
		logger, err := NewLogger(app.Config, w)
		if err != nil {
			return err
		}
		app.Logger = logger
		return nil
	}
}

// NewLogger returns a text or JSON slog logger at the configured level.
func NewLogger(cfg *Config, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// WithRepo sets the repository, closing the previous one if there is any.
func WithRepo(repo Repository) func(*App) error {
	return func(app *App) error {
		if app.Repo != nil {
			if err := app.Repo.Close(); err != nil {
				return err
			}
			app.Repo = nil
		}
		app.Repo = repo
		return nil
	}
}

// WithDatabase opens the SQLite store at the configured db_path.
func WithDatabase() func(*App) error {
	return func(app *App) error {
		repo, err := db.Open(app.Config.DBPath)
		if err != nil {
			return fmt.Errorf("opening database %s : %w", app.Config.DBPath, err)
		}
		return WithRepo(repo)(app)
	}
}

// WithCatalog sets the live catalog.
func WithCatalog(c domain.Catalog) func(*App) error {
	return func(app *App) error {
		if c == nil {
			return errors.New("catalog cannot be nil")
		}
		app.Catalog = c
		return nil
	}
}

// WithCatalogFromConfig creates a catalog client from the configuration.
func WithCatalogFromConfig() func(*App) error {
	return func(app *App) error {
		client, err := NewCatalogClient(app.Config, app.Logger)
		if err != nil {
			return err
		}
		app.Catalog = client
		return nil
	}
}

// NewCatalogClient creates a catalog client honouring the API, limit,
// timeout, rate and fingerprint settings of cfg.
func NewCatalogClient(cfg *Config, logger *slog.Logger) (*catalog.Client, error) {
	options := []func(*catalog.Client) error{
		catalog.WithBaseURL(cfg.APIURL),
		catalog.WithLimits(cfg.LaunchpadLimit, cfg.LaunchLimit),
		catalog.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
		catalog.WithLogger(logger),
		catalog.WithTrace(cfg.Trace),
		catalog.WithTimeout(cfg.Timeout),
	}
	if cfg.ChromeFingerprint {
		options = append(options, catalog.WithChromeFingerprint())
	}

	client, err := catalog.New(options...)
	if err != nil {
		return nil, fmt.Errorf("creating catalog client : %w", err)
	}
	return client, nil
}

// WithLogHandler takes a handler function that will be executed on each log
// written through WriteLog.
func WithLogHandler(handler func(log domain.Log) error) func(*App) error {
	return func(app *App) error {
		if app.OnLog != nil {
			return errors.New("app already has a log handler defined")
		}
		app.OnLog = handler
		return nil
	}
}
