// Package gantry browses the launchpads and launches of a remote launch
// catalog through reactive tables. It is decoupled from any particular
// consumer: the CLI, the terminal renderer and the web server all drive the
// same data sources.
//
// The core functionality includes:
//   - A launchpad table and a per-launchpad launch table, sorted, filtered and paged client-side
//   - A catalog client with rate limiting and an optional Chrome TLS fingerprint
//   - A SQLite snapshot store for offline browsing, persisted logs and stats
//   - An image locator for launchpad, rocket and crew pictures
package gantry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/gantry/domain"
)

var (
	// ErrNoRepository is returned by operations that need the snapshot store when none is configured.
	ErrNoRepository = errors.New("no repository configured")

	// ErrNoCatalog is returned when neither a catalog nor offline mode is configured.
	ErrNoCatalog = errors.New("no catalog configured")

	// ErrNoImageLocator is returned by Images when the catalog cannot look up pictures.
	ErrNoImageLocator = errors.New("catalog cannot locate images")

	// ErrInvalidLevel is returned by WriteLog for an unknown level.
	ErrInvalidLevel = errors.New("level should be either: debug, info, warn, error, fatal")
)

// Repository defines the methods consumed by the App to interact with the
// SQLite backend.
type Repository interface {
	domain.SnapshotRepository
	domain.LogRepository
	domain.StatsRepository
	Close() error
}

// App holds everything a consumer needs to build tables: configuration, the
// catalog, the snapshot store and the logger.
type App struct {
	ConfigDir string         // The configuration directory
	Config    *Config        // Loaded configuration, defaults when no config dir is given
	Logger    *slog.Logger   // Structured logger, never nil
	Repo      Repository     // Snapshot, log and stats store, optional
	Catalog   domain.Catalog // Live catalog, optional in offline mode
	SessionID uuid.UUID      // Identifies this process in persisted logs
	OnLog     func(log domain.Log) error
}

// New creates an App with default configuration and applies any provided
// options in order.
//
// Parameters:
//   - options: Variadic list of option functions to configure the app
//
// Returns:
//   - *App: Configured app
//   - error: Configuration error if any option fails
func New(options ...func(*App) error) (*App, error) {
	sessionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating session id : %w", err)
	}
	app := &App{
		Config:    DefaultConfig(),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		SessionID: sessionID,
	}
	if err := app.WithOptions(options...); err != nil {
		return nil, err
	}
	return app, nil
}

// WriteLog persists a log entry and mirrors it to the structured logger.
// Without a repository the entry is only sent to the logger.
//
// Parameters:
//   - level: One of DEBUG, INFO, WARN, ERROR, FATAL
//   - message: Log message
//   - options: Log options from the core package
//
// Returns:
//   - error: ErrInvalidLevel, an option error or a storage error
func (app *App) WriteLog(level string, message string, options ...func(log *domain.Log) error) error {
	var slogLevel slog.Level
	switch level {
	case "DEBUG":
		slogLevel = slog.LevelDebug
	case "INFO":
		slogLevel = slog.LevelInfo
	case "WARN":
		slogLevel = slog.LevelWarn
	case "ERROR", "FATAL":
		slogLevel = slog.LevelError
	default:
		return ErrInvalidLevel
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating new uuid : %w", err)
	}
	sessionID := app.SessionID
	log := &domain.Log{
		ID:        id,
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
		SessionID: &sessionID,
	}
	for _, option := range options {
		if err := option(log); err != nil {
			return fmt.Errorf("applying log option : %w", err)
		}
	}

	app.Logger.Log(context.Background(), slogLevel, message, "scope", log.Scope, "log_id", log.ID)

	if app.Repo != nil {
		if err := app.Repo.InsertLog(log); err != nil {
			return fmt.Errorf("inserting log : %w", err)
		}
	}
	if app.OnLog != nil {
		if err := app.OnLog(*log); err != nil {
			return fmt.Errorf("running log handler : %w", err)
		}
	}
	return nil
}

// Close releases the repository, if any.
func (app *App) Close() error {
	if app.Repo == nil {
		return nil
	}
	if err := app.Repo.Close(); err != nil {
		return fmt.Errorf("closing app : %w", err)
	}
	app.Repo = nil
	return nil
}
