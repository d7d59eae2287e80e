package domain

import (
	"time"

	"github.com/google/uuid"
)

// LogRepository defines the interface for managing application logs.
// It provides methods for persisting and retrieving log entries.
type LogRepository interface {
	// InsertLog saves a new log entry to the repository.
	InsertLog(log *Log) error
	// GetLogs retrieves all log entries from the repository, oldest first.
	GetLogs() ([]*Log, error)
}

// Log represents a single log entry, containing information about an event that occurred in the application.
type Log struct {
	ID        uuid.UUID      // Unique identifier for the log entry.
	Timestamp time.Time      // The time at which the log entry was created.
	Level     string         // The severity level of the log (DEBUG, INFO, WARN, ERROR, FATAL).
	Message   string         // The main content of the log message.
	Context   map[string]any // Additional key-value data for structured logging.
	Scope     string         // Table scope the entry relates to, "launchpads" or a launchpad ID. Empty when unrelated.
	SessionID *uuid.UUID     // An optional ID of the CLI or websocket session that produced the entry.
}
