package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tfkr-ae/gantry/domain"
)

var _ domain.LogRepository = (*Repository)(nil)

// dbLog represents a log entry as stored in the database.
type dbLog struct {
	ID        uuid.UUID      `db:"id"`
	Timestamp time.Time      `db:"timestamp"`
	Level     string         `db:"level"`
	Message   string         `db:"message"`
	Context   Metadata       `db:"context"`
	Scope     string         `db:"scope"`
	SessionID sql.NullString `db:"session_id"`
}

// toDomainLog converts a dbLog to a domain.Log.
func toDomainLog(row *dbLog) *domain.Log {
	log := &domain.Log{
		ID:        row.ID,
		Timestamp: row.Timestamp,
		Level:     row.Level,
		Message:   row.Message,
		Context:   map[string]any(row.Context),
		Scope:     row.Scope,
	}

	if row.SessionID.Valid {
		if id, err := uuid.Parse(row.SessionID.String); err == nil {
			log.SessionID = &id
		}
	}

	return log
}

// fromDomainLog converts a domain.Log to a dbLog.
func fromDomainLog(log *domain.Log) *dbLog {
	row := &dbLog{
		ID:        log.ID,
		Timestamp: log.Timestamp,
		Level:     log.Level,
		Message:   log.Message,
		Context:   Metadata(log.Context),
		Scope:     log.Scope,
	}

	if log.SessionID != nil {
		row.SessionID = sql.NullString{String: log.SessionID.String(), Valid: true}
	}

	return row
}

// InsertLog saves a new log entry to the database.
func (repo *Repository) InsertLog(log *domain.Log) error {
	query := `INSERT INTO logs (id, level, timestamp, message, context, scope, session_id)
	          VALUES (:id, :level, :timestamp, :message, :context, :scope, :session_id)`

	_, err := repo.dbConn.NamedExec(query, fromDomainLog(log))
	if err != nil {
		return fmt.Errorf("inserting log %s: %w", log.ID, err)
	}

	return nil
}

// GetLogs retrieves all log entries from the database. UUIDv7 ids sort by
// creation time, so ordering by id returns the oldest entry first.
func (repo *Repository) GetLogs() ([]*domain.Log, error) {
	var rows []*dbLog
	query := `SELECT id, timestamp, level, message, context, scope, session_id FROM logs ORDER BY id`

	err := repo.dbConn.Select(&rows, query)
	if err != nil {
		return nil, fmt.Errorf("fetching all logs: %w", err)
	}

	logs := make([]*domain.Log, len(rows))
	for i, row := range rows {
		logs[i] = toDomainLog(row)
	}

	return logs, nil
}
