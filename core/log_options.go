// Package core provides small building blocks shared by gantry's commands and
// servers. This file contains option functions for customizing log entries.
package core

import (
	"github.com/google/uuid"
	"github.com/tfkr-ae/gantry/domain"
)

// LogWithContext is an option to add a context map to a log entry.
func LogWithContext(context map[string]any) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Context = context
		return nil
	}
}

// LogWithScope is an option to tie a log entry to a table scope.
func LogWithScope(scope string) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.Scope = scope
		return nil
	}
}

// LogWithSessionID is an option to associate a log entry with a CLI or websocket session.
func LogWithSessionID(id uuid.UUID) func(log *domain.Log) error {
	return func(log *domain.Log) error {
		log.SessionID = &id
		return nil
	}
}
