package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upAddFetchedAt, downDropFetchedAt)
}

var snapshotTables = []string{"launchpad", "launch"}

// upAddFetchedAt records when each snapshot row was fetched. Rows stored before
// the column existed are stamped with the migration time.
func upAddFetchedAt(ctx context.Context, tx *sql.Tx) error {
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z07:00")
	for _, table := range snapshotTables {
		_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ADD COLUMN fetched_at TEXT NOT NULL DEFAULT ''", table))
		if err != nil {
			return fmt.Errorf("adding fetched_at to %s : %w", table, err)
		}
		_, err = tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET fetched_at = ?", table), now)
		if err != nil {
			return fmt.Errorf("stamping %s rows : %w", table, err)
		}
	}
	return nil
}

func downDropFetchedAt(ctx context.Context, tx *sql.Tx) error {
	for _, table := range snapshotTables {
		_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN fetched_at", table))
		if err != nil {
			return fmt.Errorf("dropping fetched_at from %s : %w", table, err)
		}
	}
	return nil
}
