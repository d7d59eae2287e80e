package db

import (
	"fmt"
	"time"

	"github.com/tfkr-ae/gantry/domain"
)

var _ domain.StatsRepository = (*Repository)(nil)

func (repo *Repository) count(table string) (int, error) {
	var count int
	err := repo.dbConn.Get(&count, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
	if err != nil {
		return 0, fmt.Errorf("getting %s count: %w", table, err)
	}
	return count, nil
}

// CountLaunchpads returns the number of stored launchpads.
func (repo *Repository) CountLaunchpads() (int, error) {
	return repo.count("launchpad")
}

// CountLaunches returns the number of stored launches across all launchpads.
func (repo *Repository) CountLaunches() (int, error) {
	return repo.count("launch")
}

// CountLogs returns the number of persisted log entries.
func (repo *Repository) CountLogs() (int, error) {
	return repo.count("logs")
}

// LastFetched returns the newest fetched_at stamp across both snapshot tables.
func (repo *Repository) LastFetched() (time.Time, error) {
	var last string
	query := `SELECT COALESCE(MAX(fetched_at), '') FROM (
	              SELECT fetched_at FROM launchpad
	              UNION ALL
	              SELECT fetched_at FROM launch
	          )`

	err := repo.dbConn.Get(&last, query)
	if err != nil {
		return time.Time{}, fmt.Errorf("getting last fetch time: %w", err)
	}

	return parseTime(last), nil
}
