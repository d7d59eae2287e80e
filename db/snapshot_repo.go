package db

import (
	"fmt"
	"time"

	"github.com/tfkr-ae/gantry/domain"
)

var _ domain.SnapshotRepository = (*Repository)(nil)

// dbLaunchpad represents a launchpad as stored in the database.
type dbLaunchpad struct {
	ID              string     `db:"id"`
	Name            string     `db:"name"`
	FullName        string     `db:"full_name"`
	Locality        string     `db:"locality"`
	Region          string     `db:"region"`
	Status          string     `db:"status"`
	LaunchAttempts  int        `db:"launch_attempts"`
	LaunchSuccesses int        `db:"launch_successes"`
	Launches        StringList `db:"launches"`
	FetchedAt       string     `db:"fetched_at"`
}

func toDomainLaunchpad(row *dbLaunchpad) domain.Launchpad {
	return domain.Launchpad{
		ID:              row.ID,
		Name:            row.Name,
		FullName:        row.FullName,
		Locality:        row.Locality,
		Region:          row.Region,
		Status:          row.Status,
		LaunchAttempts:  row.LaunchAttempts,
		LaunchSuccesses: row.LaunchSuccesses,
		Launches:        []string(row.Launches),
	}
}

func fromDomainLaunchpad(lp domain.Launchpad, fetchedAt time.Time) *dbLaunchpad {
	return &dbLaunchpad{
		ID:              lp.ID,
		Name:            lp.Name,
		FullName:        lp.FullName,
		Locality:        lp.Locality,
		Region:          lp.Region,
		Status:          lp.Status,
		LaunchAttempts:  lp.LaunchAttempts,
		LaunchSuccesses: lp.LaunchSuccesses,
		Launches:        StringList(lp.Launches),
		FetchedAt:       formatTime(fetchedAt),
	}
}

// dbLaunch represents a launch as stored in the database. The Wikipedia link
// is flattened into its own column.
type dbLaunch struct {
	ID           string `db:"id"`
	LaunchpadID  string `db:"launchpad_id"`
	Name         string `db:"name"`
	FlightNumber int    `db:"flight_number"`
	DateUTC      string `db:"date_utc"`
	Success      bool   `db:"success"`
	Wikipedia    string `db:"wikipedia"`
	FetchedAt    string `db:"fetched_at"`
}

func toDomainLaunch(row *dbLaunch) domain.Launch {
	return domain.Launch{
		ID:           row.ID,
		Name:         row.Name,
		FlightNumber: row.FlightNumber,
		DateUTC:      parseTime(row.DateUTC),
		Launchpad:    row.LaunchpadID,
		Success:      row.Success,
		Links:        domain.Links{Wikipedia: row.Wikipedia},
	}
}

func fromDomainLaunch(launchpadID string, l domain.Launch, fetchedAt time.Time) *dbLaunch {
	return &dbLaunch{
		ID:           l.ID,
		LaunchpadID:  launchpadID,
		Name:         l.Name,
		FlightNumber: l.FlightNumber,
		DateUTC:      formatTime(l.DateUTC),
		Success:      l.Success,
		Wikipedia:    l.Links.Wikipedia,
		FetchedAt:    formatTime(fetchedAt),
	}
}

// ReplaceLaunchpads deletes every stored launchpad and inserts the batch in a
// single transaction. Stored launches are left untouched.
func (repo *Repository) ReplaceLaunchpads(launchpads []domain.Launchpad) error {
	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM launchpad`); err != nil {
		return fmt.Errorf("clearing launchpads: %w", err)
	}

	now := time.Now()
	query := `INSERT INTO launchpad (id, name, full_name, locality, region, status, launch_attempts, launch_successes, launches, fetched_at)
	          VALUES (:id, :name, :full_name, :locality, :region, :status, :launch_attempts, :launch_successes, :launches, :fetched_at)`
	for _, lp := range launchpads {
		if _, err := tx.NamedExec(query, fromDomainLaunchpad(lp, now)); err != nil {
			return fmt.Errorf("inserting launchpad %s: %w", lp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing launchpads: %w", err)
	}
	return nil
}

// GetLaunchpads returns the stored launchpads in insertion order.
func (repo *Repository) GetLaunchpads() ([]domain.Launchpad, error) {
	var rows []*dbLaunchpad
	query := `SELECT id, name, full_name, locality, region, status, launch_attempts, launch_successes, launches, fetched_at
	          FROM launchpad ORDER BY rowid`

	err := repo.dbConn.Select(&rows, query)
	if err != nil {
		return nil, fmt.Errorf("getting launchpads: %w", err)
	}

	launchpads := make([]domain.Launchpad, len(rows))
	for i, row := range rows {
		launchpads[i] = toDomainLaunchpad(row)
	}
	return launchpads, nil
}

// ReplaceLaunches swaps the stored launches of launchpadID for the batch in a
// single transaction. The batch's launches are stored under launchpadID
// whatever their own Launchpad field says.
func (repo *Repository) ReplaceLaunches(launchpadID string, launches []domain.Launch) error {
	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM launch WHERE launchpad_id = ?`, launchpadID); err != nil {
		return fmt.Errorf("clearing launches of %s: %w", launchpadID, err)
	}

	now := time.Now()
	query := `INSERT INTO launch (id, launchpad_id, name, flight_number, date_utc, success, wikipedia, fetched_at)
	          VALUES (:id, :launchpad_id, :name, :flight_number, :date_utc, :success, :wikipedia, :fetched_at)`
	for _, l := range launches {
		if _, err := tx.NamedExec(query, fromDomainLaunch(launchpadID, l, now)); err != nil {
			return fmt.Errorf("inserting launch %s: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing launches of %s: %w", launchpadID, err)
	}
	return nil
}

// GetLaunches returns the stored launches of launchpadID in insertion order.
func (repo *Repository) GetLaunches(launchpadID string) ([]domain.Launch, error) {
	var rows []*dbLaunch
	query := `SELECT id, launchpad_id, name, flight_number, date_utc, success, wikipedia, fetched_at
	          FROM launch WHERE launchpad_id = ? ORDER BY rowid`

	err := repo.dbConn.Select(&rows, query, launchpadID)
	if err != nil {
		return nil, fmt.Errorf("getting launches of %s: %w", launchpadID, err)
	}

	launches := make([]domain.Launch, len(rows))
	for i, row := range rows {
		launches[i] = toDomainLaunch(row)
	}
	return launches, nil
}
