package domain

import "time"

// StatsRepository counts what the snapshot store currently holds.
type StatsRepository interface {
	// CountLaunchpads returns the number of stored launchpads.
	CountLaunchpads() (int, error)
	// CountLaunches returns the number of stored launches across all launchpads.
	CountLaunches() (int, error)
	// CountLogs returns the number of persisted log entries.
	CountLogs() (int, error)
	// LastFetched returns when the most recent snapshot row was stored, or the
	// zero time when the store is empty.
	LastFetched() (time.Time, error)
}
