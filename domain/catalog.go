package domain

import "context"

// Catalog is the source of launchpad and launch batches. Implementations make
// no promise about the order of the returned rows.
type Catalog interface {
	// FetchLaunchpads returns the bounded batch of launchpads.
	FetchLaunchpads(ctx context.Context) ([]Launchpad, error)
	// FetchLaunches returns the bounded batch of launches made from launchpadID.
	FetchLaunches(ctx context.Context, launchpadID string) ([]Launch, error)
}

// SnapshotRepository stores the last batch fetched for each scope, so the
// tables can be browsed offline.
type SnapshotRepository interface {
	// ReplaceLaunchpads swaps the stored launchpads for the given batch.
	ReplaceLaunchpads(launchpads []Launchpad) error
	// GetLaunchpads returns the stored launchpads.
	GetLaunchpads() ([]Launchpad, error)
	// ReplaceLaunches swaps the stored launches of launchpadID for the given batch.
	ReplaceLaunches(launchpadID string, launches []Launch) error
	// GetLaunches returns the stored launches of launchpadID.
	GetLaunches(launchpadID string) ([]Launch, error)
}
