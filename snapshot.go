package gantry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/tfkr-ae/gantry/domain"
	"golang.org/x/sync/errgroup"
)

// Recorder is a catalog that stores every batch it fetches in a snapshot
// repository. Storage failures are logged and never reach the caller.
type Recorder struct {
	Catalog domain.Catalog
	Store   domain.SnapshotRepository
	Logger  *slog.Logger
}

var _ domain.Catalog = (*Recorder)(nil)

func (r *Recorder) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Logger
}

// FetchLaunchpads fetches from the wrapped catalog and stores the batch.
func (r *Recorder) FetchLaunchpads(ctx context.Context) ([]domain.Launchpad, error) {
	launchpads, err := r.Catalog.FetchLaunchpads(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.Store.ReplaceLaunchpads(launchpads); err != nil {
		r.logger().Warn("recording launchpads", "error", err)
	}
	return launchpads, nil
}

// FetchLaunches fetches from the wrapped catalog and stores the batch.
func (r *Recorder) FetchLaunches(ctx context.Context, launchpadID string) ([]domain.Launch, error) {
	launches, err := r.Catalog.FetchLaunches(ctx, launchpadID)
	if err != nil {
		return nil, err
	}
	if err := r.Store.ReplaceLaunches(launchpadID, launches); err != nil {
		r.logger().Warn("recording launches", "launchpad", launchpadID, "error", err)
	}
	return launches, nil
}

// Offline is a catalog that reads the last recorded snapshots.
type Offline struct {
	Store domain.SnapshotRepository
}

var _ domain.Catalog = Offline{}

// FetchLaunchpads returns the stored launchpads.
func (o Offline) FetchLaunchpads(ctx context.Context) ([]domain.Launchpad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.Store.GetLaunchpads()
}

// FetchLaunches returns the stored launches of launchpadID.
func (o Offline) FetchLaunches(ctx context.Context, launchpadID string) ([]domain.Launch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return o.Store.GetLaunches(launchpadID)
}

// Source returns the catalog tables read from: the snapshot store in offline
// mode, otherwise the live catalog, recorded when a repository is set.
func (app *App) Source() (domain.Catalog, error) {
	if app.Config.Offline {
		if app.Repo == nil {
			return nil, fmt.Errorf("offline mode: %w", ErrNoRepository)
		}
		return Offline{Store: app.Repo}, nil
	}
	if app.Catalog == nil {
		return nil, ErrNoCatalog
	}
	if app.Repo == nil {
		return app.Catalog, nil
	}
	return &Recorder{Catalog: app.Catalog, Store: app.Repo, Logger: app.Logger}, nil
}

// SyncResult summarizes a Sync run.
type SyncResult struct {
	Launchpads int
	Launches   int
	Duration   time.Duration
}

// syncConcurrency bounds the launch fetches running at once.
const syncConcurrency = 4

// Sync fetches the launchpads and the launches of every launchpad from the
// live catalog and stores them, replacing the previous snapshots.
func (app *App) Sync(ctx context.Context) (SyncResult, error) {
	if app.Repo == nil {
		return SyncResult{}, ErrNoRepository
	}
	if app.Catalog == nil {
		return SyncResult{}, ErrNoCatalog
	}
	start := time.Now()

	launchpads, err := app.Catalog.FetchLaunchpads(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("syncing launchpads : %w", err)
	}

	counts := make([]int, len(launchpads))
	batches := make([][]domain.Launch, len(launchpads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(syncConcurrency)
	for i, launchpad := range launchpads {
		g.Go(func() error {
			launches, err := app.Catalog.FetchLaunches(gctx, launchpad.ID)
			if err != nil {
				return fmt.Errorf("syncing launches of %s : %w", launchpad.ID, err)
			}
			batches[i] = launches
			counts[i] = len(launches)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SyncResult{}, err
	}

	// nothing is stored until every fetch succeeded
	if err := app.Repo.ReplaceLaunchpads(launchpads); err != nil {
		return SyncResult{}, fmt.Errorf("storing launchpads : %w", err)
	}
	result := SyncResult{Launchpads: len(launchpads)}
	for i, launchpad := range launchpads {
		if err := app.Repo.ReplaceLaunches(launchpad.ID, batches[i]); err != nil {
			return SyncResult{}, fmt.Errorf("storing launches of %s : %w", launchpad.ID, err)
		}
		result.Launches += counts[i]
	}
	result.Duration = time.Since(start)

	app.Logger.Info("snapshot synced", "launchpads", result.Launchpads, "launches", result.Launches, "duration", result.Duration)
	return result, nil
}

// Stats summarizes the snapshot store.
type Stats struct {
	Launchpads  int       `json:"launchpads"`
	Launches    int       `json:"launches"`
	Logs        int       `json:"logs"`
	LastFetched time.Time `json:"last_fetched"`
}

// Stats counts what the snapshot store holds.
func (app *App) Stats() (Stats, error) {
	if app.Repo == nil {
		return Stats{}, ErrNoRepository
	}
	var (
		stats Stats
		err   error
	)
	if stats.Launchpads, err = app.Repo.CountLaunchpads(); err != nil {
		return Stats{}, fmt.Errorf("counting launchpads : %w", err)
	}
	if stats.Launches, err = app.Repo.CountLaunches(); err != nil {
		return Stats{}, fmt.Errorf("counting launches : %w", err)
	}
	if stats.Logs, err = app.Repo.CountLogs(); err != nil {
		return Stats{}, fmt.Errorf("counting logs : %w", err)
	}
	if stats.LastFetched, err = app.Repo.LastFetched(); err != nil {
		return Stats{}, fmt.Errorf("reading last fetch time : %w", err)
	}
	return stats, nil
}

// Logs returns the persisted log entries, oldest first.
func (app *App) Logs() ([]*domain.Log, error) {
	if app.Repo == nil {
		return nil, ErrNoRepository
	}
	return app.Repo.GetLogs()
}
