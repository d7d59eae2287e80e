package gantry

import (
	"context"
	"strings"
	"sync"

	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/table"
)

// LaunchFields are the sortable launch columns.
var LaunchFields = []string{"id", "name", "wikipedia", "success"}

var launchComparators = table.Comparators[domain.Launch]{
	"id":   func(a, b domain.Launch) int { return strings.Compare(a.ID, b.ID) },
	"name": func(a, b domain.Launch) int { return table.CompareFold(a.Name, b.Name) },
	"wikipedia": func(a, b domain.Launch) int {
		return table.CompareFold(a.Links.Wikipedia, b.Links.Wikipedia)
	},
	"success": func(a, b domain.Launch) int { return table.CompareBool(a.Success, b.Success) },
}

func matchLaunch(l domain.Launch, needle string) bool {
	return table.Contains(l.Name, needle)
}

// LaunchSource is the data source of the launch table. It is scoped to one
// launchpad, set with SetLaunchpadID before connecting.
type LaunchSource struct {
	*table.DataSource[domain.Launch]

	mu          sync.Mutex
	launchpadID string
}

// NewLaunchSource creates a launch data source reading from c.
func NewLaunchSource(c domain.Catalog, options ...func(*table.DataSource[domain.Launch]) error) (*LaunchSource, error) {
	fetch := table.FetchFunc[domain.Launch](func(ctx context.Context, launchpadID string) ([]domain.Launch, error) {
		return c.FetchLaunches(ctx, launchpadID)
	})
	base := []func(*table.DataSource[domain.Launch]) error{
		table.WithMatch[domain.Launch](matchLaunch),
		table.WithComparators[domain.Launch](launchComparators),
	}
	ds, err := table.New[domain.Launch](fetch, append(base, options...)...)
	if err != nil {
		return nil, err
	}
	return &LaunchSource{DataSource: ds}, nil
}

// SetLaunchpadID sets the scope used by the next Connect.
func (s *LaunchSource) SetLaunchpadID(id string) {
	s.mu.Lock()
	s.launchpadID = id
	s.mu.Unlock()
}

// LaunchpadID returns the scope used by the next Connect.
func (s *LaunchSource) LaunchpadID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launchpadID
}

// Connect fetches the launches of the current launchpad and streams the table pages.
func (s *LaunchSource) Connect(ctx context.Context) (<-chan table.Emission[domain.Launch], error) {
	return s.DataSource.Connect(ctx, s.LaunchpadID())
}

// NewLaunchSource creates a launch data source for launchpadID bound to the
// app's catalog, with controls sized from the configuration.
func (app *App) NewLaunchSource(launchpadID string) (*LaunchSource, *table.Paginator, *table.Sorter, error) {
	c, err := app.Source()
	if err != nil {
		return nil, nil, nil, err
	}
	paginator := table.NewPaginator(app.Config.PageSize)
	sorter := table.NewSorter("", table.None)
	s, err := NewLaunchSource(c,
		table.WithControls[domain.Launch](paginator, sorter),
		table.WithLogger[domain.Launch](app.Logger.With("table", "launches", "launchpad", launchpadID)),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	s.SetLaunchpadID(launchpadID)
	return s, paginator, sorter, nil
}
