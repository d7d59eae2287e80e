package gantry

import (
	"context"
	"strings"

	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/table"
)

// LaunchpadsScope names the launchpad table in logs. The data source itself
// is unscoped.
const LaunchpadsScope = "launchpads"

// LaunchpadFields are the sortable launchpad columns.
var LaunchpadFields = []string{"id", "name", "region", "status"}

var launchpadComparators = table.Comparators[domain.Launchpad]{
	"id":     func(a, b domain.Launchpad) int { return strings.Compare(a.ID, b.ID) },
	"name":   func(a, b domain.Launchpad) int { return table.CompareFold(a.Name, b.Name) },
	"region": func(a, b domain.Launchpad) int { return table.CompareFold(a.Region, b.Region) },
	"status": func(a, b domain.Launchpad) int { return table.CompareFold(a.Status, b.Status) },
}

// matchLaunchpad keeps launchpads whose name or region contains the needle.
func matchLaunchpad(l domain.Launchpad, needle string) bool {
	return table.Contains(l.Name, needle) || table.Contains(l.Region, needle)
}

// LaunchpadSource is the data source of the launchpad table.
type LaunchpadSource struct {
	*table.DataSource[domain.Launchpad]
}

// NewLaunchpadSource creates a launchpad data source reading from c.
func NewLaunchpadSource(c domain.Catalog, options ...func(*table.DataSource[domain.Launchpad]) error) (*LaunchpadSource, error) {
	fetch := table.FetchFunc[domain.Launchpad](func(ctx context.Context, scope string) ([]domain.Launchpad, error) {
		return c.FetchLaunchpads(ctx)
	})
	base := []func(*table.DataSource[domain.Launchpad]) error{
		table.WithMatch[domain.Launchpad](matchLaunchpad),
		table.WithComparators[domain.Launchpad](launchpadComparators),
	}
	ds, err := table.New[domain.Launchpad](fetch, append(base, options...)...)
	if err != nil {
		return nil, err
	}
	return &LaunchpadSource{DataSource: ds}, nil
}

// Connect fetches the launchpad batch and streams the table pages.
func (s *LaunchpadSource) Connect(ctx context.Context) (<-chan table.Emission[domain.Launchpad], error) {
	return s.DataSource.Connect(ctx, "")
}

// NewLaunchpadSource creates a launchpad data source bound to the app's
// catalog, with controls sized from the configuration.
func (app *App) NewLaunchpadSource() (*LaunchpadSource, *table.Paginator, *table.Sorter, error) {
	c, err := app.Source()
	if err != nil {
		return nil, nil, nil, err
	}
	paginator := table.NewPaginator(app.Config.PageSize)
	sorter := table.NewSorter("", table.None)
	s, err := NewLaunchpadSource(c,
		table.WithControls[domain.Launchpad](paginator, sorter),
		table.WithLogger[domain.Launchpad](app.Logger.With("table", LaunchpadsScope)),
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return s, paginator, sorter, nil
}
