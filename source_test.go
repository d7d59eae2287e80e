package gantry

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/table"
)

func setupLaunchpadSource(t *testing.T, c domain.Catalog, size int, sort table.Sort) (*LaunchpadSource, *table.Paginator, *table.Sorter) {
	t.Helper()
	paginator := table.NewPaginator(size)
	sorter := table.NewSorter(sort.Active, sort.Direction)
	s, err := NewLaunchpadSource(c, table.WithControls[domain.Launchpad](paginator, sorter))
	if err != nil {
		t.Fatalf("creating launchpad source: %v", err)
	}
	t.Cleanup(s.Disconnect)
	return s, paginator, sorter
}

func TestLaunchpadSource(t *testing.T) {
	t.Run("should sort by name and page the batch", func(t *testing.T) {
		s, _, _ := setupLaunchpadSource(t, newFakeCatalog(), 2, table.Sort{Active: "name", Direction: table.Ascending})
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		e := next(t, ch)
		want := []string{"Boca Chica", "Kennedy"}
		if !reflect.DeepEqual(want, padNames(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, padNames(e.Rows))
		}
		if e.FilteredCount != 3 {
			t.Fatalf("\nwanted:\n3\ngot:\n%d", e.FilteredCount)
		}
	})

	t.Run("should filter on name or region", func(t *testing.T) {
		s, _, _ := setupLaunchpadSource(t, newFakeCatalog(), 2, table.Sort{})
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		s.SetFilter("ca")
		var e table.Emission[domain.Launchpad]
		for e.Trigger != table.TriggerFilter {
			e = next(t, ch)
		}
		want := []string{"Vandenberg", "Boca Chica"}
		if !reflect.DeepEqual(want, padNames(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, padNames(e.Rows))
		}
		if e.FilteredCount != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", e.FilteredCount)
		}
	})

	t.Run("should keep filtered order without a sort direction", func(t *testing.T) {
		s, _, sorter := setupLaunchpadSource(t, newFakeCatalog(), 5, table.Sort{})
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		sorter.SetSort("name", table.None)
		e := next(t, ch)
		want := []string{"Vandenberg", "Kennedy", "Boca Chica"}
		if !reflect.DeepEqual(want, padNames(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, padNames(e.Rows))
		}
	})

	t.Run("should sort by status ignoring case", func(t *testing.T) {
		s, _, sorter := setupLaunchpadSource(t, newFakeCatalog(), 5, table.Sort{})
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		sorter.SetSort("status", table.Descending)
		e := next(t, ch)
		want := []string{"Boca Chica", "Vandenberg", "Kennedy"}
		if !reflect.DeepEqual(want, padNames(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, padNames(e.Rows))
		}
	})

	t.Run("should report a failed fetch and retry on reconnect", func(t *testing.T) {
		c := newFakeCatalog()
		c.setErr(errBackend)
		s, _, _ := setupLaunchpadSource(t, c, 5, table.Sort{})

		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if e := next(t, ch); !errors.Is(e.Err, errBackend) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", errBackend, e.Err)
		}

		c.setErr(nil)
		ch, err = s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if e := next(t, ch); e.Err != nil || e.Total != 3 {
			t.Fatalf("\nwanted:\n3 rows\ngot:\n%d rows, err %v", e.Total, e.Err)
		}
		if got := c.callCount(LaunchpadsScope); got != 2 {
			t.Fatalf("\nwanted:\n2 fetches\ngot:\n%d", got)
		}
	})
}

func TestLaunchSource(t *testing.T) {
	setup := func(t *testing.T, c domain.Catalog) (*LaunchSource, *table.Sorter) {
		t.Helper()
		sorter := table.NewSorter("", table.None)
		s, err := NewLaunchSource(c, table.WithControls[domain.Launch](table.NewPaginator(5), sorter))
		if err != nil {
			t.Fatalf("creating launch source: %v", err)
		}
		t.Cleanup(s.Disconnect)
		return s, sorter
	}

	t.Run("should fetch the launches of the launchpad set before connecting", func(t *testing.T) {
		c := newFakeCatalog()
		s, _ := setup(t, c)
		s.SetLaunchpadID("vafb")

		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		e := next(t, ch)
		if e.Total != 2 || c.callCount("vafb") != 1 {
			t.Fatalf("\nwanted:\n2 launches from one fetch\ngot:\n%d launches, %d fetches", e.Total, c.callCount("vafb"))
		}
	})

	t.Run("should match on name only", func(t *testing.T) {
		s, _ := setup(t, newFakeCatalog())
		s.SetLaunchpadID("vafb")
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		s.SetFilter("wikipedia")
		var e table.Emission[domain.Launch]
		for e.Trigger != table.TriggerFilter {
			e = next(t, ch)
		}
		if e.FilteredCount != 0 {
			t.Fatalf("\nwanted:\n0\ngot:\n%d", e.FilteredCount)
		}
	})

	t.Run("should sort failures before successes", func(t *testing.T) {
		s, sorter := setup(t, newFakeCatalog())
		s.SetLaunchpadID("vafb")
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		sorter.SetSort("success", table.Descending)
		e := next(t, ch)
		if e.Rows[0].Name != "Starlink 2-1" {
			t.Fatalf("\nwanted:\nStarlink 2-1\ngot:\n%s", e.Rows[0].Name)
		}
	})

	t.Run("should scope the error to the launchpad", func(t *testing.T) {
		c := newFakeCatalog()
		c.failScope = "ksc"
		s, _ := setup(t, c)
		s.SetLaunchpadID("ksc")
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		var fetchErr *table.FetchError
		if e := next(t, ch); !errors.As(e.Err, &fetchErr) || fetchErr.Scope != "ksc" {
			t.Fatalf("\nwanted:\nfetch error for ksc\ngot:\n%v", e.Err)
		}
	})
}

func TestAppSources(t *testing.T) {
	t.Run("should size the paginator from the config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PageSize = 2
		app, err := New(WithConfig(cfg), WithCatalog(newFakeCatalog()))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		s, paginator, _, err := app.NewLaunchpadSource()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		defer s.Disconnect()
		if got := paginator.Page().Size; got != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", got)
		}

		ls, _, _, err := app.NewLaunchSource("ksc")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		defer ls.Disconnect()
		if got := ls.LaunchpadID(); got != "ksc" {
			t.Fatalf("\nwanted:\nksc\ngot:\n%s", got)
		}
	})

	t.Run("should fail without a catalog", func(t *testing.T) {
		app, err := New()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if _, _, _, err := app.NewLaunchpadSource(); !errors.Is(err, ErrNoCatalog) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoCatalog, err)
		}
	})
}

// mixedCaseCatalog returns rows whose ids only sort differently when case is
// taken into account.
type mixedCaseCatalog struct{}

func (mixedCaseCatalog) FetchLaunchpads(ctx context.Context) ([]domain.Launchpad, error) {
	return []domain.Launchpad{{ID: "a", Name: "Alpha"}, {ID: "B", Name: "Bravo"}, {ID: "c", Name: "Charlie"}}, nil
}

func (mixedCaseCatalog) FetchLaunches(ctx context.Context, launchpadID string) ([]domain.Launch, error) {
	return []domain.Launch{{ID: "a", Name: "Alpha"}, {ID: "B", Name: "Bravo"}, {ID: "c", Name: "Charlie"}}, nil
}

func TestIDComparators(t *testing.T) {
	t.Run("should sort launchpad ids by raw value", func(t *testing.T) {
		s, _, _ := setupLaunchpadSource(t, mixedCaseCatalog{}, 5, table.Sort{Active: "id", Direction: table.Ascending})
		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		e := next(t, ch)
		want := []string{"Bravo", "Alpha", "Charlie"}
		if !reflect.DeepEqual(want, padNames(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, padNames(e.Rows))
		}
	})

	t.Run("should sort launch ids by raw value", func(t *testing.T) {
		paginator := table.NewPaginator(5)
		sorter := table.NewSorter("id", table.Descending)
		s, err := NewLaunchSource(mixedCaseCatalog{}, table.WithControls[domain.Launch](paginator, sorter))
		if err != nil {
			t.Fatalf("creating launch source: %v", err)
		}
		t.Cleanup(s.Disconnect)
		s.SetLaunchpadID("pad")

		ch, err := s.Connect(context.Background())
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		e := next(t, ch)
		got := make([]string, len(e.Rows))
		for i, l := range e.Rows {
			got[i] = l.ID
		}
		want := []string{"c", "a", "B"}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
	})
}
