package gantry

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/tfkr-ae/gantry/db"
	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/table"
)

const streamTimeout = 2 * time.Second

var errBackend = errors.New("backend down")

// fakeCatalog serves fixed batches and counts fetches per scope.
type fakeCatalog struct {
	mu         sync.Mutex
	launchpads []domain.Launchpad
	launches   map[string][]domain.Launch
	err        error
	failScope  string
	calls      map[string]int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		launchpads: testLaunchpads(),
		launches: map[string][]domain.Launch{
			"vafb": {
				{ID: "l1", Name: "FalconSat", Launchpad: "vafb", Links: domain.Links{Wikipedia: "https://en.wikipedia.org/wiki/FalconSat"}},
				{ID: "l2", Name: "Starlink 2-1", Launchpad: "vafb", Success: true},
			},
			"ksc": {
				{ID: "l3", Name: "CRS-20", Launchpad: "ksc", Success: true},
			},
		},
		calls: map[string]int{},
	}
}

func (f *fakeCatalog) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeCatalog) callCount(scope string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[scope]
}

func (f *fakeCatalog) FetchLaunchpads(ctx context.Context) ([]domain.Launchpad, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[LaunchpadsScope]++
	if f.err != nil {
		return nil, f.err
	}
	return append([]domain.Launchpad(nil), f.launchpads...), nil
}

func (f *fakeCatalog) FetchLaunches(ctx context.Context, launchpadID string) ([]domain.Launch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[launchpadID]++
	if f.err != nil || launchpadID == f.failScope {
		return nil, errBackend
	}
	return append([]domain.Launch{}, f.launches[launchpadID]...), nil
}

// testLaunchpads is the three pad cache used by the table scenarios.
func testLaunchpads() []domain.Launchpad {
	return []domain.Launchpad{
		{ID: "vafb", Name: "Vandenberg", Region: "California", Status: domain.StatusRetired},
		{ID: "ksc", Name: "Kennedy", Region: "Florida", Status: domain.StatusActive},
		{ID: "stls", Name: "Boca Chica", Region: "Texas", Status: domain.StatusUnderConstruction},
	}
}

func setupTestRepo(t *testing.T) *db.Repository {
	t.Helper()
	tempFile, err := os.CreateTemp(t.TempDir(), "gantry_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	repo, err := db.Open(tempFile.Name())
	if err != nil {
		t.Fatalf("db.Open() failed: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func next[T any](t *testing.T, ch <-chan table.Emission[T]) table.Emission[T] {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("stream closed before an emission")
		}
		return e
	case <-time.After(streamTimeout):
		t.Fatal("timed out waiting for an emission")
	}
	return table.Emission[T]{}
}

func padNames(rows []domain.Launchpad) []string {
	names := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.Name
	}
	return names
}
