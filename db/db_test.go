package db

import (
	"os"
	"testing"
	"time"

	"github.com/tfkr-ae/gantry/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	repo, err := Open(tempFile.Name())
	if err != nil {
		t.Fatalf("db.Open() failed: %v", err)
	}

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testLaunchpads() []domain.Launchpad {
	return []domain.Launchpad{
		{
			ID:              "5e9e4502f5090995de566f86",
			Name:            "Kwajalein Atoll",
			FullName:        "Kwajalein Atoll Omelek Island",
			Locality:        "Omelek Island",
			Region:          "Marshall Islands",
			Status:          domain.StatusRetired,
			LaunchAttempts:  5,
			LaunchSuccesses: 2,
			Launches:        []string{"5eb87cd9ffd86e000604b32a", "5eb87cdaffd86e000604b32b"},
		},
		{
			ID:       "5e9e4501f509094ba4566f84",
			Name:     "CCSFS SLC 40",
			Region:   "Florida",
			Status:   domain.StatusActive,
			Launches: []string{},
		},
	}
}

func testLaunches(launchpadID string) []domain.Launch {
	return []domain.Launch{
		{
			ID:           "5eb87cd9ffd86e000604b32a",
			Name:         "FalconSat",
			FlightNumber: 1,
			DateUTC:      time.Date(2006, 3, 24, 22, 30, 0, 0, time.UTC),
			Launchpad:    launchpadID,
			Success:      false,
			Links:        domain.Links{Wikipedia: "https://en.wikipedia.org/wiki/DemoSat"},
		},
		{
			ID:           "5eb87cdaffd86e000604b32b",
			Name:         "DemoSat",
			FlightNumber: 2,
			DateUTC:      time.Date(2007, 3, 21, 1, 10, 0, 0, time.UTC),
			Launchpad:    launchpadID,
		},
	}
}

func TestNew(t *testing.T) {
	t.Run("should apply migrations on a fresh file", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		var columns int
		err := repo.dbConn.Get(&columns, `SELECT COUNT(*) FROM pragma_table_info('launch') WHERE name = 'fetched_at'`)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if columns != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", columns)
		}
	})

	t.Run("should reopen an existing file without error", func(t *testing.T) {
		path := t.TempDir() + "/gantry.db"
		first, err := Open(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := first.ReplaceLaunchpads(testLaunchpads()); err != nil {
			t.Fatalf("replacing launchpads: %v", err)
		}
		first.Close()

		second, err := Open(path)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		defer second.Close()

		got, err := second.CountLaunchpads()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", got)
		}
	})
}
