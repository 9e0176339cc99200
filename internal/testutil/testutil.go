// Package testutil provides shared test helpers for setting up data files and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/epiledger/internal/index"
	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "epiledger-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestStore creates a CSV store backed by a file in a temporary directory.
// The file does not exist until the first save.
func TestStore(t *testing.T) *storage.CSV {
	t.Helper()
	store, err := storage.NewCSV(filepath.Join(t.TempDir(), "covid_data.csv"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// SeedStore saves records to store.
func SeedStore(t *testing.T, store storage.Provider, records ...models.Record) {
	t.Helper()
	if err := store.Save(models.Collection(records)); err != nil {
		t.Fatal(err)
	}
}

// Record builds a record dated 2021-01-day.
func Record(city string, day, cases, recovered, deaths int) models.Record {
	return models.Record{
		City:      city,
		Date:      time.Date(2021, time.January, day, 0, 0, 0, 0, time.UTC),
		Cases:     cases,
		Recovered: recovered,
		Deaths:    deaths,
	}
}
