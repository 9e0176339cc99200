package index

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "epiledger-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func rec(city string, d, cases int) models.Record {
	return models.Record{
		City:  city,
		Date:  time.Date(2021, time.January, d, 0, 0, 0, 0, time.UTC),
		Cases: cases,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records`).Scan(&count); err != nil {
		t.Fatalf("records table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM meta`).Scan(&count); err != nil {
		t.Fatalf("meta table missing: %v", err)
	}
}

func TestReplaceAndChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.Replace(models.Collection{rec("A", 1, 10)}, "abc123"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	cs, err := db.Checksum()
	if err != nil {
		t.Fatalf("Checksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	if err := db.Replace(models.Collection{rec("B", 2, 20), rec("C", 3, 30)}, "def456"); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, total, err := db.ListRecords("", 0, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if total != 2 || len(got) != 2 || got[0].City != "B" {
		t.Errorf("after replace got %+v (total %d), want B and C only", got, total)
	}
}

func TestChecksum_Empty(t *testing.T) {
	db := testDB(t)
	cs, err := db.Checksum()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListRecords_FilterAndPaging(t *testing.T) {
	db := testDB(t)
	c := models.Collection{
		rec("A", 1, 1), rec("B", 1, 2), rec("A", 3, 3), rec("A", 2, 4),
	}
	if err := db.Replace(c, "x"); err != nil {
		t.Fatal(err)
	}

	got, total, err := db.ListRecords("A", 0, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if total != 3 || len(got) != 3 {
		t.Fatalf("total=%d len=%d, want 3/3", total, len(got))
	}
	wantCases := []int{1, 3, 4}
	for i, r := range got {
		if r.Cases != wantCases[i] {
			t.Errorf("row %d cases = %d, want %d (insertion order)", i, r.Cases, wantCases[i])
		}
	}
	if !got[1].Date.Equal(time.Date(2021, time.January, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v, want 2021-01-03", got[1].Date)
	}

	page, total, err := db.ListRecords("", 2, 1)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if total != 4 || len(page) != 2 || page[0].City != "B" || page[1].Cases != 3 {
		t.Errorf("page = %+v (total %d)", page, total)
	}

	none, total, err := db.ListRecords("Nowhere", 10, 0)
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if total != 0 || none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v (total %d)", none, total)
	}
}

func TestCityTotals_FirstAppearanceOrder(t *testing.T) {
	db := testDB(t)
	c := models.Collection{rec("B", 1, 5), rec("A", 1, 600), rec("B", 2, 7), rec("A", 2, 600)}
	if err := db.Replace(c, "x"); err != nil {
		t.Fatal(err)
	}
	totals, err := db.CityTotals()
	if err != nil {
		t.Fatalf("CityTotals: %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("len = %d, want 2", len(totals))
	}
	if totals[0].City != "B" || totals[0].TotalCases != 12 {
		t.Errorf("totals[0] = %+v, want B/12", totals[0])
	}
	if totals[1].City != "A" || totals[1].TotalCases != 1200 {
		t.Errorf("totals[1] = %+v, want A/1200", totals[1])
	}
}

func TestSync_RebuildsOnlyOnChange(t *testing.T) {
	db := testDB(t)
	store, err := storage.NewCSV(filepath.Join(t.TempDir(), "data.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(models.Collection{rec("A", 1, 10)}); err != nil {
		t.Fatal(err)
	}

	rebuilt, err := Sync(db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !rebuilt {
		t.Error("first sync should rebuild")
	}

	rebuilt, err = Sync(db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if rebuilt {
		t.Error("unchanged file should not rebuild")
	}

	if err := store.Save(models.Collection{rec("A", 1, 10), rec("B", 2, 20)}); err != nil {
		t.Fatal(err)
	}
	rebuilt, err = Sync(db, store, quietLogger())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !rebuilt {
		t.Error("changed file should rebuild")
	}
	_, total, _ := db.ListRecords("", 0, 0)
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
}

func TestSync_BadFileLeavesIndex(t *testing.T) {
	db := testDB(t)
	path := filepath.Join(t.TempDir(), "data.csv")
	store, err := storage.NewCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(models.Collection{rec("A", 1, 10)}); err != nil {
		t.Fatal(err)
	}
	if _, err := Sync(db, store, quietLogger()); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte("Town,Day\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Sync(db, store, quietLogger()); err == nil {
		t.Fatal("expected error for malformed header")
	}
	_, total, _ := db.ListRecords("", 0, 0)
	if total != 1 {
		t.Errorf("index should keep last good mirror, total = %d", total)
	}
}
