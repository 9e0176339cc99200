package index

import (
	"log/slog"

	"github.com/starford/epiledger/internal/storage"
)

// Sync brings the index up to date with the data file. The mirror is only
// rebuilt when the file checksum differs from the one stored with it.
// It reports whether a rebuild happened.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) (bool, error) {
	cs, err := store.Checksum()
	if err != nil {
		return false, err
	}
	stored, err := db.Checksum()
	if err != nil {
		return false, err
	}
	if stored != "" && stored == cs {
		logger.Debug("sync: index current", slog.String("checksum", cs))
		return false, nil
	}

	c, err := store.Load()
	if err != nil {
		return false, err
	}
	if err := db.Replace(c, cs); err != nil {
		return false, err
	}
	logger.Debug("sync: index rebuilt", slog.Int("records", len(c)), slog.String("checksum", cs))
	return true, nil
}
