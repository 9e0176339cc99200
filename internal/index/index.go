package index

import (
	"github.com/starford/epiledger/internal/analysis"
	"github.com/starford/epiledger/internal/models"
)

// RecordIndex defines the query side of the record mirror.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type RecordIndex interface {
	Replace(c models.Collection, checksum string) error
	Checksum() (string, error)
	ListRecords(city string, limit, offset int) ([]models.Record, int, error)
	CityTotals() ([]analysis.CityTotal, error)
	Close() error
}

// Verify *DB satisfies RecordIndex at compile time.
var _ RecordIndex = (*DB)(nil)
