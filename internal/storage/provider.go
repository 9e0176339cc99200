// Package storage owns the durability contract of the record collection:
// the whole collection is loaded once and rewritten on every mutation.
package storage

import (
	"fmt"

	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/models"
)

// Provider is the interface for collection persistence.
type Provider interface {
	// Path returns the absolute path of the backing file.
	Path() string
	// Load reads the full collection. A missing file yields an empty collection.
	Load() (models.Collection, error)
	// Save replaces the backing file with the given collection.
	Save(c models.Collection) error
	// Checksum fingerprints the current file contents ("" if absent).
	Checksum() (string, error)
}

// Append adds r to the end of c and saves the whole collection.
// A failed save leaves r in c; the error then wraps apperr.ErrPersistence
// and the caller must re-save or reload to get back in sync.
func Append(p Provider, c *models.Collection, r models.Record) error {
	c.Append(r)
	if err := p.Save(*c); err != nil {
		return fmt.Errorf("storage: append: %w: %w", apperr.ErrPersistence, err)
	}
	return nil
}
