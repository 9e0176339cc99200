package storage

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/checksum"
	"github.com/starford/epiledger/internal/models"
)

const utf8BOM = "\ufeff"

// CSV implements Provider backed by a single comma-separated file.
type CSV struct {
	path string // absolute path to the data file
}

// NewCSV creates a provider for the file at path. The file need not exist yet,
// but path must not name a directory.
func NewCSV(path string) (*CSV, error) {
	if path == "" {
		return nil, errors.New("storage: data path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: data path is a directory: %s", abs)
	}
	return &CSV{path: abs}, nil
}

// Load reads the data file at path. Shorthand for NewCSV(path).Load().
func Load(path string) (models.Collection, error) {
	s, err := NewCSV(path)
	if err != nil {
		return nil, err
	}
	return s.Load()
}

// Save writes c to the data file at path. Shorthand for NewCSV(path).Save(c).
func Save(c models.Collection, path string) error {
	s, err := NewCSV(path)
	if err != nil {
		return err
	}
	return s.Save(c)
}

// Path returns the absolute data file path.
func (s *CSV) Path() string {
	return s.path
}

// Load reads and decodes every row. A missing or zero-length file is an empty
// collection; a header other than models.Header is apperr.ErrFormat.
func (s *CSV) Load() (models.Collection, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Collection{}, nil
		}
		return nil, fmt.Errorf("storage: open %s: %w", s.path, err)
	}
	defer f.Close()
	return decode(f)
}

func decode(src io.Reader) (models.Collection, error) {
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1 // column count is checked per row to report ErrFormat

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return models.Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: %w: header: %v", apperr.ErrFormat, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	if !equalHeader(header) {
		return nil, fmt.Errorf("storage: %w: header %q, want %q",
			apperr.ErrFormat, strings.Join(header, ","), strings.Join(models.Header, ","))
	}

	out := models.Collection{}
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("storage: %w: %v", apperr.ErrFormat, err)
		}
		line, _ := r.FieldPos(0)
		rec, err := models.RecordFromRow(row, line)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func equalHeader(h []string) bool {
	if len(h) != len(models.Header) {
		return false
	}
	for i, name := range models.Header {
		if strings.TrimSpace(h[i]) != name {
			return false
		}
	}
	return true
}

// Save encodes the header and every record in order, then atomically
// replaces the data file: tmp file → fsync → rename.
func (s *CSV) Save(c models.Collection) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(models.Header); err != nil {
		return fmt.Errorf("storage: encode header: %w", err)
	}
	for _, rec := range c {
		if err := w.Write(rec.Row()); err != nil {
			return fmt.Errorf("storage: encode record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	return writeAtomic(s.path, buf.Bytes())
}

// Checksum returns the digest of the current file contents.
func (s *CSV) Checksum() (string, error) {
	return checksum.File(s.path)
}

func writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".epiledger-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
