// Package apperr holds the sentinel errors shared across epiledger layers.
package apperr

import "errors"

var (
	// ErrFormat means the data file exists but its header or columns are malformed.
	ErrFormat = errors.New("format error")
	// ErrParse means a date or count could not be parsed from text.
	ErrParse = errors.New("parse error")
	// ErrEmptyInput means an analysis was requested over zero records.
	ErrEmptyInput = errors.New("no data available")
	// ErrInvalidRecord means a record failed validation.
	ErrInvalidRecord = errors.New("invalid record")
	// ErrNotFound means a requested city has no records.
	ErrNotFound = errors.New("not found")
	// ErrPersistence means a record was appended in memory but the save failed.
	// The collection and the file disagree until the next successful save.
	ErrPersistence = errors.New("persistence inconsistency")
)
