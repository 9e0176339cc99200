// Package models defines the domain types for epiledger.
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/parser"
)

// Header is the fixed column order of the persisted file.
var Header = []string{"City", "Date", "Cases", "Recovered", "Deaths"}

// Record is one daily observation for a city.
type Record struct {
	City      string
	Date      time.Time
	Cases     int
	Recovered int
	Deaths    int
}

// NewRecord builds a validated record, parsing dateText as a free-form date.
func NewRecord(city, dateText string, cases, recovered, deaths int) (Record, error) {
	date, err := parser.ParseDate(dateText)
	if err != nil {
		return Record{}, err
	}
	r := Record{
		City:      strings.TrimSpace(city),
		Date:      date,
		Cases:     cases,
		Recovered: recovered,
		Deaths:    deaths,
	}
	if err := r.Validate(); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.City, validation.Required),
		validation.Field(&r.Date, validation.Required),
		validation.Field(&r.Cases, validation.Min(0)),
		validation.Field(&r.Recovered, validation.Min(0)),
		validation.Field(&r.Deaths, validation.Min(0)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidRecord, err)
	}
	return nil
}

// Row encodes the record as a CSV row in Header order.
func (r Record) Row() []string {
	return []string{
		r.City,
		parser.FormatDate(r.Date),
		strconv.Itoa(r.Cases),
		strconv.Itoa(r.Recovered),
		strconv.Itoa(r.Deaths),
	}
}

// RecordFromRow decodes a CSV row. line is the 1-based file line used in errors.
func RecordFromRow(row []string, line int) (Record, error) {
	if len(row) != len(Header) {
		return Record{}, fmt.Errorf("%w: line %d: expected %d columns, got %d",
			apperr.ErrFormat, line, len(Header), len(row))
	}
	date, err := parser.ParseDate(row[1])
	if err != nil {
		return Record{}, fmt.Errorf("line %d: %w", line, err)
	}
	counts := make([]int, 3)
	for i := range counts {
		n, err := parser.ParseCount(Header[i+2], row[i+2])
		if err != nil {
			return Record{}, fmt.Errorf("line %d: %w", line, err)
		}
		counts[i] = n
	}
	return Record{
		City:      row[0],
		Date:      date,
		Cases:     counts[0],
		Recovered: counts[1],
		Deaths:    counts[2],
	}, nil
}

// String renders the record the way the list view prints it.
func (r Record) String() string {
	return fmt.Sprintf("City: %s, Date: %s, Cases: %d, Recovered: %d, Deaths: %d",
		r.City, parser.FormatDate(r.Date), r.Cases, r.Recovered, r.Deaths)
}

type recordJSON struct {
	City      string `json:"city"`
	Date      string `json:"date"`
	Cases     int    `json:"cases"`
	Recovered int    `json:"recovered"`
	Deaths    int    `json:"deaths"`
}

// MarshalJSON writes the date in YYYY-MM-DD form.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		City:      r.City,
		Date:      parser.FormatDate(r.Date),
		Cases:     r.Cases,
		Recovered: r.Recovered,
		Deaths:    r.Deaths,
	})
}

// UnmarshalJSON accepts any date form ParseDate understands.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	date, err := parser.ParseDate(raw.Date)
	if err != nil {
		return err
	}
	*r = Record{City: raw.City, Date: date, Cases: raw.Cases, Recovered: raw.Recovered, Deaths: raw.Deaths}
	return nil
}
