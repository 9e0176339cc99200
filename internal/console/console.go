// Package console renders records and analyses as text or JSON and runs the
// interactive menu. It is the presentation side of the CLI commands.
package console

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/starford/epiledger/internal/analysis"
	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/parser"
	"github.com/starford/epiledger/internal/recordservice"
)

// NoDataMessage is printed wherever there is nothing to show.
const NoDataMessage = "No data available."

// Console writes command output for one service.
type Console struct {
	svc *recordservice.Service
	out io.Writer
}

// New creates a console writing to out.
func New(svc *recordservice.Service, out io.Writer) *Console {
	return &Console{svc: svc, out: out}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

func (c *Console) printJSON(v any) error {
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Add appends a record and confirms it. On apperr.ErrPersistence the record
// stays in memory and the error is returned after a warning.
func (c *Console) Add(ctx context.Context, in recordservice.AddInput) error {
	rec, err := c.svc.Add(ctx, in)
	if err != nil {
		if errors.Is(err, apperr.ErrPersistence) {
			c.printf("Warning: data for %s is held in memory but could not be saved.\n", rec.City)
		}
		return err
	}
	c.printf("Data for %s on %s added successfully!\n", rec.City, parser.FormatDate(rec.Date))
	return nil
}

// List prints every record, optionally for one city.
func (c *Console) List(ctx context.Context, city string, asJSON bool) error {
	records, _, err := c.svc.List(ctx, recordservice.ListQuery{City: city})
	if err != nil {
		return err
	}
	if asJSON {
		return c.printJSON(records)
	}
	if len(records) == 0 {
		c.printf("%s\n", NoDataMessage)
		return nil
	}
	for _, r := range records {
		c.printf("%s\n", r)
	}
	return nil
}

// RiskZones prints each city's tier in first-appearance order.
func (c *Console) RiskZones(ctx context.Context, asJSON bool) error {
	zones := c.svc.RiskZones(ctx)
	if asJSON {
		return c.printJSON(zones)
	}
	c.printf("\nRisk Zones:\n")
	if len(zones) == 0 {
		c.printf("%s\n", NoDataMessage)
		return nil
	}
	for _, z := range zones {
		c.printf("%s: %s\n", z.City, z.Tier)
	}
	return nil
}

// Trends prints the (date, cases) series for one city or all of them.
// The JSON form is what an external charting tool consumes.
func (c *Console) Trends(ctx context.Context, city string, asJSON bool) error {
	var series []analysis.Series
	if city == "" {
		series = c.svc.Trends(ctx)
	} else {
		one, err := c.svc.Trend(ctx, city)
		if err != nil {
			return err
		}
		series = []analysis.Series{one}
	}
	if asJSON {
		return c.printJSON(series)
	}
	if len(series) == 0 {
		c.printf("%s\n", NoDataMessage)
		return nil
	}
	for _, s := range series {
		c.printf("\nTrend for %s:\n", s.City)
		for _, p := range s.Points {
			c.printf("  %s  %d\n", parser.FormatDate(p.Date), p.Cases)
		}
	}
	return nil
}

// Hotspot prints the predicted hotspot. With no records it prints
// NoDataMessage and returns apperr.ErrEmptyInput.
func (c *Console) Hotspot(ctx context.Context, asJSON bool) error {
	hot, err := c.svc.Hotspot(ctx)
	if err != nil {
		if errors.Is(err, apperr.ErrEmptyInput) {
			c.printf("%s\n", NoDataMessage)
		}
		return err
	}
	if asJSON {
		return c.printJSON(hot)
	}
	c.printf("Predicted hotspot: %s with %d total cases.\n", hot.City, hot.TotalCases)
	return nil
}
