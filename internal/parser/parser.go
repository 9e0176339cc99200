// Package parser turns human-entered text into typed record fields:
// calendar dates from free-form date expressions and non-negative counts.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/starford/epiledger/internal/apperr"
)

// DateLayout is the normalized on-disk date form.
const DateLayout = "2006-01-02"

var (
	// daysAgoRe matches relative expressions like "3 days ago" or "1 day ago".
	daysAgoRe = regexp.MustCompile(`^(\d+)\s+days?\s+ago$`)
	// dateHintRe requires a month name, a separated day/month pair or a run of
	// digits. Time-only text such as "10:30" has none of them.
	dateHintRe = regexp.MustCompile(`(?i)\b(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\b|\d[/.\-]\d|\d{6,}`)
)

// ParseDate resolves a free-form date expression to a calendar date at
// midnight UTC. It accepts ISO dates, most written forms ("Jan 5, 2021",
// "5 January 2021", "01/05/2021") and the relative words today, yesterday,
// tomorrow and "N days ago".
func ParseDate(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", apperr.ErrParse)
	}

	if t, ok := parseRelative(strings.ToLower(s)); ok {
		return t, nil
	}

	if !dateHintRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: no day or month in %q", apperr.ErrParse, text)
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unrecognized date %q", apperr.ErrParse, text)
	}
	// "Jan 5" parses with year 0; it means the current year.
	if t.Year() == 0 {
		t = time.Date(clock.Now().UTC().Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	}
	return truncateDay(t), nil
}

// FormatDate renders a date in the normalized YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseCount parses a non-negative integer count.
func ParseCount(field, text string) (int, error) {
	s := strings.TrimSpace(text)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", apperr.ErrParse, field, text)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative, got %d", apperr.ErrParse, field, n)
	}
	return n, nil
}

func parseRelative(s string) (time.Time, bool) {
	today := truncateDay(clock.Now().UTC())
	switch s {
	case "today", "now":
		return today, true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	}
	if m := daysAgoRe.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return today.AddDate(0, 0, -n), true
	}
	return time.Time{}, false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
