package parser

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/epiledger/internal/apperr"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2021, time.January, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input string
	}{
		{"iso", "2021-01-05"},
		{"iso with spaces", "  2021-01-05 "},
		{"us slashes", "01/05/2021"},
		{"month name", "Jan 5, 2021"},
		{"day month year", "5 January 2021"},
		{"with time of day", "2021-01-05 18:30:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestParseDate_Relative(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)))
	defer SetClock(nil)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"today", time.Date(2024, time.April, 26, 0, 0, 0, 0, time.UTC)},
		{"Yesterday", time.Date(2024, time.April, 25, 0, 0, 0, 0, time.UTC)},
		{"tomorrow", time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC)},
		{"3 days ago", time.Date(2024, time.April, 23, 0, 0, 0, 0, time.UTC)},
		{"1 day ago", time.Date(2024, time.April, 25, 0, 0, 0, 0, time.UTC)},
		{"Jan 5", time.Date(2024, time.January, 5, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDate_Unrecognized(t *testing.T) {
	SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)))
	defer SetClock(nil)

	for _, input := range []string{"", "   ", "not a date", "soonish", "10:30", "10:30:00", "6pm"} {
		_, err := ParseDate(input)
		require.Error(t, err, "input %q", input)
		assert.ErrorIs(t, err, apperr.ErrParse)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "2021-03-09", FormatDate(time.Date(2021, time.March, 9, 0, 0, 0, 0, time.UTC)))
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"plain", "1500", 1500, false},
		{"padded", " 42 ", 42, false},
		{"negative", "-1", 0, true},
		{"float", "1.5", 0, true},
		{"text", "many", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCount("Cases", tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperr.ErrParse)
				assert.Contains(t, err.Error(), "Cases")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
