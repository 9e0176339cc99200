package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/epiledger/internal/apperr"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNewRecord(t *testing.T) {
	r, err := NewRecord("  Lagos ", "Jan 5, 2021", 120, 30, 2)
	require.NoError(t, err)

	assert.Equal(t, "Lagos", r.City)
	assert.Equal(t, day(2021, time.January, 5), r.Date)
	assert.Equal(t, 120, r.Cases)
	assert.Equal(t, 30, r.Recovered)
	assert.Equal(t, 2, r.Deaths)
}

func TestNewRecord_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		city    string
		date    string
		cases   int
		wantErr error
	}{
		{"empty city", "   ", "2021-01-05", 1, apperr.ErrInvalidRecord},
		{"negative cases", "Lagos", "2021-01-05", -1, apperr.ErrInvalidRecord},
		{"bad date", "Lagos", "someday", 1, apperr.ErrParse},
		{"time without date", "Lagos", "10:30", 1, apperr.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRecord(tt.city, tt.date, tt.cases, 0, 0)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecordRow(t *testing.T) {
	r := Record{City: "Paris, FR", Date: day(2021, time.March, 9), Cases: 1500, Recovered: 10, Deaths: 3}
	assert.Equal(t, []string{"Paris, FR", "2021-03-09", "1500", "10", "3"}, r.Row())

	back, err := RecordFromRow(r.Row(), 2)
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestRecordFromRow_Errors(t *testing.T) {
	t.Run("missing column", func(t *testing.T) {
		_, err := RecordFromRow([]string{"A", "2021-01-01", "1", "2"}, 3)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrFormat)
		assert.Contains(t, err.Error(), "line 3")
	})

	t.Run("extra column", func(t *testing.T) {
		_, err := RecordFromRow([]string{"A", "2021-01-01", "1", "2", "3", "4"}, 4)
		assert.ErrorIs(t, err, apperr.ErrFormat)
	})

	t.Run("non-integer count", func(t *testing.T) {
		_, err := RecordFromRow([]string{"A", "2021-01-01", "1", "two", "3"}, 5)
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrParse)
		assert.Contains(t, err.Error(), "Recovered")
		assert.Contains(t, err.Error(), "line 5")
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := RecordFromRow([]string{"A", "??", "1", "2", "3"}, 6)
		assert.ErrorIs(t, err, apperr.ErrParse)
	})
}

func TestRecordString(t *testing.T) {
	r := Record{City: "Lagos", Date: day(2021, time.January, 5), Cases: 7, Recovered: 1, Deaths: 0}
	assert.Equal(t, "City: Lagos, Date: 2021-01-05, Cases: 7, Recovered: 1, Deaths: 0", r.String())
}

func TestRecordJSON(t *testing.T) {
	r := Record{City: "Lagos", Date: day(2021, time.January, 5), Cases: 7, Recovered: 1, Deaths: 0}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"Lagos","date":"2021-01-05","cases":7,"recovered":1,"deaths":0}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestCollection(t *testing.T) {
	var c Collection
	c.Append(Record{City: "B", Cases: 1})
	c.Append(Record{City: "A", Cases: 2})
	c.Append(Record{City: "B", Cases: 3})

	assert.Len(t, c, 3)
	assert.Equal(t, []string{"B", "A"}, c.Cities())

	b := c.Filter("B")
	require.Len(t, b, 2)
	assert.Equal(t, 1, b[0].Cases)
	assert.Equal(t, 3, b[1].Cases)

	snap := c.Clone()
	snap[0].Cases = 99
	assert.Equal(t, 1, c[0].Cases, "clone must not alias the original")

	assert.NotNil(t, Collection(nil).Clone())
	assert.Empty(t, Collection(nil).Filter("A"))
}
