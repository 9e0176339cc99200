package analysis

import (
	"encoding/json"
	"time"

	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/parser"
)

// TrendPoint is one (date, cases) observation on a city's line.
type TrendPoint struct {
	Date  time.Time
	Cases int
}

// MarshalJSON writes the date in YYYY-MM-DD form.
func (p TrendPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date  string `json:"date"`
		Cases int    `json:"cases"`
	}{parser.FormatDate(p.Date), p.Cases})
}

// Series is the ordered trend line for one city.
type Series struct {
	City   string       `json:"city"`
	Points []TrendPoint `json:"points"`
}

// TrendSeries groups (date, cases) pairs per city, keeping insertion order
// both across cities and within each city's points.
func TrendSeries(c models.Collection) []Series {
	cities := c.Cities()
	idx := make(map[string]int, len(cities))
	out := make([]Series, len(cities))
	for i, city := range cities {
		idx[city] = i
		out[i].City = city
	}
	for _, r := range c {
		i := idx[r.City]
		out[i].Points = append(out[i].Points, TrendPoint{Date: r.Date, Cases: r.Cases})
	}
	return out
}

// SeriesFor returns the trend line for a single city.
func SeriesFor(c models.Collection, city string) (Series, bool) {
	series := TrendSeries(c.Filter(city))
	if len(series) == 0 {
		return Series{}, false
	}
	return series[0], true
}
