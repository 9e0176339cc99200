package analysis

import (
	"github.com/starford/epiledger/internal/apperr"
	"github.com/starford/epiledger/internal/models"
)

// CityTotal is the summed case count for one city.
type CityTotal struct {
	City       string `json:"city"`
	TotalCases int    `json:"total_cases"`
}

// Hotspot is the city with the highest cumulative case count.
type Hotspot = CityTotal

// CityTotals sums cases over every record per city, in order of first appearance.
func CityTotals(c models.Collection) []CityTotal {
	idx := make(map[string]int)
	var out []CityTotal
	for _, r := range c {
		i, ok := idx[r.City]
		if !ok {
			i = len(out)
			idx[r.City] = i
			out = append(out, CityTotal{City: r.City})
		}
		out[i].TotalCases += r.Cases
	}
	return out
}

// PredictHotspot returns the city with the largest total. The first city in
// insertion order wins ties. An empty collection returns apperr.ErrEmptyInput.
func PredictHotspot(c models.Collection) (Hotspot, error) {
	totals := CityTotals(c)
	if len(totals) == 0 {
		return Hotspot{}, apperr.ErrEmptyInput
	}
	best := totals[0]
	for _, t := range totals[1:] {
		if t.TotalCases > best.TotalCases {
			best = t
		}
	}
	return best, nil
}
