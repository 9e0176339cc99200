package api

import (
	"github.com/starford/epiledger/internal/analysis"
	"github.com/starford/epiledger/internal/models"
	"github.com/starford/epiledger/internal/recordservice"
)

// CreateRecordRequest is the request body for adding a record.
// Date accepts free-form text ("2021-01-05", "Jan 5, 2021", "yesterday").
type CreateRecordRequest = recordservice.AddInput

// RecordListResponse wraps paginated record listings.
type RecordListResponse struct {
	Records []models.Record `json:"records" validate:"required"`
	Total   int             `json:"total" example:"42" validate:"required"`
}

// ThresholdsDTO reports the tier thresholds in use.
type ThresholdsDTO struct {
	High   int `json:"high" example:"1000"`
	Medium int `json:"medium" example:"500"`
}

// RiskZonesResponse lists each city's tier in first-appearance order.
type RiskZonesResponse struct {
	Zones      []analysis.Zone `json:"zones" validate:"required"`
	Thresholds ThresholdsDTO   `json:"thresholds"`
}

// HotspotResponse names the city with the highest cumulative cases.
type HotspotResponse = analysis.Hotspot

// TotalsResponse lists cumulative cases per city.
type TotalsResponse struct {
	Totals []analysis.CityTotal `json:"totals" validate:"required"`
}

// TrendsResponse wraps every city's series.
type TrendsResponse struct {
	Series []analysis.Series `json:"series" validate:"required"`
}
