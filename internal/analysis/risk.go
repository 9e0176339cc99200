package analysis

import "github.com/starford/epiledger/internal/models"

// Tier is a risk classification.
type Tier string

// Risk tiers.
const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Thresholds are the exclusive lower bounds for the Medium and High tiers.
type Thresholds struct {
	High   int
	Medium int
}

// DefaultThresholds are the stock tier bounds.
var DefaultThresholds = Thresholds{High: 1000, Medium: 500}

// Classify maps a case count to a tier.
func (t Thresholds) Classify(cases int) Tier {
	switch {
	case cases > t.High:
		return TierHigh
	case cases > t.Medium:
		return TierMedium
	default:
		return TierLow
	}
}

// Zone is one city's tier.
type Zone struct {
	City string `json:"city"`
	Tier Tier   `json:"tier"`
}

// RiskZones lists each city once, in order of first appearance.
type RiskZones []Zone

// Tier returns the tier for city.
func (z RiskZones) Tier(city string) (Tier, bool) {
	for _, zone := range z {
		if zone.City == city {
			return zone.Tier, true
		}
	}
	return "", false
}

// Map returns the zones keyed by city.
func (z RiskZones) Map() map[string]Tier {
	out := make(map[string]Tier, len(z))
	for _, zone := range z {
		out[zone.City] = zone.Tier
	}
	return out
}

// ClassifyRiskZones tiers every city with DefaultThresholds.
func ClassifyRiskZones(c models.Collection) RiskZones {
	return DefaultThresholds.ClassifyRiskZones(c)
}

// ClassifyRiskZones tiers every city from its first record; see the package doc.
func (t Thresholds) ClassifyRiskZones(c models.Collection) RiskZones {
	seen := make(map[string]struct{})
	out := RiskZones{}
	for _, r := range c {
		if _, ok := seen[r.City]; ok {
			continue
		}
		seen[r.City] = struct{}{}
		out = append(out, Zone{City: r.City, Tier: t.Classify(r.Cases)})
	}
	return out
}
