package insight

import (
	"fmt"
	"strings"
)

// Kind names one section of an insight report.
type Kind string

// Selectable analyses.
const (
	RoutePopularity Kind = "route_popularity"
	DemandTrends    Kind = "demand_trends"
	PeakHours       Kind = "peak_hours"
	AircraftTypes   Kind = "aircraft_types"
)

// Sections every report carries regardless of selection.
const (
	MarketTrends    Kind = "market_trends"
	Recommendations Kind = "recommendations"
)

var kindTitles = map[Kind]string{
	RoutePopularity: "Route Popularity",
	DemandTrends:    "Demand Trends",
	PeakHours:       "Peak Hours",
	AircraftTypes:   "Aircraft Types",
	MarketTrends:    "Market Trends",
	Recommendations: "Recommendations",
}

// Title is the dashboard label of the kind.
func (k Kind) Title() string {
	if t, ok := kindTitles[k]; ok {
		return t
	}
	return string(k)
}

// Selectable returns the analyses an operator can request, in display order.
func Selectable() []Kind {
	return []Kind{RoutePopularity, DemandTrends, PeakHours, AircraftTypes}
}

// DefaultKinds is the preselected analysis set.
func DefaultKinds() []Kind {
	return []Kind{RoutePopularity, DemandTrends}
}

// ParseKind accepts the identifier ("peak_hours") or the title ("Peak Hours").
func ParseKind(s string) (Kind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for k := range kindTitles {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown analysis kind %q", s)
}

// ParseKinds parses a list, dropping duplicates and keeping order.
func ParseKinds(values []string) ([]Kind, error) {
	seen := make(map[Kind]bool, len(values))
	out := make([]Kind, 0, len(values))
	for _, v := range values {
		k, err := ParseKind(v)
		if err != nil {
			return nil, err
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out, nil
}
