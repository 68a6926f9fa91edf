package summary

import (
	"fmt"
	"strconv"

	"github.com/yash/flightinsight/pkg/models"
)

// Metric is one labelled dashboard figure.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

func intMetric(label string, v int) Metric {
	return Metric{Label: label, Value: strconv.Itoa(v)}
}

// KeyMetrics returns the headline figures that accompany an insight report.
// The set depends on the table's source.
func KeyMetrics(t models.Table) []Metric {
	s := Summarize(t)
	out := []Metric{intMetric("Total Flights", s.TotalRecords)}

	switch t.Source {
	case models.SourcePosition:
		countries := newCounter()
		for _, r := range t.Records {
			countries.add(r.Position.OriginCountry)
		}
		out = append(out, intMetric("Countries", countries.distinct()))
	case models.SourceSchedule:
		airlines := newCounter()
		for _, r := range t.Records {
			airlines.add(r.Schedule.Airline)
		}
		out = append(out,
			intMetric("Unique Routes", s.UniqueRoutes),
			intMetric("Airlines", airlines.distinct()),
		)
	}

	return append(out, intMetric("Date Range (Days)", s.DateRangeDays))
}

// Overview returns the data overview panel, in display order.
func Overview(t models.Table) []Metric {
	s := Summarize(t)
	out := []Metric{intMetric("Total Flights", s.TotalRecords)}

	switch t.Source {
	case models.SourceSchedule:
		origins, destinations, airlines := newCounter(), newCounter(), newCounter()
		for _, r := range t.Records {
			origins.add(r.Schedule.Origin)
			destinations.add(r.Schedule.Destination)
			airlines.add(r.Schedule.Airline)
		}
		out = append(out,
			intMetric("Unique Origins", origins.distinct()),
			intMetric("Unique Destinations", destinations.distinct()),
			intMetric("Airlines", airlines.distinct()),
		)
	case models.SourcePosition:
		callsigns, countries := newCounter(), newCounter()
		for _, r := range t.Records {
			callsigns.add(r.Position.Callsign)
			countries.add(r.Position.OriginCountry)
		}
		out = append(out,
			intMetric("Active Aircraft", callsigns.distinct()),
			intMetric("Countries", countries.distinct()),
			intMetric("Data Points", s.TotalRecords),
		)
	}

	if t.Empty() {
		return out
	}

	start, end, _ := t.TimeBounds()
	days := wholeDays(start, end)
	out = append(out,
		Metric{Label: "Date Range", Value: fmt.Sprintf("%d days", days)},
		Metric{Label: "Avg Daily Flights", Value: fmt.Sprintf("%.1f", float64(s.TotalRecords)/float64(max(1, days)))},
		Metric{Label: "Peak Hour", Value: fmt.Sprintf("%02d:00", PeakHour(s.Hourly))},
	)

	if t.Source == models.SourcePosition {
		if avg, ok := averageSpeed(t); ok {
			out = append(out, Metric{Label: "Avg Speed", Value: fmt.Sprintf("%.0f mph", avg)})
		}
	}
	return out
}

// PeakHour returns the busiest hour, the earliest one on ties.
func PeakHour(hourly [24]int) int {
	peak := 0
	for h, n := range hourly {
		if n > hourly[peak] {
			peak = h
		}
	}
	return peak
}

func averageSpeed(t models.Table) (float64, bool) {
	var sum float64
	var n int
	for _, r := range t.Records {
		if r.Position != nil && r.Position.SpeedMph != nil {
			sum += *r.Position.SpeedMph
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ---------------------------------------------------------------------------
// Chart series
// ---------------------------------------------------------------------------

// HourCount is one point of the hourly activity series.
type HourCount struct {
	Hour    int `json:"hour"`
	Flights int `json:"flights"`
}

// Charts holds chart-ready series. Series whose column the source lacks are
// nil.
type Charts struct {
	TopRoutes []Count     `json:"top_routes,omitempty"`
	Hourly    []HourCount `json:"hourly"`
	Countries []Count     `json:"countries,omitempty"`
	Airlines  []Count     `json:"airlines,omitempty"`
}

const (
	chartRoutes    = 10
	chartCountries = 10
	chartAirlines  = 8
)

// BuildCharts derives the dashboard chart series from t.
func BuildCharts(t models.Table) Charts {
	s := Summarize(t)
	c := Charts{Hourly: make([]HourCount, 24)}
	for h, n := range s.Hourly {
		c.Hourly[h] = HourCount{Hour: h, Flights: n}
	}

	switch t.Source {
	case models.SourceSchedule:
		routes, airlines := newCounter(), newCounter()
		for _, r := range t.Records {
			routes.add(models.FormatRoute(r.Schedule.Origin, r.Schedule.Destination))
			airlines.add(r.Schedule.Airline)
		}
		c.TopRoutes = routes.top(chartRoutes)
		c.Airlines = airlines.top(chartAirlines)
	case models.SourcePosition:
		countries := newCounter()
		for _, r := range t.Records {
			countries.add(r.Position.OriginCountry)
		}
		c.Countries = countries.top(chartCountries)
	}
	return c
}
