package summary

import (
	"sort"
	"time"

	"github.com/yash/flightinsight/pkg/models"
)

// TopN is the length of every frequency list in a DataSummary.
const TopN = 10

// Count is one entry of a frequency table.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// DataSummary is the read-only aggregate of a canonical table. Frequency
// lists are nil when the table's source lacks the column.
type DataSummary struct {
	TotalRecords  int           `json:"total_records"`
	Source        models.Source `json:"source"`
	Columns       []string      `json:"columns"`
	Start         time.Time     `json:"start"`
	End           time.Time     `json:"end"`
	TopRoutes     []Count       `json:"top_routes,omitempty"`
	TopCountries  []Count       `json:"top_countries,omitempty"`
	TopAirlines   []Count       `json:"top_airlines,omitempty"`
	UniqueRoutes  int           `json:"unique_routes"`
	Hourly        [24]int       `json:"hourly"`
	DateRangeDays int           `json:"date_range_days"`
	Synthesized   bool          `json:"synthesized"`
}

// HasHourly reports whether any hour has observations.
func (s DataSummary) HasHourly() bool {
	for _, n := range s.Hourly {
		if n > 0 {
			return true
		}
	}
	return false
}

// AverageDaily returns total records per day of the summarized range.
func (s DataSummary) AverageDaily() float64 {
	return float64(s.TotalRecords) / float64(max(1, s.DateRangeDays))
}

// Summarize aggregates t. It never modifies t.
func Summarize(t models.Table) DataSummary {
	s := DataSummary{
		TotalRecords: t.Len(),
		Source:       t.Source,
		Columns:      t.Columns(),
		Synthesized:  t.Synthesized,
	}

	start, end, ok := t.TimeBounds()
	if ok {
		s.Start, s.End = start, end
	}
	s.DateRangeDays = max(1, wholeDays(start, end))

	for _, r := range t.Records {
		s.Hourly[r.Timestamp().UTC().Hour()]++
	}

	switch t.Source {
	case models.SourceSchedule:
		routes := newCounter()
		airlines := newCounter()
		pairs := make(map[[2]string]struct{})
		for _, r := range t.Records {
			sr := r.Schedule
			if sr == nil {
				continue
			}
			routes.add(models.FormatRoute(sr.Origin, sr.Destination))
			airlines.add(sr.Airline)
			pairs[[2]string{sr.Origin, sr.Destination}] = struct{}{}
		}
		s.TopRoutes = routes.top(TopN)
		s.TopAirlines = airlines.top(TopN)
		s.UniqueRoutes = len(pairs)
	case models.SourcePosition:
		countries := newCounter()
		for _, r := range t.Records {
			if r.Position != nil {
				countries.add(r.Position.OriginCountry)
			}
		}
		s.TopCountries = countries.top(TopN)
	}
	return s
}

// wholeDays is the floor of the day difference between two instants.
func wholeDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / (24 * time.Hour))
}

// ---------------------------------------------------------------------------
// Frequency counting
// ---------------------------------------------------------------------------

// counter tallies keys and remembers first-seen order for stable ties.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

func (c *counter) distinct() int { return len(c.order) }

// top returns at most n entries by descending count, ties in first-seen
// order. The result is non-nil.
func (c *counter) top(n int) []Count {
	out := make([]Count, len(c.order))
	for i, k := range c.order {
		out[i] = Count{Key: k, Count: c.counts[k]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Top ranks keys by frequency, ties in first-seen order, and keeps n.
func Top(keys []string, n int) []Count {
	c := newCounter()
	for _, k := range keys {
		c.add(k)
	}
	return c.top(n)
}
