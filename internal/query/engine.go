package query

import (
	"sync"
	"time"

	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/pkg/models"
)

// Row limits for the detailed data table.
const (
	MinLimit     = 10
	MaxLimit     = 1000
	DefaultLimit = 50

	// DefaultSelection is how many origins/destinations a fresh filter
	// preselects.
	DefaultSelection = 5
)

// ---------------------------------------------------------------------------
// Result Pool
// ---------------------------------------------------------------------------

type recordSlice []models.Record

var recordSlicePool = sync.Pool{
	New: func() interface{} {
		s := make(recordSlice, 0, 64)
		return &s
	},
}

func acquireRecordSlice() *recordSlice {
	return recordSlicePool.Get().(*recordSlice)
}

func releaseRecordSlice(s *recordSlice) {
	clear(*s)
	*s = (*s)[:0]
	recordSlicePool.Put(s)
}

// ---------------------------------------------------------------------------
// Time Range
// ---------------------------------------------------------------------------

// TimeRange bounds rows by timestamp. Zero ends are open.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains checks if a timestamp falls within the range.
func (tr TimeRange) Contains(t time.Time) bool {
	if tr.Start.IsZero() && tr.End.IsZero() {
		return true
	}
	if tr.Start.IsZero() {
		return !t.After(tr.End)
	}
	if tr.End.IsZero() {
		return !t.Before(tr.Start)
	}
	return !t.Before(tr.Start) && !t.After(tr.End)
}

// ---------------------------------------------------------------------------
// Filter
// ---------------------------------------------------------------------------

// Filter selects rows of the detailed data table. Empty origin or
// destination sets match everything; they only apply to schedule tables.
type Filter struct {
	Origins      []string
	Destinations []string
	Window       TimeRange
	Limit        int
}

// ClampLimit forces n into [MinLimit, MaxLimit]; zero means DefaultLimit.
func ClampLimit(n int) int {
	switch {
	case n == 0:
		return DefaultLimit
	case n < MinLimit:
		return MinLimit
	case n > MaxLimit:
		return MaxLimit
	}
	return n
}

// Result holds the filtered rows.
type Result struct {
	Records []models.Record
	Total   int // matches before the limit was applied
	Elapsed time.Duration
}

// Apply filters t and keeps at most the clamped limit, in table order.
func Apply(t models.Table, f Filter) Result {
	start := time.Now()
	metrics.QueryRequests.Inc()

	origins := toSet(f.Origins)
	destinations := toSet(f.Destinations)
	limit := ClampLimit(f.Limit)

	buf := acquireRecordSlice()
	defer releaseRecordSlice(buf)

	for _, r := range t.Records {
		if keep(r, f.Window, origins, destinations) {
			*buf = append(*buf, r)
		}
	}

	res := Result{Total: len(*buf)}
	n := min(limit, len(*buf))
	res.Records = make([]models.Record, n)
	copy(res.Records, (*buf)[:n])
	res.Elapsed = time.Since(start)
	metrics.QueryLatency.Observe(res.Elapsed.Seconds())
	return res
}

// Select returns every row of t matching f, ignoring the limit. Export uses
// it so downloads carry the whole filtered table.
func Select(t models.Table, f Filter) []models.Record {
	origins := toSet(f.Origins)
	destinations := toSet(f.Destinations)

	out := make([]models.Record, 0, len(t.Records))
	for _, r := range t.Records {
		if keep(r, f.Window, origins, destinations) {
			out = append(out, r)
		}
	}
	return out
}

func keep(r models.Record, window TimeRange, origins, destinations map[string]struct{}) bool {
	if !window.Contains(r.Timestamp()) {
		return false
	}
	if s := r.Schedule; s != nil {
		return matches(origins, s.Origin) && matches(destinations, s.Destination)
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func matches(set map[string]struct{}, v string) bool {
	if set == nil {
		return true
	}
	_, ok := set[v]
	return ok
}

// ---------------------------------------------------------------------------
// Filter options
// ---------------------------------------------------------------------------

// Options lists the selectable origins and destinations of a schedule table
// in first-seen order. Position tables have none.
type Options struct {
	Origins      []string `json:"origins"`
	Destinations []string `json:"destinations"`
}

// FilterOptions returns the distinct origins and destinations of t.
func FilterOptions(t models.Table) Options {
	var o Options
	if !t.HasRoutes() {
		return o
	}
	seenOrigin := make(map[string]struct{})
	seenDest := make(map[string]struct{})
	for _, r := range t.Records {
		s := r.Schedule
		if s == nil {
			continue
		}
		if _, ok := seenOrigin[s.Origin]; !ok {
			seenOrigin[s.Origin] = struct{}{}
			o.Origins = append(o.Origins, s.Origin)
		}
		if _, ok := seenDest[s.Destination]; !ok {
			seenDest[s.Destination] = struct{}{}
			o.Destinations = append(o.Destinations, s.Destination)
		}
	}
	return o
}

// DefaultFilter preselects the first few origins and destinations, matching
// the dashboard's initial state.
func DefaultFilter(t models.Table) Filter {
	o := FilterOptions(t)
	return Filter{
		Origins:      head(o.Origins, DefaultSelection),
		Destinations: head(o.Destinations, DefaultSelection),
		Limit:        DefaultLimit,
	}
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
