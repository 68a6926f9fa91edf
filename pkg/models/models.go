package models

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

// Source identifies which upstream API produced a table.
type Source uint8

const (
	SourcePosition Source = iota // OpenSky state vectors
	SourceSchedule               // AviationStack flight schedules
	sourceCount                  // must be last
)

var sourceNames = [sourceCount]string{
	SourcePosition: "opensky",
	SourceSchedule: "aviationstack",
}

func (s Source) String() string {
	if s < sourceCount {
		return sourceNames[s]
	}
	return "unknown"
}

// ParseSource converts "opensky" / "aviationstack" (or the dashboard labels
// "OpenSky Network" / "AviationStack") to a Source.
func ParseSource(s string) (Source, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opensky", "opensky network", "position":
		return SourcePosition, true
	case "aviationstack", "schedule":
		return SourceSchedule, true
	}
	return 0, false
}

// MarshalText renders the source by name.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a source name.
func (s *Source) UnmarshalText(b []byte) error {
	v, ok := ParseSource(string(b))
	if !ok {
		return fmt.Errorf("unknown data source %q", string(b))
	}
	*s = v
	return nil
}

// ---------------------------------------------------------------------------
// Time ranges
// ---------------------------------------------------------------------------

// TimeRange is the analysis window selected by the operator.
type TimeRange uint8

const (
	Last24Hours TimeRange = iota
	Last7Days
	Last30Days
	timeRangeCount // must be last
)

var timeRangeLabels = [timeRangeCount]string{
	Last24Hours: "Last 24 Hours",
	Last7Days:   "Last 7 Days",
	Last30Days:  "Last 30 Days",
}

var timeRangeWindows = [timeRangeCount]time.Duration{
	Last24Hours: 24 * time.Hour,
	Last7Days:   7 * 24 * time.Hour,
	Last30Days:  30 * 24 * time.Hour,
}

func (tr TimeRange) String() string {
	if tr < timeRangeCount {
		return timeRangeLabels[tr]
	}
	return "unknown"
}

// Window returns the length of the range.
func (tr TimeRange) Window() time.Duration {
	if tr < timeRangeCount {
		return timeRangeWindows[tr]
	}
	return timeRangeWindows[Last24Hours]
}

// NeedsSynthesis reports whether the range reaches beyond the snapshot horizon
// of the upstream sources.
func (tr TimeRange) NeedsSynthesis() bool {
	return tr != Last24Hours
}

// ParseTimeRange accepts the dashboard labels and the short forms 24h, 7d, 30d.
func ParseTimeRange(s string) (TimeRange, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "last 24 hours", "24h", "1d":
		return Last24Hours, true
	case "last 7 days", "7d":
		return Last7Days, true
	case "last 30 days", "30d":
		return Last30Days, true
	}
	return 0, false
}

// MarshalText renders the range label.
func (tr TimeRange) MarshalText() ([]byte, error) {
	return []byte(tr.String()), nil
}

// UnmarshalText parses a range label or short form.
func (tr *TimeRange) UnmarshalText(b []byte) error {
	v, ok := ParseTimeRange(string(b))
	if !ok {
		return fmt.Errorf("unknown time range %q", string(b))
	}
	*tr = v
	return nil
}

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

// PositionRecord is a normalized OpenSky state vector.
type PositionRecord struct {
	ICAO24         string     `json:"icao24"`
	Callsign       string     `json:"callsign"`
	OriginCountry  string     `json:"origin_country"`
	TimePosition   *time.Time `json:"time_position,omitempty"`
	LastContact    time.Time  `json:"last_contact"`
	Longitude      float64    `json:"longitude"`
	Latitude       float64    `json:"latitude"`
	BaroAltitude   *float64   `json:"baro_altitude,omitempty"`
	OnGround       bool       `json:"on_ground"`
	Velocity       *float64   `json:"velocity,omitempty"`
	TrueTrack      *float64   `json:"true_track,omitempty"`
	VerticalRate   *float64   `json:"vertical_rate,omitempty"`
	Sensors        []int      `json:"sensors,omitempty"`
	GeoAltitude    *float64   `json:"geo_altitude,omitempty"`
	Squawk         string     `json:"squawk,omitempty"`
	SPI            bool       `json:"spi"`
	PositionSource int        `json:"position_source"`
	AltitudeFt     *float64   `json:"altitude_ft,omitempty"`
	SpeedMph       *float64   `json:"speed_mph,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

// ScheduleRecord is a normalized AviationStack flight.
type ScheduleRecord struct {
	FlightNumber       string     `json:"flight_number"`
	Airline            string     `json:"airline"`
	AirlineIATA        string     `json:"airline_iata"`
	Origin             string     `json:"origin"`
	OriginAirport      string     `json:"origin_airport"`
	Destination        string     `json:"destination"`
	DestinationAirport string     `json:"destination_airport"`
	DepartureTime      *time.Time `json:"departure_time,omitempty"`
	ArrivalTime        *time.Time `json:"arrival_time,omitempty"`
	FlightStatus       string     `json:"flight_status"`
	AircraftType       string     `json:"aircraft_type"`
	DepartureDelay     int        `json:"departure_delay"`
	ArrivalDelay       int        `json:"arrival_delay"`
	Timestamp          time.Time  `json:"timestamp"`
}

// Record is one row of the canonical table. Exactly one of Position or
// Schedule is set, matching Source.
type Record struct {
	Source   Source          `json:"source"`
	Position *PositionRecord `json:"position,omitempty"`
	Schedule *ScheduleRecord `json:"schedule,omitempty"`
}

// NewPositionRecord wraps a position row.
func NewPositionRecord(p PositionRecord) Record {
	return Record{Source: SourcePosition, Position: &p}
}

// NewScheduleRecord wraps a schedule row.
func NewScheduleRecord(s ScheduleRecord) Record {
	return Record{Source: SourceSchedule, Schedule: &s}
}

// Label returns the human-facing identifier: callsign or flight number.
func (r Record) Label() string {
	switch {
	case r.Position != nil:
		return r.Position.Callsign
	case r.Schedule != nil:
		return r.Schedule.FlightNumber
	}
	return ""
}

// Timestamp returns the event time every downstream consumer relies on.
func (r Record) Timestamp() time.Time {
	switch {
	case r.Position != nil:
		return r.Position.Timestamp
	case r.Schedule != nil:
		return r.Schedule.Timestamp
	}
	return time.Time{}
}

// Route returns "origin → destination" for schedule rows.
func (r Record) Route() (string, bool) {
	if r.Schedule == nil {
		return "", false
	}
	return FormatRoute(r.Schedule.Origin, r.Schedule.Destination), true
}

// WithTimestamp returns a copy of r with its timestamp replaced. Schedule rows
// keep departure time consistent with the new timestamp.
func (r Record) WithTimestamp(t time.Time) Record {
	switch {
	case r.Position != nil:
		p := *r.Position
		p.Timestamp = t
		return NewPositionRecord(p)
	case r.Schedule != nil:
		s := *r.Schedule
		s.Timestamp = t
		dep := t
		s.DepartureTime = &dep
		return NewScheduleRecord(s)
	}
	return r
}

// RouteSeparator joins origin and destination in route keys. Consumers match
// on this exact string.
const RouteSeparator = " → "

// FormatRoute builds the route key for an origin/destination pair.
func FormatRoute(origin, destination string) string {
	return origin + RouteSeparator + destination
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// PositionColumns is the column order of a position table.
var PositionColumns = []string{
	"icao24", "callsign", "origin_country", "time_position", "last_contact",
	"longitude", "latitude", "baro_altitude", "on_ground", "velocity",
	"true_track", "vertical_rate", "sensors", "geo_altitude", "squawk",
	"spi", "position_source", "altitude_ft", "speed_mph", "timestamp",
}

// ScheduleColumns is the column order of a schedule table.
var ScheduleColumns = []string{
	"flight_number", "airline", "airline_iata", "origin", "origin_airport",
	"destination", "destination_airport", "departure_time", "arrival_time",
	"flight_status", "aircraft_type", "departure_delay", "arrival_delay",
	"timestamp",
}

// Table is the canonical flight table produced by one fetch. It is treated
// as immutable once built; every pipeline stage returns a new Table.
type Table struct {
	Source      Source    `json:"source"`
	Records     []Record  `json:"records"`
	FetchedAt   time.Time `json:"fetched_at"`
	Synthesized bool      `json:"synthesized"`
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Records) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Records) == 0 }

// Columns returns the column inventory for the table's source.
func (t Table) Columns() []string {
	var cols []string
	if t.Source == SourceSchedule {
		cols = ScheduleColumns
	} else {
		cols = PositionColumns
	}
	out := make([]string, len(cols))
	copy(out, cols)
	return out
}

// HasRoutes reports whether origin/destination columns exist.
func (t Table) HasRoutes() bool { return t.Source == SourceSchedule }

// HasAirlines reports whether the airline column exists.
func (t Table) HasAirlines() bool { return t.Source == SourceSchedule }

// HasCountries reports whether the origin_country column exists.
func (t Table) HasCountries() bool { return t.Source == SourcePosition }

// TimeBounds returns the earliest and latest timestamps. ok is false for an
// empty table.
func (t Table) TimeBounds() (start, end time.Time, ok bool) {
	for i, r := range t.Records {
		ts := r.Timestamp()
		if i == 0 || ts.Before(start) {
			start = ts
		}
		if i == 0 || ts.After(end) {
			end = ts
		}
	}
	return start, end, len(t.Records) > 0
}
