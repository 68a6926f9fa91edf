package ingestion

import (
	"sort"
	"strings"
	"time"

	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/pkg/models"
)

const (
	metersToFeet = 3.28084
	mpsToMph     = 2.237
)

// scheduleTimeLayouts are tried in order when parsing AviationStack times.
var scheduleTimeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// ---------------------------------------------------------------------------
// Position normalization
// ---------------------------------------------------------------------------

// NormalizePositions cleans raw state vectors into a position table.
// Rows without coordinates, rows on the ground and rows without a callsign
// are dropped. The result is sorted by last contact, newest first.
func NormalizePositions(raw RawStates, fetchedAt time.Time) models.Table {
	src := models.SourcePosition.String()
	fallback := raw.Time
	if fallback.IsZero() {
		fallback = fetchedAt
	}

	records := make([]models.Record, 0, len(raw.States))
	for _, s := range raw.States {
		if s.Longitude == nil || s.Latitude == nil {
			metrics.DroppedRecords.WithLabelValues(src, "no_position").Inc()
			continue
		}
		if s.OnGround {
			metrics.DroppedRecords.WithLabelValues(src, "on_ground").Inc()
			continue
		}
		callsign := strings.TrimSpace(s.Callsign)
		if callsign == "" {
			metrics.DroppedRecords.WithLabelValues(src, "no_callsign").Inc()
			continue
		}

		p := models.PositionRecord{
			ICAO24:         s.ICAO24,
			Callsign:       callsign,
			OriginCountry:  s.OriginCountry,
			TimePosition:   unixPtr(s.TimePosition),
			Longitude:      *s.Longitude,
			Latitude:       *s.Latitude,
			BaroAltitude:   s.BaroAltitude,
			Velocity:       s.Velocity,
			TrueTrack:      s.TrueTrack,
			VerticalRate:   s.VerticalRate,
			Sensors:        s.Sensors,
			GeoAltitude:    s.GeoAltitude,
			Squawk:         s.Squawk,
			SPI:            s.SPI,
			PositionSource: s.PositionSource,
			AltitudeFt:     scaled(s.BaroAltitude, metersToFeet),
			SpeedMph:       scaled(s.Velocity, mpsToMph),
		}

		switch {
		case s.LastContact != nil:
			p.LastContact = time.Unix(*s.LastContact, 0).UTC()
		case p.TimePosition != nil:
			p.LastContact = *p.TimePosition
		default:
			p.LastContact = fallback
		}
		p.Timestamp = p.LastContact

		records = append(records, models.NewPositionRecord(p))
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Position.LastContact.After(records[j].Position.LastContact)
	})

	metrics.NormalizedRecords.WithLabelValues(src).Add(float64(len(records)))
	return models.Table{Source: models.SourcePosition, Records: records, FetchedAt: fetchedAt}
}

func unixPtr(sec *int64) *time.Time {
	if sec == nil {
		return nil
	}
	t := time.Unix(*sec, 0).UTC()
	return &t
}

func scaled(v *float64, factor float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v * factor
	return &out
}

// ---------------------------------------------------------------------------
// Schedule normalization
// ---------------------------------------------------------------------------

// NormalizeSchedules cleans raw flights into a schedule table. Rows without
// a flight number are dropped; unparseable times become nil. Every surviving
// row has a timestamp: departure, else arrival, else the fetch instant.
// The result is sorted by departure time, newest first, rows without a
// departure last.
func NormalizeSchedules(raw []RawFlight, fetchedAt time.Time) models.Table {
	src := models.SourceSchedule.String()

	records := make([]models.Record, 0, len(raw))
	for _, f := range raw {
		number := strings.TrimSpace(f.FlightNumber)
		if number == "" {
			metrics.DroppedRecords.WithLabelValues(src, "no_flight_number").Inc()
			continue
		}

		s := models.ScheduleRecord{
			FlightNumber:       number,
			Airline:            f.Airline,
			AirlineIATA:        f.AirlineIATA,
			Origin:             f.Origin,
			OriginAirport:      f.OriginAirport,
			Destination:        f.Destination,
			DestinationAirport: f.DestinationAirport,
			DepartureTime:      parseScheduleTime(f.DepartureTime),
			ArrivalTime:        parseScheduleTime(f.ArrivalTime),
			FlightStatus:       f.FlightStatus,
			AircraftType:       f.AircraftType,
			DepartureDelay:     f.DepartureDelay,
			ArrivalDelay:       f.ArrivalDelay,
		}

		switch {
		case s.DepartureTime != nil:
			s.Timestamp = *s.DepartureTime
		case s.ArrivalTime != nil:
			s.Timestamp = *s.ArrivalTime
		default:
			s.Timestamp = fetchedAt
		}

		records = append(records, models.NewScheduleRecord(s))
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Schedule.DepartureTime, records[j].Schedule.DepartureTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	metrics.NormalizedRecords.WithLabelValues(src).Add(float64(len(records)))
	return models.Table{Source: models.SourceSchedule, Records: records, FetchedAt: fetchedAt}
}

func parseScheduleTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range scheduleTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
