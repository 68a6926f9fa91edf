package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/yash/flightinsight/pkg/models"
)

// FileName returns the download name for an export taken at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("flight_data_%s.csv", t.Format("20060102_150405"))
}

// WriteCSV writes the header row and every record of t. Missing values are
// empty cells; times are RFC3339.
func WriteCSV(w io.Writer, t models.Table) error {
	return WriteRecords(w, t.Source, t.Records)
}

// WriteRecords writes a subset of a table, e.g. a filtered view.
func WriteRecords(w io.Writer, src models.Source, records []models.Record) error {
	cw := csv.NewWriter(w)
	header := models.Table{Source: src}.Columns()
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// Row renders one record in its table's column order.
func Row(r models.Record) []string {
	switch {
	case r.Position != nil:
		p := r.Position
		return []string{
			p.ICAO24,
			p.Callsign,
			p.OriginCountry,
			timePtr(p.TimePosition),
			timeVal(p.LastContact),
			float(p.Longitude),
			float(p.Latitude),
			floatPtr(p.BaroAltitude),
			strconv.FormatBool(p.OnGround),
			floatPtr(p.Velocity),
			floatPtr(p.TrueTrack),
			floatPtr(p.VerticalRate),
			ints(p.Sensors),
			floatPtr(p.GeoAltitude),
			p.Squawk,
			strconv.FormatBool(p.SPI),
			strconv.Itoa(p.PositionSource),
			floatPtr(p.AltitudeFt),
			floatPtr(p.SpeedMph),
			timeVal(p.Timestamp),
		}
	case r.Schedule != nil:
		s := r.Schedule
		return []string{
			s.FlightNumber,
			s.Airline,
			s.AirlineIATA,
			s.Origin,
			s.OriginAirport,
			s.Destination,
			s.DestinationAirport,
			timePtr(s.DepartureTime),
			timePtr(s.ArrivalTime),
			s.FlightStatus,
			s.AircraftType,
			strconv.Itoa(s.DepartureDelay),
			strconv.Itoa(s.ArrivalDelay),
			timeVal(s.Timestamp),
		}
	}
	return nil
}

func float(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func floatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return float(*v)
}

func timeVal(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func timePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return timeVal(*t)
}

func ints(v []int) string {
	if len(v) == 0 {
		return ""
	}
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " ")
}
