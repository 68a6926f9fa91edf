package ingestion

import (
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yash/flightinsight/pkg/models"
)

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

var fetchInstant = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

// ---------------------------------------------------------------------------
// Positions
// ---------------------------------------------------------------------------

func TestNormalizePositionsDropsAndConverts(t *testing.T) {
	raw := RawStates{
		Time: time.Unix(1700000100, 0).UTC(),
		States: []RawState{
			{ICAO24: "a", Callsign: "QFA1  ", Longitude: f64(151), Latitude: f64(-33), BaroAltitude: f64(1000), Velocity: f64(100), LastContact: i64(1700000000)},
			{ICAO24: "b", Callsign: "VOZ2", Longitude: nil, Latitude: f64(-33)},
			{ICAO24: "c", Callsign: "JST3", Longitude: f64(151), Latitude: f64(-33), OnGround: true},
			{ICAO24: "d", Callsign: "   ", Longitude: f64(151), Latitude: f64(-33)},
			{ICAO24: "e", Callsign: "RXA5", Longitude: f64(150), Latitude: f64(-34), LastContact: i64(1700000050)},
		},
	}

	table := NormalizePositions(raw, fetchInstant)
	require.Equal(t, models.SourcePosition, table.Source)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, fetchInstant, table.FetchedAt)

	// newest first
	assert.Equal(t, "RXA5", table.Records[0].Label())
	assert.Equal(t, "QFA1", table.Records[1].Label())

	p := table.Records[1].Position
	require.NotNil(t, p.AltitudeFt)
	assert.InDelta(t, 3280.84, *p.AltitudeFt, 1e-6)
	require.NotNil(t, p.SpeedMph)
	assert.InDelta(t, 223.7, *p.SpeedMph, 1e-6)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), p.Timestamp)

	q := table.Records[0].Position
	assert.Nil(t, q.AltitudeFt)
	assert.Nil(t, q.SpeedMph)
}

func TestNormalizePositionsTimestampFallback(t *testing.T) {
	raw := RawStates{
		Time: time.Unix(1700000300, 0).UTC(),
		States: []RawState{
			{Callsign: "A", Longitude: f64(1), Latitude: f64(1), TimePosition: i64(1700000200)},
			{Callsign: "B", Longitude: f64(1), Latitude: f64(1)},
		},
	}

	table := NormalizePositions(raw, fetchInstant)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, time.Unix(1700000300, 0).UTC(), table.Records[0].Timestamp())
	assert.Equal(t, time.Unix(1700000200, 0).UTC(), table.Records[1].Timestamp())

	noTime := NormalizePositions(RawStates{States: raw.States[1:]}, fetchInstant)
	assert.Equal(t, fetchInstant, noTime.Records[0].Timestamp())
}

func TestNormalizePositionsEmpty(t *testing.T) {
	table := NormalizePositions(RawStates{}, fetchInstant)
	assert.True(t, table.Empty())
	assert.Equal(t, models.PositionColumns, table.Columns())
}

func TestNormalizePositionsProperties(t *testing.T) {
	faker := gofakeit.New(42)

	for round := 0; round < 20; round++ {
		states := make([]RawState, faker.Number(0, 60))
		for i := range states {
			s := RawState{
				ICAO24:        faker.LetterN(6),
				OriginCountry: faker.Country(),
				OnGround:      faker.Bool(),
				LastContact:   i64(int64(faker.Number(1700000000, 1700086400))),
			}
			if faker.Bool() {
				s.Callsign = faker.LetterN(3) + faker.Numerify("###")
			} else if faker.Bool() {
				s.Callsign = "  "
			}
			if faker.Number(0, 9) > 1 {
				s.Longitude = f64(faker.Float64Range(-180, 180))
				s.Latitude = f64(faker.Float64Range(-90, 90))
			}
			if faker.Bool() {
				s.BaroAltitude = f64(faker.Float64Range(0, 13000))
			}
			if faker.Bool() {
				s.Velocity = f64(faker.Float64Range(0, 300))
			}
			states[i] = s
		}

		table := NormalizePositions(RawStates{States: states}, fetchInstant)
		for i, r := range table.Records {
			p := r.Position
			require.NotNil(t, p)
			assert.False(t, p.OnGround)
			assert.NotEmpty(t, p.Callsign)
			assert.Equal(t, p.Callsign, r.Label())
			assert.False(t, p.Timestamp.IsZero())
			if p.BaroAltitude != nil {
				assert.InDelta(t, *p.BaroAltitude*3.28084, *p.AltitudeFt, 1e-9)
			} else {
				assert.Nil(t, p.AltitudeFt)
			}
			if p.Velocity != nil {
				assert.InDelta(t, *p.Velocity*2.237, *p.SpeedMph, 1e-9)
			} else {
				assert.Nil(t, p.SpeedMph)
			}
			if i > 0 {
				assert.False(t, p.LastContact.After(table.Records[i-1].Position.LastContact))
			}
		}
	}
}

// ---------------------------------------------------------------------------
// Schedules
// ---------------------------------------------------------------------------

func TestNormalizeSchedules(t *testing.T) {
	raw := []RawFlight{
		{FlightNumber: "401", Origin: "SYD", Destination: "MEL", DepartureTime: "2025-01-10T08:30:00+00:00", ArrivalTime: "2025-01-10T10:05:00+00:00", DepartureDelay: 15},
		{FlightNumber: "  ", Origin: "SYD", Destination: "BNE"},
		{FlightNumber: "702", Origin: "BNE", Destination: "SYD", DepartureTime: "2025-01-10T09:00:00.123+00:00"},
		{FlightNumber: "9", Origin: "PER", Destination: "ADL", DepartureTime: "garbage", ArrivalTime: "2025-01-10T07:00:00"},
		{FlightNumber: "10", Origin: "ADL", Destination: "PER"},
	}

	table := NormalizeSchedules(raw, fetchInstant)
	require.Equal(t, models.SourceSchedule, table.Source)
	require.Equal(t, 4, table.Len())

	labels := make([]string, table.Len())
	for i, r := range table.Records {
		labels[i] = r.Label()
	}
	// descending departure, missing departures last in input order
	assert.Equal(t, []string{"702", "401", "9", "10"}, labels)

	first := table.Records[1].Schedule
	require.NotNil(t, first.DepartureTime)
	assert.Equal(t, time.Date(2025, 1, 10, 8, 30, 0, 0, time.UTC), *first.DepartureTime)
	assert.Equal(t, *first.DepartureTime, first.Timestamp)
	assert.Equal(t, 15, first.DepartureDelay)

	route, ok := table.Records[1].Route()
	require.True(t, ok)
	assert.Equal(t, "SYD → MEL", route)

	bad := table.Records[2].Schedule
	assert.Nil(t, bad.DepartureTime)
	require.NotNil(t, bad.ArrivalTime)
	assert.Equal(t, *bad.ArrivalTime, bad.Timestamp)

	none := table.Records[3].Schedule
	assert.Nil(t, none.DepartureTime)
	assert.Nil(t, none.ArrivalTime)
	assert.Equal(t, fetchInstant, none.Timestamp)
}

func TestNormalizeSchedulesProperties(t *testing.T) {
	faker := gofakeit.New(7)

	for round := 0; round < 20; round++ {
		raw := make([]RawFlight, faker.Number(0, 50))
		for i := range raw {
			f := RawFlight{
				Origin:      faker.LetterN(3),
				Destination: faker.LetterN(3),
			}
			if faker.Number(0, 9) > 1 {
				f.FlightNumber = faker.Numerify("####")
			}
			if faker.Bool() {
				f.DepartureTime = faker.DateRange(fetchInstant.Add(-48*time.Hour), fetchInstant).Format(time.RFC3339)
			}
			raw[i] = f
		}

		table := NormalizeSchedules(raw, fetchInstant)
		seenMissing := false
		for i, r := range table.Records {
			s := r.Schedule
			require.NotNil(t, s)
			assert.NotEmpty(t, s.FlightNumber)
			assert.False(t, s.Timestamp.IsZero())
			if s.DepartureTime == nil {
				seenMissing = true
				continue
			}
			assert.False(t, seenMissing, "rows with a departure must precede rows without")
			if i > 0 && table.Records[i-1].Schedule.DepartureTime != nil {
				assert.False(t, s.DepartureTime.After(*table.Records[i-1].Schedule.DepartureTime))
			}
		}
	}
}
