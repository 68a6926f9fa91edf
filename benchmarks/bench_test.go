package benchmarks

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/yash/flightinsight/internal/export"
	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/internal/query"
	"github.com/yash/flightinsight/internal/summary"
	"github.com/yash/flightinsight/pkg/models"
)

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

var airports = []string{"SYD", "MEL", "BNE", "PER", "ADL", "CBR", "HBA", "DRW", "OOL", "CNS", "AKL", "SIN"}

func scheduleTable(n int, seed int64) models.Table {
	faker := gofakeit.New(seed)
	airlines := []string{faker.Company(), faker.Company(), faker.Company(), faker.Company()}
	start := now.Add(-30 * 24 * time.Hour)

	recs := make([]models.Record, n)
	for i := range recs {
		dep := faker.DateRange(start, now)
		recs[i] = models.NewScheduleRecord(models.ScheduleRecord{
			FlightNumber:  faker.Numerify("####"),
			Airline:       airlines[faker.Number(0, len(airlines)-1)],
			Origin:        airports[faker.Number(0, len(airports)-1)],
			Destination:   airports[faker.Number(0, len(airports)-1)],
			DepartureTime: &dep,
			FlightStatus:  "scheduled",
			Timestamp:     dep,
		})
	}
	return models.Table{Source: models.SourceSchedule, Records: recs, FetchedAt: now, Synthesized: true}
}

func positionTable(n int, seed int64) models.Table {
	faker := gofakeit.New(seed)
	recs := make([]models.Record, n)
	for i := range recs {
		speed := faker.Float64Range(200, 600)
		alt := faker.Float64Range(1000, 40000)
		ts := faker.DateRange(now.Add(-24*time.Hour), now)
		recs[i] = models.NewPositionRecord(models.PositionRecord{
			ICAO24:        faker.HexUint32(),
			Callsign:      faker.LetterN(3) + faker.Numerify("###"),
			OriginCountry: faker.Country(),
			LastContact:   ts,
			Longitude:     faker.Longitude(),
			Latitude:      faker.Latitude(),
			AltitudeFt:    &alt,
			SpeedMph:      &speed,
			Timestamp:     ts,
		})
	}
	return models.Table{Source: models.SourcePosition, Records: recs, FetchedAt: now}
}

var sizes = []int{100, 1000, 10000}

// ---------------------------------------------------------------------------
// Benchmarks
// ---------------------------------------------------------------------------

func BenchmarkSummarize(b *testing.B) {
	for _, n := range sizes {
		t := scheduleTable(n, 7)
		b.Run(fmt.Sprintf("schedule_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = summary.Summarize(t)
			}
		})
	}
}

func BenchmarkOverviewPositions(b *testing.B) {
	for _, n := range sizes {
		t := positionTable(n, 7)
		b.Run(fmt.Sprintf("position_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = summary.Overview(t)
			}
		})
	}
}

func BenchmarkBuildCharts(b *testing.B) {
	t := scheduleTable(10000, 7)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = summary.BuildCharts(t)
	}
}

func BenchmarkQueryApply(b *testing.B) {
	t := scheduleTable(10000, 7)
	filters := map[string]query.Filter{
		"default":  query.DefaultFilter(t),
		"origin":   {Origins: []string{"SYD", "MEL"}, Limit: query.DefaultLimit},
		"window":   {Window: query.TimeRange{Start: now.Add(-72 * time.Hour), End: now}, Limit: query.MaxLimit},
		"no_match": {Origins: []string{"LAX"}, Limit: query.DefaultLimit},
	}
	for name, f := range filters {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = query.Apply(t, f)
			}
		})
	}
}

func BenchmarkWriteCSV(b *testing.B) {
	t := scheduleTable(5000, 7)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := export.WriteCSV(io.Discard, t); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalyzeFallback(b *testing.B) {
	t := scheduleTable(5000, 7)
	g := insight.NewGenerator(nil, quiet())
	kinds := insight.Selectable()
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.AnalyzeTable(ctx, t, kinds)
	}
}
