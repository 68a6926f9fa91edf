package insight

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yash/flightinsight/internal/summary"
	"github.com/yash/flightinsight/pkg/models"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

// fakeModel records prompts and answers from a per-kind script.
type fakeModel struct {
	mu      sync.Mutex
	prompts []string
	reply   func(prompt string) (string, error)
}

func (f *fakeModel) GenerateText(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.reply == nil {
		return "model says hi", nil
	}
	return f.reply(prompt)
}

func (f *fakeModel) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

var base = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func sampleSummary() summary.DataSummary {
	s := summary.DataSummary{
		TotalRecords: 30,
		Source:       models.SourceSchedule,
		Start:        base,
		End:          base.Add(48 * time.Hour),
		TopRoutes: []summary.Count{
			{Key: "SYD → MEL", Count: 9},
			{Key: "MEL → SYD", Count: 7},
			{Key: "SYD → BNE", Count: 5},
			{Key: "BNE → SYD", Count: 4},
			{Key: "PER → SYD", Count: 3},
			{Key: "ADL → MEL", Count: 2},
		},
		TopAirlines:   []summary.Count{{Key: "Qantas", Count: 20}, {Key: "Virgin Australia", Count: 10}},
		DateRangeDays: 2,
	}
	s.Hourly[9] = 20
	s.Hourly[17] = 10
	return s
}

func kinds(r Report) []Kind {
	out := make([]Kind, len(r.Insights))
	for i, in := range r.Insights {
		out[i] = in.Kind
	}
	return out
}

// ---------------------------------------------------------------------------
// Fallback Tests
// ---------------------------------------------------------------------------

func TestAnalyzeWithoutModelUsesFallbacks(t *testing.T) {
	g := NewGenerator(nil, nil)
	assert.False(t, g.HasModel())

	r := g.Analyze(context.Background(), sampleSummary(), []Kind{RoutePopularity, DemandTrends, PeakHours, AircraftTypes})

	assert.Equal(t, []Kind{RoutePopularity, DemandTrends, PeakHours, AircraftTypes, Recommendations}, kinds(r))
	for _, in := range r.Insights {
		assert.NotEmpty(t, in.Text, in.Kind)
		assert.False(t, in.Generated)
	}

	route, _ := r.Get(RoutePopularity)
	assert.Equal(t, "Top routes by frequency:\n"+
		"• SYD → MEL: 9 flights\n"+
		"• MEL → SYD: 7 flights\n"+
		"• SYD → BNE: 5 flights\n"+
		"• BNE → SYD: 4 flights\n"+
		"• PER → SYD: 3 flights", route.Text)

	demand, _ := r.Get(DemandTrends)
	assert.Equal(t, "Average daily flights: 15.0\nTotal flights analyzed: 30", demand.Text)

	peak, _ := r.Get(PeakHours)
	assert.Equal(t, msgPeakUnavailable, peak.Text)

	rec, _ := r.Get(Recommendations)
	assert.Equal(t, basicRecommendations, rec.Text)
	assert.Equal(t, 4, strings.Count(rec.Text, "•"))
}

func TestFallbackRoutesWithoutRouteData(t *testing.T) {
	s := summary.DataSummary{TotalRecords: 3, Source: models.SourcePosition, DateRangeDays: 1}
	assert.Equal(t, msgRouteUnavailable, Fallback(RoutePopularity, s))
}

func TestFallbackNeverEmpty(t *testing.T) {
	for _, k := range append(Selectable(), MarketTrends, Recommendations, Kind("other")) {
		assert.NotEmpty(t, Fallback(k, summary.DataSummary{}), k)
	}
}

func TestAnalyzeWithoutModelOmitsMarketTrends(t *testing.T) {
	r := NewGenerator(nil, nil).Analyze(context.Background(), sampleSummary(), nil)
	assert.Equal(t, []Kind{Recommendations}, kinds(r))
}

// ---------------------------------------------------------------------------
// Model Tests
// ---------------------------------------------------------------------------

func TestAnalyzeWithModel(t *testing.T) {
	m := &fakeModel{}
	g := NewGenerator(m, nil)

	r := g.Analyze(context.Background(), sampleSummary(), []Kind{RoutePopularity, PeakHours})

	assert.Equal(t, []Kind{RoutePopularity, PeakHours, MarketTrends, Recommendations}, kinds(r))
	assert.Equal(t, 4, m.calls())
	for _, in := range r.Insights {
		assert.True(t, in.Generated)
		assert.Equal(t, "model says hi", in.Text)
		assert.Equal(t, in.Kind.Title(), in.Title)
	}
}

func TestAnalyzeAircraftSkipsModel(t *testing.T) {
	m := &fakeModel{}
	r := NewGenerator(m, nil).Analyze(context.Background(), sampleSummary(), []Kind{AircraftTypes})

	in, ok := r.Get(AircraftTypes)
	require.True(t, ok)
	assert.Equal(t, msgAircraftNeedsData, in.Text)
	assert.False(t, in.Generated)
	assert.Equal(t, 2, m.calls()) // market trends and recommendations only
}

func TestAnalyzePeakHoursWithoutHourlyData(t *testing.T) {
	s := sampleSummary()
	s.Hourly = [24]int{}
	m := &fakeModel{}

	r := NewGenerator(m, nil).Analyze(context.Background(), s, []Kind{PeakHours})
	in, _ := r.Get(PeakHours)
	assert.Equal(t, msgNoHourlyData, in.Text)
	assert.Equal(t, 2, m.calls())
}

func TestAnalyzeModelErrorDegradesPerSection(t *testing.T) {
	m := &fakeModel{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "route popularity") {
			return "", errors.New("quota exceeded")
		}
		return "ok", nil
	}}

	r := NewGenerator(m, nil).Analyze(context.Background(), sampleSummary(), []Kind{RoutePopularity, DemandTrends})

	route, _ := r.Get(RoutePopularity)
	assert.False(t, route.Generated)
	assert.True(t, strings.HasPrefix(route.Text, "Top routes by frequency:"))

	demand, _ := r.Get(DemandTrends)
	assert.True(t, demand.Generated)
	assert.Equal(t, "ok", demand.Text)
}

func TestAnalyzeEmptyModelText(t *testing.T) {
	m := &fakeModel{reply: func(string) (string, error) { return "  \n", nil }}

	r := NewGenerator(m, nil).Analyze(context.Background(), sampleSummary(), []Kind{DemandTrends})

	demand, _ := r.Get(DemandTrends)
	assert.Equal(t, msgNoAnalysis, demand.Text)
	rec, _ := r.Get(Recommendations)
	assert.Equal(t, msgNoRecommendations, rec.Text)
}

func TestAnalyzeIgnoresRequestedFixedSections(t *testing.T) {
	r := NewGenerator(&fakeModel{}, nil).Analyze(context.Background(), sampleSummary(),
		[]Kind{Recommendations, DemandTrends, MarketTrends})
	assert.Equal(t, []Kind{DemandTrends, MarketTrends, Recommendations}, kinds(r))
}

func TestAnalyzeTableAttachesKeyMetrics(t *testing.T) {
	at := base
	tbl := models.Table{Source: models.SourceSchedule, Records: []models.Record{
		models.NewScheduleRecord(models.ScheduleRecord{
			FlightNumber: "401", Airline: "Qantas", Origin: "SYD", Destination: "MEL",
			DepartureTime: &at, Timestamp: at,
		}),
	}}

	r := NewGenerator(nil, nil).AnalyzeTable(context.Background(), tbl, DefaultKinds())
	require.NotEmpty(t, r.KeyMetrics)
	assert.Equal(t, "Total Flights", r.KeyMetrics[0].Label)
	assert.Equal(t, "1", r.KeyMetrics[0].Value)

	route, _ := r.Get(RoutePopularity)
	assert.Equal(t, "Top routes by frequency:\n• SYD → MEL: 1 flights", route.Text)
}
