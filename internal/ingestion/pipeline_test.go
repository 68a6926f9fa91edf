package ingestion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yash/flightinsight/internal/cache"
	"github.com/yash/flightinsight/pkg/models"
)

// ---------------------------------------------------------------------------
// Test Doubles
// ---------------------------------------------------------------------------

type stubPositions struct {
	calls int
	raw   RawStates
	err   error
}

func (s *stubPositions) FetchStates(ctx context.Context, country string) (RawStates, error) {
	s.calls++
	return s.raw, s.err
}

type stubSchedules struct {
	calls int
	raw   []RawFlight
	err   error
}

func (s *stubSchedules) FetchFlights(ctx context.Context, country string) ([]RawFlight, error) {
	s.calls++
	return s.raw, s.err
}

func newTestPipeline(pos PositionFetcher, sched ScheduleFetcher) *Pipeline {
	return NewPipeline(pos, sched,
		WithSynthesizer(fixedSynth(1)),
		WithCache(cache.New[FetchResult](time.Minute)),
		WithClock(func() time.Time { return fetchInstant }),
		WithPipelineLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

// ---------------------------------------------------------------------------
// Pipeline Tests
// ---------------------------------------------------------------------------

func TestPipelinePositionsOK(t *testing.T) {
	pos := &stubPositions{raw: RawStates{States: []RawState{
		{Callsign: "QFA1", Longitude: f64(151), Latitude: f64(-33), LastContact: i64(1700000000)},
	}}}
	p := newTestPipeline(pos, &stubSchedules{})

	res := p.Fetch(context.Background(), Request{Source: models.SourcePosition, Country: "Australia"})
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.Equal(t, 1, res.Table.Len())
	assert.Equal(t, fetchInstant, res.Table.FetchedAt)
	assert.Equal(t, "Successfully fetched 1 flight records", res.Message())
}

func TestPipelineCachesSuccess(t *testing.T) {
	pos := &stubPositions{}
	p := newTestPipeline(pos, &stubSchedules{})
	req := Request{Source: models.SourcePosition, Country: "Australia"}

	first := p.Fetch(context.Background(), req)
	second := p.Fetch(context.Background(), req)

	assert.Equal(t, OutcomeEmpty, first.Outcome)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, pos.calls)

	p.Invalidate(req)
	p.Fetch(context.Background(), req)
	assert.Equal(t, 2, pos.calls)

	assert.Equal(t, 1, p.FlushCache())
	p.Fetch(context.Background(), req)
	assert.Equal(t, 3, pos.calls)
}

func TestPipelineDoesNotCacheFailure(t *testing.T) {
	pos := &stubPositions{err: fetchErr(models.SourcePosition, KindStatus, "unexpected status: %d", 503)}
	p := newTestPipeline(pos, &stubSchedules{})
	req := Request{Source: models.SourcePosition, Country: "Germany"}

	res := p.Fetch(context.Background(), req)
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, res.Table.Empty())
	assert.Contains(t, res.Message(), "Error fetching data")

	pos.err = nil
	res = p.Fetch(context.Background(), req)
	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Equal(t, 2, pos.calls)
}

func TestPipelineMissingCredentialMessage(t *testing.T) {
	sched := &stubSchedules{err: &FetchError{Source: models.SourceSchedule, Kind: KindMissingCredential, Err: ErrMissingCredential}}
	p := newTestPipeline(&stubPositions{}, sched)

	res := p.Fetch(context.Background(), Request{Source: models.SourceSchedule, Country: "Australia"})
	require.Equal(t, OutcomeFailed, res.Outcome)
	assert.True(t, errors.Is(res.Err, ErrMissingCredential))
	assert.Equal(t, "AviationStack API key not found. Please set AVIATIONSTACK_API_KEY environment variable.", res.Message())
}

func TestPipelineSchedulesSynthesized(t *testing.T) {
	sched := &stubSchedules{raw: []RawFlight{
		{FlightNumber: "1", Origin: "SYD", Destination: "MEL", DepartureTime: "2025-01-10T08:00:00Z"},
		{FlightNumber: "2", Origin: "SYD", Destination: "BNE", DepartureTime: "2025-01-10T09:00:00Z"},
	}}
	p := newTestPipeline(&stubPositions{}, sched)

	res := p.Fetch(context.Background(), Request{Source: models.SourceSchedule, Country: "Australia", TimeRange: models.Last30Days})
	require.Equal(t, OutcomeOK, res.Outcome)
	assert.True(t, res.Table.Synthesized)
	for _, r := range res.Table.Records {
		assert.True(t, r.Timestamp().After(fetchInstant.Add(-30*24*time.Hour)))
		assert.False(t, r.Timestamp().After(fetchInstant))
	}
}

func TestPipelineCacheKeyIncludesAirportAndRange(t *testing.T) {
	pos := &stubPositions{}
	p := newTestPipeline(pos, &stubSchedules{})
	base := Request{Source: models.SourcePosition, Country: "Japan"}

	p.Fetch(context.Background(), base)
	withAirport := base
	withAirport.Airport = "HND"
	p.Fetch(context.Background(), withAirport)
	week := base
	week.TimeRange = models.Last7Days
	p.Fetch(context.Background(), week)

	assert.Equal(t, 3, pos.calls)
}

func TestPipelineNilFetcherFails(t *testing.T) {
	p := newTestPipeline(nil, nil)
	res := p.Fetch(context.Background(), Request{Source: models.SourceSchedule})
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Error(t, res.Err)
}

// ---------------------------------------------------------------------------
// Result Tests
// ---------------------------------------------------------------------------

func TestOkTagsEmptyTables(t *testing.T) {
	assert.Equal(t, OutcomeEmpty, Ok(models.Table{}).Outcome)
	assert.Equal(t, "No flight data found for the selected criteria. Please try different filters.", Ok(models.Table{}).Message())
}

func TestFetchErrorFormatting(t *testing.T) {
	err := fetchErr(models.SourceSchedule, KindDecode, "parsing response: %w", io.ErrUnexpectedEOF)
	assert.Equal(t, "aviationstack fetch failed (decode): parsing response: unexpected EOF", err.Error())
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}
