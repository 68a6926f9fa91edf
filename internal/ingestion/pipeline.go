package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yash/flightinsight/internal/cache"
	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/pkg/models"
)

// PositionFetcher returns raw state vectors for a country.
type PositionFetcher interface {
	FetchStates(ctx context.Context, country string) (RawStates, error)
}

// ScheduleFetcher returns raw scheduled flights for a country.
type ScheduleFetcher interface {
	FetchFlights(ctx context.Context, country string) ([]RawFlight, error)
}

// Request selects what one pipeline run fetches.
type Request struct {
	Source    models.Source
	Country   string
	Airport   string // optional; part of the cache key, not sent upstream
	TimeRange models.TimeRange
}

func (r Request) cacheKey() cache.Key {
	return cache.Key{Source: r.Source, Country: r.Country, TimeRange: r.TimeRange, Airport: r.Airport}
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

// Pipeline runs fetch, normalize and synthesize for one request and caches
// successful results.
type Pipeline struct {
	positions PositionFetcher
	schedules ScheduleFetcher
	synth     *Synthesizer
	cache     *cache.TTLCache[FetchResult]
	now       func() time.Time
	logger    *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithSynthesizer replaces the default wall-clock synthesizer.
func WithSynthesizer(s *Synthesizer) PipelineOption {
	return func(p *Pipeline) { p.synth = s }
}

// WithCache replaces the default five minute cache.
func WithCache(c *cache.TTLCache[FetchResult]) PipelineOption {
	return func(p *Pipeline) { p.cache = c }
}

// WithClock sets the fetch instant source.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline wires the two fetchers into a pipeline.
func NewPipeline(positions PositionFetcher, schedules ScheduleFetcher, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		positions: positions,
		schedules: schedules,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.synth == nil {
		p.synth = NewSynthesizer()
	}
	if p.cache == nil {
		p.cache = cache.New[FetchResult](cache.DefaultTTL)
	}
	return p
}

// Fetch returns the table for req, from cache when a successful result for
// the same key is still live. Failures are returned but never cached.
func (p *Pipeline) Fetch(ctx context.Context, req Request) FetchResult {
	res, hit, err := p.cache.GetOrCompute(req.cacheKey(), func() (FetchResult, error) {
		r := p.run(ctx, req)
		if r.Outcome == OutcomeFailed {
			return r, r.Err
		}
		return r, nil
	})
	if err != nil && res.Outcome != OutcomeFailed {
		res = Failed(req.Source, err)
	}

	p.logger.Info("fetch complete",
		"source", req.Source,
		"country", req.Country,
		"time_range", req.TimeRange,
		"outcome", res.Outcome,
		"records", res.Table.Len(),
		"cached", hit)
	return res
}

// Invalidate drops the cached result for req.
func (p *Pipeline) Invalidate(req Request) {
	p.cache.Delete(req.cacheKey())
}

// FlushCache drops every cached result and returns how many there were.
func (p *Pipeline) FlushCache() int {
	n := p.cache.Len()
	p.cache.Flush()
	return n
}

func (p *Pipeline) run(ctx context.Context, req Request) FetchResult {
	src := req.Source.String()
	start := time.Now()
	defer func() {
		metrics.FetchLatency.WithLabelValues(src).Observe(time.Since(start).Seconds())
	}()

	var (
		table models.Table
		err   error
	)
	switch req.Source {
	case models.SourcePosition:
		table, err = p.fetchPositions(ctx, req.Country)
	case models.SourceSchedule:
		table, err = p.fetchSchedules(ctx, req.Country)
	default:
		err = fmt.Errorf("unknown data source %d", req.Source)
	}
	if err != nil {
		kind := "unknown"
		if k, ok := KindOf(err); ok {
			kind = k.String()
		}
		metrics.FetchErrors.WithLabelValues(src, kind).Inc()
		metrics.FetchRequests.WithLabelValues(src, OutcomeFailed.String()).Inc()
		p.logger.Error("fetch failed", "source", req.Source, "country", req.Country, "error", err)
		return Failed(req.Source, err)
	}

	table = p.synth.Apply(table, req.TimeRange)
	res := Ok(table)
	metrics.FetchRequests.WithLabelValues(src, res.Outcome.String()).Inc()
	return res
}

func (p *Pipeline) fetchPositions(ctx context.Context, country string) (models.Table, error) {
	if p.positions == nil {
		return models.Table{}, fmt.Errorf("position source not configured")
	}
	raw, err := p.positions.FetchStates(ctx, country)
	if err != nil {
		return models.Table{}, err
	}
	return NormalizePositions(raw, p.now().UTC()), nil
}

func (p *Pipeline) fetchSchedules(ctx context.Context, country string) (models.Table, error) {
	if p.schedules == nil {
		return models.Table{}, fmt.Errorf("schedule source not configured")
	}
	raw, err := p.schedules.FetchFlights(ctx, country)
	if err != nil {
		return models.Table{}, err
	}
	return NormalizeSchedules(raw, p.now().UTC()), nil
}
