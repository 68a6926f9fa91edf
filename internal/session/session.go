// Package session holds the operator's current flight table and everything
// derived from it.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yash/flightinsight/internal/ingestion"
	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/internal/summary"
	"github.com/yash/flightinsight/pkg/models"
)

// Fetcher produces a table for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req ingestion.Request) ingestion.FetchResult
}

// Analyzer produces an insight report for a table.
type Analyzer interface {
	AnalyzeTable(ctx context.Context, t models.Table, kinds []insight.Kind) insight.Report
}

// Snapshot is one consistent view of the session. A snapshot is never
// mutated after it is installed.
type Snapshot struct {
	Request   ingestion.Request
	Table     models.Table
	Summary   summary.DataSummary
	Report    *insight.Report // nil when analysis was not requested
	UpdatedAt time.Time
}

// Loaded reports whether the snapshot holds data.
func (s *Snapshot) Loaded() bool { return s != nil && !s.Table.Empty() }

// RefreshRequest is one "fetch data" action.
type RefreshRequest struct {
	ingestion.Request
	Analyses []insight.Kind
	Analyze  bool
}

// RefreshResult tells the caller what a refresh did.
type RefreshResult struct {
	Fetch    ingestion.FetchResult
	Snapshot *Snapshot // the current snapshot after the refresh
	Replaced bool
}

// Message is the operator-facing status line.
func (r RefreshResult) Message() string { return r.Fetch.Message() }

// ---------------------------------------------------------------------------
// Session
// ---------------------------------------------------------------------------

// Session owns the current snapshot. Readers get the installed snapshot;
// a refresh builds a complete replacement and swaps it in only when the
// fetch returned rows.
type Session struct {
	fetcher  Fetcher
	analyzer Analyzer
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	current *Snapshot

	refreshMu sync.Mutex
}

// New creates an empty session. analyzer may be nil, in which case no
// reports are produced.
func New(fetcher Fetcher, analyzer Analyzer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{fetcher: fetcher, analyzer: analyzer, logger: logger, now: time.Now}
}

// Current returns the installed snapshot, or nil before the first
// successful fetch.
func (s *Session) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Refresh fetches req and, when the fetch returns rows, summarizes and
// optionally analyzes them and installs the result. Empty and failed
// fetches leave the current snapshot in place.
func (s *Session) Refresh(ctx context.Context, req RefreshRequest) RefreshResult {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	res := s.fetcher.Fetch(ctx, req.Request)
	if res.Outcome != ingestion.OutcomeOK {
		s.logger.Warn("session not updated", "outcome", res.Outcome, "message", res.Message())
		return RefreshResult{Fetch: res, Snapshot: s.Current()}
	}

	snap := &Snapshot{
		Request:   req.Request,
		Table:     res.Table,
		Summary:   summary.Summarize(res.Table),
		UpdatedAt: s.now().UTC(),
	}
	if req.Analyze && s.analyzer != nil {
		report := s.analyzer.AnalyzeTable(ctx, res.Table, req.Analyses)
		snap.Report = &report
	}

	s.install(snap)
	s.logger.Info("session updated",
		"source", req.Source,
		"country", req.Country,
		"records", snap.Table.Len(),
		"analyzed", snap.Report != nil)
	return RefreshResult{Fetch: res, Snapshot: snap, Replaced: true}
}

// Reset discards the current snapshot.
func (s *Session) Reset() {
	s.install(nil)
}

func (s *Session) install(snap *Snapshot) {
	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	n := 0
	if snap != nil {
		n = snap.Table.Len()
	}
	metrics.SessionRecords.Set(float64(n))
}
