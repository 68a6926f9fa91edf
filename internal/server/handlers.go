package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/yash/flightinsight/internal/export"
	"github.com/yash/flightinsight/internal/ingestion"
	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/internal/memory"
	"github.com/yash/flightinsight/internal/query"
	"github.com/yash/flightinsight/internal/session"
	"github.com/yash/flightinsight/internal/summary"
	"github.com/yash/flightinsight/pkg/models"
)

const (
	msgNoData     = "No flight data loaded. Fetch data first."
	msgNoInsights = "No analysis results available. Fetch data with AI analysis enabled."
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		s.logger.Error("request failed", "path", c.Path(), "error", err)
	}

	body := errorBody{Message: msg, RequestID: c.Response().Header().Get(echo.HeaderXRequestID)}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

// current returns the loaded snapshot or a 404.
func (s *Server) current() (*session.Snapshot, error) {
	snap := s.session.Current()
	if !snap.Loaded() {
		return nil, echo.NewHTTPError(http.StatusNotFound, msgNoData)
	}
	return snap, nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(c echo.Context) error {
	snap := s.session.Current()
	health := map[string]any{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.startTime).String(),
		"version":   Version,
		"loaded":    snap.Loaded(),
	}
	if snap.Loaded() {
		health["records"] = snap.Table.Len()
		health["updated_at"] = snap.UpdatedAt.Format(time.RFC3339)
	}
	if s.cfg.Memory != nil {
		ms := s.cfg.Memory.Stats()
		health["memory"] = map[string]any{
			"state":   ms.State.String(),
			"heap_mb": ms.HeapMB,
		}
		if ms.State >= memory.StateCritical {
			health["status"] = "degraded"
		}
	}
	return c.JSON(http.StatusOK, health)
}

func (s *Server) handleLive(c echo.Context) error {
	return c.String(http.StatusOK, "alive")
}

// ---------------------------------------------------------------------------
// Status
// ---------------------------------------------------------------------------

type timeRangeOption struct {
	Value models.TimeRange `json:"value"`
	Days  int              `json:"days"`
}

type analysisOption struct {
	Kind  insight.Kind `json:"kind"`
	Title string       `json:"title"`
}

type statusResponse struct {
	Credentials Credentials       `json:"credentials"`
	Warnings    []string          `json:"warnings,omitempty"`
	Sources     []models.Source   `json:"sources"`
	Countries   []string          `json:"countries"`
	TimeRanges  []timeRangeOption `json:"time_ranges"`
	Analyses    []analysisOption  `json:"analyses"`
	Defaults    Defaults          `json:"defaults"`
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		Credentials: s.cfg.Credentials,
		Sources:     []models.Source{models.SourcePosition, models.SourceSchedule},
		Countries:   ingestion.Countries(),
		Defaults:    s.cfg.Defaults,
	}
	if !s.cfg.Credentials.AviationStack {
		resp.Warnings = append(resp.Warnings, "AviationStack API key not configured; schedule data is unavailable.")
	}
	if !s.cfg.Credentials.Gemini {
		resp.Warnings = append(resp.Warnings, "Gemini API key not configured; insights use local summaries.")
	}
	for _, tr := range []models.TimeRange{models.Last24Hours, models.Last7Days, models.Last30Days} {
		resp.TimeRanges = append(resp.TimeRanges, timeRangeOption{Value: tr, Days: int(tr.Window() / (24 * time.Hour))})
	}
	for _, k := range insight.Selectable() {
		resp.Analyses = append(resp.Analyses, analysisOption{Kind: k, Title: k.Title()})
	}
	return c.JSON(http.StatusOK, resp)
}

// ---------------------------------------------------------------------------
// Fetch
// ---------------------------------------------------------------------------

type fetchRequest struct {
	Source    string   `json:"source"`
	Country   string   `json:"country"`
	Airport   string   `json:"airport"`
	TimeRange string   `json:"time_range"`
	Analyses  []string `json:"analyses"`
	AI        *bool    `json:"ai"`
}

type fetchResponse struct {
	Outcome     string     `json:"outcome"`
	Message     string     `json:"message"`
	Records     int        `json:"records"`
	Replaced    bool       `json:"replaced"`
	Synthesized bool       `json:"synthesized"`
	Analyzed    bool       `json:"analyzed"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// toRefresh fills blanks from the configured defaults.
func (s *Server) toRefresh(body fetchRequest) (session.RefreshRequest, error) {
	d := s.cfg.Defaults
	req := session.RefreshRequest{
		Request: ingestion.Request{
			Source:    d.Source,
			Country:   d.Country,
			Airport:   strings.ToUpper(strings.TrimSpace(body.Airport)),
			TimeRange: d.TimeRange,
		},
		Analyses: d.Analyses,
		Analyze:  true,
	}
	if body.Source != "" {
		src, ok := models.ParseSource(body.Source)
		if !ok {
			return req, echo.NewHTTPError(http.StatusBadRequest, "unknown data source "+strconv.Quote(body.Source))
		}
		req.Source = src
	}
	if c := strings.TrimSpace(body.Country); c != "" {
		req.Country = c
	}
	if body.TimeRange != "" {
		tr, ok := models.ParseTimeRange(body.TimeRange)
		if !ok {
			return req, echo.NewHTTPError(http.StatusBadRequest, "unknown time range "+strconv.Quote(body.TimeRange))
		}
		req.TimeRange = tr
	}
	if len(body.Analyses) > 0 {
		kinds, err := insight.ParseKinds(body.Analyses)
		if err != nil {
			return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		req.Analyses = kinds
	}
	if body.AI != nil {
		req.Analyze = *body.AI
	}
	return req, nil
}

func (s *Server) handleFetch(c echo.Context) error {
	var body fetchRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
	}
	req, err := s.toRefresh(body)
	if err != nil {
		return err
	}

	res := s.session.Refresh(c.Request().Context(), req)
	resp := fetchResponse{
		Outcome:  res.Fetch.Outcome.String(),
		Message:  res.Message(),
		Records:  res.Fetch.Table.Len(),
		Replaced: res.Replaced,
	}
	if res.Replaced {
		snap := res.Snapshot
		resp.Synthesized = snap.Table.Synthesized
		resp.Analyzed = snap.Report != nil
		resp.UpdatedAt = &snap.UpdatedAt
	}
	return c.JSON(fetchStatus(res.Fetch), resp)
}

func fetchStatus(r ingestion.FetchResult) int {
	if r.Outcome != ingestion.OutcomeFailed {
		return http.StatusOK
	}
	if errors.Is(r.Err, ingestion.ErrMissingCredential) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// parseFilter reads origin, destination and limit. Repeated parameters and
// comma-separated lists are both accepted.
func parseFilter(c echo.Context) (query.Filter, error) {
	f := query.Filter{
		Origins:      listParam(c, "origin"),
		Destinations: listParam(c, "destination"),
	}
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer")
		}
		f.Limit = n
	}
	f.Limit = query.ClampLimit(f.Limit)
	return f, nil
}

func listParam(c echo.Context, name string) []string {
	var out []string
	for _, v := range c.QueryParams()[name] {
		for _, part := range strings.Split(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// rowOf returns the flat record for JSON output.
func rowOf(r models.Record) any {
	if r.Position != nil {
		return r.Position
	}
	return r.Schedule
}

type flightsResponse struct {
	Source  models.Source `json:"source"`
	Columns []string      `json:"columns"`
	Total   int           `json:"total"`
	Limit   int           `json:"limit"`
	Rows    []any         `json:"rows"`
}

func (s *Server) handleFlights(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	f, err := parseFilter(c)
	if err != nil {
		return err
	}

	res := query.Apply(snap.Table, f)
	rows := make([]any, len(res.Records))
	for i, r := range res.Records {
		rows[i] = rowOf(r)
	}
	return c.JSON(http.StatusOK, flightsResponse{
		Source:  snap.Table.Source,
		Columns: snap.Table.Columns(),
		Total:   res.Total,
		Limit:   f.Limit,
		Rows:    rows,
	})
}

type filterOptionsResponse struct {
	Options  query.Options `json:"options"`
	Selected query.Options `json:"selected"`
	Limits   []int         `json:"limits"` // min, default, max
}

func (s *Server) handleFilterOptions(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	def := query.DefaultFilter(snap.Table)
	return c.JSON(http.StatusOK, filterOptionsResponse{
		Options:  query.FilterOptions(snap.Table),
		Selected: query.Options{Origins: def.Origins, Destinations: def.Destinations},
		Limits:   []int{query.MinLimit, query.DefaultLimit, query.MaxLimit},
	})
}

func (s *Server) handleExport(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	f, err := parseFilter(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.WriteRecords(&buf, snap.Table.Source, query.Select(snap.Table, f)); err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+export.FileName(s.now())+`"`)
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ---------------------------------------------------------------------------
// Summary, charts, insights
// ---------------------------------------------------------------------------

type summaryResponse struct {
	Summary  summary.DataSummary `json:"summary"`
	Overview []summary.Metric    `json:"overview"`
	Request  requestView         `json:"request"`
}

type requestView struct {
	Source    models.Source    `json:"source"`
	Country   string           `json:"country"`
	Airport   string           `json:"airport,omitempty"`
	TimeRange models.TimeRange `json:"time_range"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func viewOf(snap *session.Snapshot) requestView {
	return requestView{
		Source:    snap.Request.Source,
		Country:   snap.Request.Country,
		Airport:   snap.Request.Airport,
		TimeRange: snap.Request.TimeRange,
		UpdatedAt: snap.UpdatedAt,
	}
}

func (s *Server) handleSummary(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryResponse{
		Summary:  snap.Summary,
		Overview: summary.Overview(snap.Table),
		Request:  viewOf(snap),
	})
}

func (s *Server) handleCharts(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary.BuildCharts(snap.Table))
}

func (s *Server) handleInsights(c echo.Context) error {
	snap, err := s.current()
	if err != nil {
		return err
	}
	if snap.Report == nil {
		return echo.NewHTTPError(http.StatusNotFound, msgNoInsights)
	}
	return c.JSON(http.StatusOK, snap.Report)
}
