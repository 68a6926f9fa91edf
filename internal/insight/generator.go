package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yash/flightinsight/internal/metrics"
	"github.com/yash/flightinsight/internal/summary"
	"github.com/yash/flightinsight/pkg/models"
)

// Fixed texts shown when no model is configured or a model call fails.
const (
	msgRouteUnavailable    = "AI analysis not available. Please check API key configuration."
	msgPeakUnavailable     = "Peak hours analysis not available without AI."
	msgAircraftUnavailable = "Aircraft analysis not available without AI."
	msgMarketUnavailable   = "Market trends analysis not available without AI."
	msgNoHourlyData        = "No hourly data available for peak hours analysis."
	msgAircraftNeedsData   = "Aircraft type analysis requires more detailed flight data. Consider upgrading data sources for comprehensive aircraft insights."
	msgNoAnalysis          = "No analysis generated"
	msgNoRecommendations   = "No recommendations generated"

	basicRecommendations = "• Monitor peak travel periods for pricing optimization\n" +
		"• Focus on popular routes for marketing\n" +
		"• Consider seasonal variations in demand\n" +
		"• Analyze competitor presence on key routes"
)

// routeDigestSize is how many routes the local route digest lists.
const routeDigestSize = 5

// Insight is one section of a report.
type Insight struct {
	Kind      Kind   `json:"kind"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Generated bool   `json:"generated"` // true when the text came from the model
}

// Report is the ordered result of one analysis run.
type Report struct {
	Insights    []Insight        `json:"insights"`
	KeyMetrics  []summary.Metric `json:"key_metrics"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Get returns the section of the given kind.
func (r Report) Get(k Kind) (Insight, bool) {
	for _, in := range r.Insights {
		if in.Kind == k {
			return in, true
		}
	}
	return Insight{}, false
}

// ---------------------------------------------------------------------------
// Generator
// ---------------------------------------------------------------------------

// Generator produces insight reports. A nil model means no credential is
// configured and every section uses its local fallback.
type Generator struct {
	model  TextGenerator
	logger *slog.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator. model may be nil.
func NewGenerator(model TextGenerator, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{model: model, logger: logger, now: time.Now}
}

// HasModel reports whether a language model is configured.
func (g *Generator) HasModel() bool { return g.model != nil }

// AnalyzeTable summarizes t, analyzes it and attaches the key metrics.
func (g *Generator) AnalyzeTable(ctx context.Context, t models.Table, kinds []Kind) Report {
	r := g.Analyze(ctx, summary.Summarize(t), kinds)
	r.KeyMetrics = summary.KeyMetrics(t)
	return r
}

// Analyze produces one section per requested kind, in request order,
// followed by market trends (model only) and recommendations. Model calls
// are sequential and each section degrades on its own.
func (g *Generator) Analyze(ctx context.Context, s summary.DataSummary, kinds []Kind) Report {
	r := Report{GeneratedAt: g.now().UTC()}
	for _, k := range kinds {
		if k == MarketTrends || k == Recommendations {
			continue
		}
		r.Insights = append(r.Insights, g.section(ctx, k, s))
	}
	if g.model != nil {
		r.Insights = append(r.Insights, g.section(ctx, MarketTrends, s))
	}
	r.Insights = append(r.Insights, g.section(ctx, Recommendations, s))
	return r
}

func (g *Generator) section(ctx context.Context, k Kind, s summary.DataSummary) Insight {
	in := Insight{Kind: k, Title: k.Title()}

	if g.model == nil {
		in.Text = Fallback(k, s)
		metrics.InsightRequests.WithLabelValues(string(k), "fallback").Inc()
		return in
	}

	switch k {
	case AircraftTypes:
		in.Text = msgAircraftNeedsData
		metrics.InsightRequests.WithLabelValues(string(k), "fixed").Inc()
		return in
	case PeakHours:
		if !s.HasHourly() {
			in.Text = msgNoHourlyData
			metrics.InsightRequests.WithLabelValues(string(k), "fixed").Inc()
			return in
		}
	}

	text, err := g.generate(ctx, k, s)
	if err != nil {
		g.logger.Warn("insight generation failed, using fallback", "kind", k, "error", err)
		metrics.InsightRequests.WithLabelValues(string(k), "error").Inc()
		in.Text = Fallback(k, s)
		return in
	}

	metrics.InsightRequests.WithLabelValues(string(k), "model").Inc()
	in.Generated = true
	in.Text = text
	if strings.TrimSpace(text) == "" {
		in.Text = msgNoAnalysis
		if k == Recommendations {
			in.Text = msgNoRecommendations
		}
	}
	return in
}

func (g *Generator) generate(ctx context.Context, k Kind, s summary.DataSummary) (string, error) {
	prompt, err := renderPrompt(k, s)
	if err != nil {
		return "", err
	}
	start := time.Now()
	text, err := g.model.GenerateText(ctx, prompt)
	metrics.InsightLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	g.logger.Debug("insight generated", "kind", k, "chars", len(text), "elapsed", time.Since(start))
	return text, nil
}

// ---------------------------------------------------------------------------
// Fallbacks
// ---------------------------------------------------------------------------

// Fallback returns the deterministic text for k computed from s alone.
// It is never empty.
func Fallback(k Kind, s summary.DataSummary) string {
	switch k {
	case RoutePopularity:
		if len(s.TopRoutes) == 0 {
			return msgRouteUnavailable
		}
		routes := s.TopRoutes
		if len(routes) > routeDigestSize {
			routes = routes[:routeDigestSize]
		}
		var b strings.Builder
		b.WriteString("Top routes by frequency:")
		for _, c := range routes {
			fmt.Fprintf(&b, "\n• %s: %d flights", c.Key, c.Count)
		}
		return b.String()
	case DemandTrends:
		return fmt.Sprintf("Average daily flights: %.1f\nTotal flights analyzed: %d", s.AverageDaily(), s.TotalRecords)
	case PeakHours:
		return msgPeakUnavailable
	case AircraftTypes:
		return msgAircraftUnavailable
	case MarketTrends:
		return msgMarketUnavailable
	case Recommendations:
		return basicRecommendations
	}
	return fmt.Sprintf("%s analysis not available.", k.Title())
}
