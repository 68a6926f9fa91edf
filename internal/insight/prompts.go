package insight

import (
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/yash/flightinsight/internal/summary"
)

// promptData is what every prompt template sees.
type promptData struct {
	Total        int
	TopRoutes    []summary.Count
	TopCountries []summary.Count
	TopAirlines  []summary.Count
	Start        time.Time
	End          time.Time
	Hourly       [24]int
}

func newPromptData(s summary.DataSummary) promptData {
	return promptData{
		Total:        s.TotalRecords,
		TopRoutes:    s.TopRoutes,
		TopCountries: s.TopCountries,
		TopAirlines:  s.TopAirlines,
		Start:        s.Start,
		End:          s.End,
		Hourly:       s.Hourly,
	}
}

var promptFuncs = template.FuncMap{
	"counts": formatCounts,
	"keys":   formatKeys,
	"hours":  formatHours,
	"span":   formatSpan,
}

// formatCounts renders a frequency list as {key: n, ...} in list order.
func formatCounts(cs []summary.Count) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = fmt.Sprintf("%s: %d", c.Key, c.Count)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatKeys renders the first n keys as [a, b, c].
func formatKeys(n int, cs []summary.Count) string {
	if len(cs) > n {
		cs = cs[:n]
	}
	keys := make([]string, len(cs))
	for i, c := range cs {
		keys[i] = c.Key
	}
	return "[" + strings.Join(keys, ", ") + "]"
}

// formatHours renders the non-empty hours of the histogram in hour order.
func formatHours(h [24]int) string {
	var parts []string
	for hour, n := range h {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d: %d", hour, n))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatSpan(start, end time.Time) string {
	if start.IsZero() && end.IsZero() {
		return "{}"
	}
	return fmt.Sprintf("{start: %s, end: %s}", start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

var prompts = template.Must(template.New("prompts").Funcs(promptFuncs).Parse(`
{{define "route_popularity"}}Analyze the following flight route data and provide insights about route popularity:

Data Summary:
- Total flights: {{.Total}}
- Top routes: {{counts .TopRoutes}}
- Top countries: {{counts .TopCountries}}

Please provide:
1. Analysis of the most popular routes
2. Market demand patterns
3. Geographic distribution insights
4. Competitive landscape observations

Keep the analysis concise and actionable for a hostel business looking to understand travel patterns.
{{end}}
{{define "demand_trends"}}Analyze the following flight demand data and identify trends:

Data Summary:
- Total flights: {{.Total}}
- Date range: {{span .Start .End}}
- Hourly distribution: {{hours .Hourly}}
- Top airlines: {{counts .TopAirlines}}

Please provide:
1. Demand trend analysis
2. Peak vs off-peak patterns
3. Seasonal considerations
4. Market opportunity identification

Focus on actionable insights for hospitality businesses.
{{end}}
{{define "peak_hours"}}Analyze the following hourly flight distribution data:

Hourly Distribution: {{hours .Hourly}}

Please provide:
1. Identification of peak hours
2. Low-demand periods
3. Business implications for hospitality
4. Recommended strategies based on patterns

Be specific about timing and provide actionable recommendations.
{{end}}
{{define "market_trends"}}Based on the following aviation data, provide a comprehensive market trends analysis:

Flight Data Summary:
- Total flights analyzed: {{.Total}}
- Geographic coverage: {{keys 5 .TopCountries}}
- Major routes: {{keys 5 .TopRoutes}}
- Time period: {{span .Start .End}}

Please provide:
1. Overall market health assessment
2. Growth indicators
3. Competitive landscape
4. Future outlook
5. Strategic recommendations for hospitality businesses

Make it relevant for a hostel chain looking to understand travel patterns.
{{end}}
{{define "recommendations"}}Based on the aviation market data analysis, provide specific recommendations for a hostel chain:

Key Data Points:
- Flight volume: {{.Total}} flights analyzed
- Top destinations: {{keys 3 .TopCountries}}
- Popular routes: {{keys 3 .TopRoutes}}

Please provide:
1. Location strategy recommendations
2. Pricing optimization suggestions
3. Marketing timing recommendations
4. Capacity planning insights
5. Partnership opportunities

Make recommendations specific and actionable.
{{end}}`))

// renderPrompt fills the template for kind.
func renderPrompt(kind Kind, s summary.DataSummary) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, string(kind), newPromptData(s)); err != nil {
		return "", fmt.Errorf("rendering %s prompt: %w", kind, err)
	}
	return strings.TrimSpace(b.String()), nil
}
