package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yash/flightinsight/internal/export"
	"github.com/yash/flightinsight/internal/ingestion"
	"github.com/yash/flightinsight/internal/insight"
	"github.com/yash/flightinsight/internal/session"
	"github.com/yash/flightinsight/internal/summary"
)

type fetchOptions struct {
	airport string
	noAI    bool
	csvPath string
}

func newFetchCommand(a *app) *cobra.Command {
	var opts fetchOptions

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch, summarize and analyze flight data once",
		Example: `  flightinsight fetch --source opensky --country Germany
  flightinsight fetch --source aviationstack --country Australia --time-range 7d --analysis peak_hours --csv flights.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runFetch(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.String("source", "", "Data source: opensky or aviationstack")
	f.String("country", "", "Country to query")
	f.String("time-range", "", "Time range: 24h, 7d or 30d")
	f.StringSlice("analysis", nil, "Analyses to run (route_popularity, demand_trends, peak_hours, aircraft_types)")
	f.StringVar(&opts.airport, "airport", "", "Optional airport code")
	f.BoolVar(&opts.noAI, "no-ai", false, "Skip insight generation")
	f.StringVar(&opts.csvPath, "csv", "", "Write the fetched table to this CSV file")
	a.bindFlag("source", "defaults.source")
	a.bindFlag("country", "defaults.country")
	a.bindFlag("time-range", "defaults.time_range")
	a.bindFlag("analysis", "defaults.analyses")
	return cmd
}

func (a *app) runFetch(cmd *cobra.Command, opts fetchOptions) error {
	ctx := cmd.Context()
	d := a.settings.Defaults

	req := session.RefreshRequest{
		Request: ingestion.Request{
			Source:    d.SourceValue(),
			Country:   d.Country,
			Airport:   strings.ToUpper(strings.TrimSpace(opts.airport)),
			TimeRange: d.TimeRangeValue(),
		},
		Analyses: d.Kinds(),
		Analyze:  !opts.noAI,
	}

	res := a.newSession(ctx, a.newPipeline()).Refresh(ctx, req)
	out := cmd.OutOrStdout()
	if !res.Replaced {
		// Failures and empty results are reported, not fatal.
		fmt.Fprintln(cmd.ErrOrStderr(), res.Message())
		return nil
	}

	fmt.Fprintln(out, res.Message())
	snap := res.Snapshot
	if snap.Table.Synthesized {
		fmt.Fprintf(out, "Timestamps spread over %s (synthesized)\n", req.TimeRange)
	}
	fmt.Fprintln(out)
	printMetrics(out, "Data Overview", summary.Overview(snap.Table))

	if snap.Report != nil {
		printReport(out, *snap.Report)
	}

	if opts.csvPath != "" {
		if err := writeCSVFile(opts.csvPath, snap); err != nil {
			return err
		}
		fmt.Fprintf(out, "\nWrote %d rows to %s\n", snap.Table.Len(), opts.csvPath)
	}
	return nil
}

func printMetrics(w io.Writer, title string, ms []summary.Metric) {
	fmt.Fprintln(w, title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, m := range ms {
		fmt.Fprintf(tw, "  %s\t%s\n", m.Label, m.Value)
	}
	tw.Flush()
}

func printReport(w io.Writer, r insight.Report) {
	if len(r.KeyMetrics) > 0 {
		fmt.Fprintln(w)
		printMetrics(w, "Key Metrics", r.KeyMetrics)
	}
	for _, in := range r.Insights {
		fmt.Fprintf(w, "\n%s\n%s\n%s\n", in.Title, strings.Repeat("-", len(in.Title)), in.Text)
	}
}

func writeCSVFile(path string, snap *session.Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := export.WriteCSV(f, snap.Table); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}
