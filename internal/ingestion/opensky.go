package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yash/flightinsight/pkg/models"
)

const (
	DefaultOpenSkyURL = "https://opensky-network.org/api"

	// Both upstream APIs get the same fixed request timeout.
	DefaultTimeout = 30 * time.Second

	// Connection pool settings
	maxIdleConns        = 10
	maxConnsPerHost     = 5
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second

	// stateFields is the length of an OpenSky state vector.
	stateFields = 17
)

// ---------------------------------------------------------------------------
// Client Options
// ---------------------------------------------------------------------------

type clientConfig struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	apiKey     string
}

// ClientOption configures the OpenSky and AviationStack clients.
type ClientOption func(*clientConfig)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithBaseURL overrides the API endpoint (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *clientConfig) { c.baseURL = url }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithAPIKey sets the access key. Only AviationStack uses it.
func WithAPIKey(key string) ClientOption {
	return func(c *clientConfig) { c.apiKey = key }
}

func newClientConfig(baseURL string, opts []ClientOption) clientConfig {
	cfg := clientConfig{
		baseURL: baseURL,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{
			Timeout: cfg.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        maxIdleConns,
				MaxConnsPerHost:     maxConnsPerHost,
				IdleConnTimeout:     idleConnTimeout,
				TLSHandshakeTimeout: tlsHandshakeTimeout,
			},
		}
	}
	return cfg
}

// getJSON issues a GET and decodes a 200 response into out. Errors come back
// as *FetchError.
func getJSON(ctx context.Context, cfg clientConfig, src models.Source, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fetchErr(src, KindTransport, "creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cfg.httpClient.Do(req)
	if err != nil {
		return fetchErr(src, KindTransport, "executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fetchErr(src, KindStatus, "unexpected status: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchErr(src, KindTransport, "reading body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fetchErr(src, KindDecode, "parsing response: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// OpenSky Client
// ---------------------------------------------------------------------------

// RawState is one OpenSky state vector before cleaning. Nullable upstream
// values are pointers.
type RawState struct {
	ICAO24         string
	Callsign       string
	OriginCountry  string
	TimePosition   *int64
	LastContact    *int64
	Longitude      *float64
	Latitude       *float64
	BaroAltitude   *float64
	OnGround       bool
	Velocity       *float64
	TrueTrack      *float64
	VerticalRate   *float64
	Sensors        []int
	GeoAltitude    *float64
	Squawk         string
	SPI            bool
	PositionSource int
}

// RawStates is the decoded /states/all snapshot.
type RawStates struct {
	Time   time.Time
	States []RawState
}

// OpenSkyClient fetches live state vectors from the OpenSky Network API.
type OpenSkyClient struct {
	cfg clientConfig
}

// NewOpenSkyClient creates an OpenSky API client with connection pooling.
func NewOpenSkyClient(opts ...ClientOption) *OpenSkyClient {
	return &OpenSkyClient{cfg: newClientConfig(DefaultOpenSkyURL, opts)}
}

// openSkyResponse mirrors the JSON shape returned by /states/all.
type openSkyResponse struct {
	Time   int64             `json:"time"`
	States []json.RawMessage `json:"states"`
}

// FetchStates retrieves the current state vectors inside the country's
// bounding box, or globally when the country is unknown. A snapshot without
// states is a valid empty result.
func (c *OpenSkyClient) FetchStates(ctx context.Context, country string) (RawStates, error) {
	url := fmt.Sprintf("%s/states/all", c.cfg.baseURL)
	if box, ok := LookupBoundingBox(country); ok {
		url += "?" + box.QueryParams().Encode()
	} else {
		c.cfg.logger.Debug("no bounding box for country, querying globally", "country", country)
	}

	var raw openSkyResponse
	if err := getJSON(ctx, c.cfg, models.SourcePosition, url, &raw); err != nil {
		return RawStates{}, err
	}

	out := parseStates(raw)
	c.cfg.logger.Debug("fetched state vectors",
		"country", country,
		"states", len(out.States),
		"skipped", len(raw.States)-len(out.States))
	return out, nil
}

func parseStates(raw openSkyResponse) RawStates {
	out := RawStates{States: make([]RawState, 0, len(raw.States))}
	if raw.Time > 0 {
		out.Time = time.Unix(raw.Time, 0).UTC()
	}
	for _, item := range raw.States {
		var s []interface{}
		if err := json.Unmarshal(item, &s); err != nil || len(s) < stateFields {
			continue
		}
		out.States = append(out.States, RawState{
			ICAO24:         stringVal(s[0]),
			Callsign:       stringVal(s[1]),
			OriginCountry:  stringVal(s[2]),
			TimePosition:   intPtr(s[3]),
			LastContact:    intPtr(s[4]),
			Longitude:      floatPtr(s[5]),
			Latitude:       floatPtr(s[6]),
			BaroAltitude:   floatPtr(s[7]),
			OnGround:       boolVal(s[8]),
			Velocity:       floatPtr(s[9]),
			TrueTrack:      floatPtr(s[10]),
			VerticalRate:   floatPtr(s[11]),
			Sensors:        intSlice(s[12]),
			GeoAltitude:    floatPtr(s[13]),
			Squawk:         stringVal(s[14]),
			SPI:            boolVal(s[15]),
			PositionSource: intVal(s[16]),
		})
	}
	return out
}

func stringVal(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func boolVal(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

func floatPtr(v interface{}) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func intPtr(v interface{}) *int64 {
	if f, ok := v.(float64); ok {
		i := int64(f)
		return &i
	}
	return nil
}

func intVal(v interface{}) int {
	if f, ok := v.(float64); ok {
		return int(f)
	}
	return 0
}

func intSlice(v interface{}) []int {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(arr))
	for _, e := range arr {
		if f, ok := e.(float64); ok {
			out = append(out, int(f))
		}
	}
	return out
}
