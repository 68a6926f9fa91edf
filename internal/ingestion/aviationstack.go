package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/yash/flightinsight/pkg/models"
)

const (
	DefaultAviationStackURL = "http://api.aviationstack.com/v1"

	// Free tier page size.
	scheduleLimit = 100
)

// departureAirports narrows the schedule query for countries we know the
// main hubs of.
var departureAirports = map[string][]string{
	"Australia": {"SYD", "MEL", "BNE", "PER", "ADL"},
}

// RawFlight is one AviationStack flight flattened from its nested objects.
// Missing nested fields are empty strings or zero.
type RawFlight struct {
	FlightNumber       string
	Airline            string
	AirlineIATA        string
	Origin             string
	OriginAirport      string
	Destination        string
	DestinationAirport string
	DepartureTime      string
	ArrivalTime        string
	FlightStatus       string
	AircraftType       string
	DepartureDelay     int
	ArrivalDelay       int
}

// aviationStackResponse mirrors GET /flights. Nested objects are pointers
// because the API sends null for unknown aircraft, codeshares and so on.
type aviationStackResponse struct {
	Data  []json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type aviationStackFlight struct {
	FlightStatus string               `json:"flight_status"`
	Departure    *aviationStackPoint  `json:"departure"`
	Arrival      *aviationStackPoint  `json:"arrival"`
	Airline      *aviationStackEntity `json:"airline"`
	Flight       *aviationStackEntity `json:"flight"`
	Aircraft     *struct {
		Registration string `json:"registration"`
	} `json:"aircraft"`
}

type aviationStackPoint struct {
	Airport   string  `json:"airport"`
	IATA      string  `json:"iata"`
	Scheduled string  `json:"scheduled"`
	Delay     flexInt `json:"delay"`
}

type aviationStackEntity struct {
	Name   string `json:"name"`
	IATA   string `json:"iata"`
	Number string `json:"number"`
}

// AviationStackClient fetches scheduled flights from the AviationStack API.
type AviationStackClient struct {
	cfg clientConfig
}

// NewAviationStackClient creates an AviationStack client. A client without an
// API key is valid; every fetch then fails fast with KindMissingCredential.
func NewAviationStackClient(opts ...ClientOption) *AviationStackClient {
	return &AviationStackClient{cfg: newClientConfig(DefaultAviationStackURL, opts)}
}

// HasCredential reports whether an access key is configured.
func (c *AviationStackClient) HasCredential() bool {
	return c.cfg.apiKey != ""
}

// FetchFlights retrieves up to 100 flights, filtered by departure airports
// when the country has a known hub list.
func (c *AviationStackClient) FetchFlights(ctx context.Context, country string) ([]RawFlight, error) {
	if !c.HasCredential() {
		c.cfg.logger.Warn("AviationStack API key not found, skipping fetch",
			"env", "AVIATIONSTACK_API_KEY")
		return nil, &FetchError{Source: models.SourceSchedule, Kind: KindMissingCredential, Err: ErrMissingCredential}
	}

	params := url.Values{
		"access_key": {c.cfg.apiKey},
		"limit":      {fmt.Sprint(scheduleLimit)},
		"offset":     {"0"},
	}
	if codes, ok := departureAirports[country]; ok {
		params.Set("dep_iata", strings.Join(codes, ","))
	}
	u := fmt.Sprintf("%s/flights?%s", c.cfg.baseURL, params.Encode())

	var raw aviationStackResponse
	if err := getJSON(ctx, c.cfg, models.SourceSchedule, u, &raw); err != nil {
		return nil, err
	}
	if raw.Error != nil {
		return nil, fetchErr(models.SourceSchedule, KindUpstream, "%s: %s", raw.Error.Code, raw.Error.Message)
	}

	flights := make([]RawFlight, 0, len(raw.Data))
	for i, item := range raw.Data {
		var f aviationStackFlight
		if err := json.Unmarshal(item, &f); err != nil {
			c.cfg.logger.Debug("skipping malformed flight", "index", i, "error", err)
			continue
		}
		flights = append(flights, flattenFlight(f))
	}
	c.cfg.logger.Debug("fetched flights",
		"country", country,
		"flights", len(flights),
		"skipped", len(raw.Data)-len(flights))
	return flights, nil
}

func flattenFlight(f aviationStackFlight) RawFlight {
	out := RawFlight{FlightStatus: f.FlightStatus}
	if f.Flight != nil {
		out.FlightNumber = f.Flight.Number
	}
	if f.Airline != nil {
		out.Airline = f.Airline.Name
		out.AirlineIATA = f.Airline.IATA
	}
	if d := f.Departure; d != nil {
		out.Origin = d.IATA
		out.OriginAirport = d.Airport
		out.DepartureTime = d.Scheduled
		out.DepartureDelay = int(d.Delay)
	}
	if a := f.Arrival; a != nil {
		out.Destination = a.IATA
		out.DestinationAirport = a.Airport
		out.ArrivalTime = a.Scheduled
		out.ArrivalDelay = int(a.Delay)
	}
	if f.Aircraft != nil {
		out.AircraftType = f.Aircraft.Registration
	}
	return out
}

// flexInt accepts a JSON number, a numeric string or null. Anything else
// decodes to zero instead of failing the whole flight.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		*f = 0
		return nil
	}
	switch x := v.(type) {
	case float64:
		*f = flexInt(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			n = 0
		}
		*f = flexInt(n)
	default:
		*f = 0
	}
	return nil
}
