package ingestion

import (
	"errors"
	"fmt"

	"github.com/yash/flightinsight/pkg/models"
)

// ---------------------------------------------------------------------------
// Fetch Errors
// ---------------------------------------------------------------------------

// ErrorKind classifies why a fetch failed.
type ErrorKind uint8

const (
	KindTransport         ErrorKind = iota // network error or timeout
	KindStatus                             // non-200 HTTP response
	KindDecode                             // body was not the expected JSON
	KindMissingCredential                  // access key not configured
	KindUpstream                           // API answered with an error object
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindMissingCredential:
		return "missing_credential"
	case KindUpstream:
		return "upstream"
	default:
		return "unknown"
	}
}

// ErrMissingCredential is matched by errors.Is for KindMissingCredential failures.
var ErrMissingCredential = errors.New("access credential not configured")

// FetchError is returned by the raw fetchers. It is never fatal: callers
// report it and fall back to "no data".
type FetchError struct {
	Source models.Source
	Kind   ErrorKind
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s fetch failed (%s): %v", e.Source, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(src models.Source, kind ErrorKind, format string, args ...any) *FetchError {
	return &FetchError{Source: src, Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err. ok is false when err is not a
// FetchError.
func KindOf(err error) (ErrorKind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Fetch Results
// ---------------------------------------------------------------------------

// Outcome is the tag of a FetchResult.
type Outcome uint8

const (
	OutcomeOK     Outcome = iota // non-empty table
	OutcomeEmpty                 // valid "no data" answer
	OutcomeFailed                // see FetchResult.Err
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeEmpty:
		return "empty"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// FetchResult is the outcome of one pipeline run. Callers switch on Outcome
// rather than inspecting the table for sentinel values.
type FetchResult struct {
	Outcome Outcome
	Table   models.Table
	Err     error
}

// Ok builds a result from a normalized table, tagging it Empty when it has
// no rows.
func Ok(t models.Table) FetchResult {
	if t.Empty() {
		return FetchResult{Outcome: OutcomeEmpty, Table: t}
	}
	return FetchResult{Outcome: OutcomeOK, Table: t}
}

// Failed builds a failed result.
func Failed(src models.Source, err error) FetchResult {
	return FetchResult{Outcome: OutcomeFailed, Table: models.Table{Source: src}, Err: err}
}

// Message renders a short operator-facing description of the result.
func (r FetchResult) Message() string {
	switch r.Outcome {
	case OutcomeOK:
		return fmt.Sprintf("Successfully fetched %d flight records", r.Table.Len())
	case OutcomeEmpty:
		return "No flight data found for the selected criteria. Please try different filters."
	default:
		if errors.Is(r.Err, ErrMissingCredential) {
			return "AviationStack API key not found. Please set AVIATIONSTACK_API_KEY environment variable."
		}
		return fmt.Sprintf("Error fetching data: %v", r.Err)
	}
}
