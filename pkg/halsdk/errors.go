package halsdk

import (
	"errors"
	"fmt"
	"net/http"
)

// Default values substituted when an error payload does not carry the
// corresponding field.
const (
	// DefaultFailureCode is the application error code assumed when the error
	// resource carries none.
	DefaultFailureCode = 5000

	defaultFailureMessage     = "Unknown Error"
	defaultFailureDescription = "An unknown error has occurred"
)

var (
	// ErrSessionUnavailable is returned when authentication is attempted but
	// the session mechanism is administratively disabled or absent. Without a
	// place to persist the grant there is no point exchanging credentials.
	ErrSessionUnavailable = errors.New("halsdk: session mechanism unavailable")

	// ErrIdentityNotFound is returned when a client identifier has no secret
	// key in the configured identities location.
	ErrIdentityNotFound = errors.New("halsdk: identity not found")
)

// ConfigError reports an unusable client configuration, such as an identities
// location that does not exist or cannot be read. It is fatal: callers must
// not retry, they must fix the configuration.
type ConfigError struct {
	Location string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("halsdk: invalid configuration at %s: %v", e.Location, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// TransportError reports that no HTTP response was received at all, for
// example a refused connection or an exceeded deadline. It is distinct from a
// Failure, which always carries a real response from the server.
type TransportError struct {
	Op  string // the operation that failed, e.g. "token" or "GET"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("halsdk: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorResource is the normalized error payload carried by a Failure. The
// normalizer guarantees Status, Message and Description are populated,
// synthesizing defaults when the server response omits them. Property holds
// field-level validation detail when the API provides it (or an error_uri
// wrapped as {"uri": ...}).
type ErrorResource struct {
	Status      int            `json:"status"`
	Message     string         `json:"message"`
	Description string         `json:"description"`
	Code        int            `json:"code,omitempty"`
	Property    map[string]any `json:"property,omitempty"`

	// Raw is the decoded error body as received, before any synthesis.
	Raw map[string]any `json:"-"`
}

// Failure is a typed 4xx/5xx protocol failure. It carries the normalized
// error resource so callers can render field-level validation errors.
//
// Classification is a queryable property rather than distinct types: callers
// mostly need the <500 vs >=500 boundary, not a taxonomy of subclasses.
type Failure struct {
	Message     string
	Description string
	Code        int
	Status      int
	Resource    *ErrorResource

	cause error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("halsdk: %s (%d): %s", f.Message, f.Status, f.Description)
}

func (f *Failure) Unwrap() error { return f.cause }

// IsClientError reports whether the failure is a 4xx response.
func (f *Failure) IsClientError() bool {
	return f.Status >= http.StatusBadRequest && f.Status < http.StatusInternalServerError
}

// IsServerError reports whether the failure is a 5xx response.
func (f *Failure) IsServerError() bool {
	return f.Status >= http.StatusInternalServerError
}

// newFailure builds a Failure from a normalized error resource, falling back
// to defaults for any field the resource does not carry.
func newFailure(res *ErrorResource) *Failure {
	f := &Failure{
		Message:     res.Message,
		Description: res.Description,
		Code:        res.Code,
		Status:      res.Status,
		Resource:    res,
	}
	if f.Message == "" {
		f.Message = defaultFailureMessage
	}
	if f.Description == "" {
		f.Description = defaultFailureDescription
	}
	if f.Code == 0 {
		f.Code = DefaultFailureCode
	}
	if f.Status == 0 {
		f.Status = http.StatusBadRequest
	}
	return f
}

// transportFailure wraps a transport-level error into the Failure shape used
// by the facade verbs: a 400-equivalent status with the transport error's
// message as the description. The original error remains reachable through
// errors.Unwrap.
func transportFailure(err error) *Failure {
	res := &ErrorResource{
		Status:      http.StatusBadRequest,
		Message:     "Bad Request",
		Description: err.Error(),
		Code:        DefaultFailureCode,
	}
	f := newFailure(res)
	f.cause = err
	return f
}
