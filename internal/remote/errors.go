package remote

import (
	"errors"
	"fmt"

	"Feedsync/internal/core/feeds"
)

// Typed errors for remote feed service operations.
// Callers use errors.Is() instead of matching on messages.
var (
	// ErrBadRequest indicates the request was malformed or invalid (HTTP 400)
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates an invalid or expired access token (HTTP 401)
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the viewer may not perform the action (HTTP 403)
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the story or member does not exist (HTTP 404)
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the action conflicts with server state (HTTP 409)
	ErrConflict = errors.New("conflict")

	// ErrRateLimited indicates the server throttled the viewer (HTTP 429)
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates a 5xx answer
	ErrServer = errors.New("server error")

	// ErrEnvelope indicates a 2xx answer whose envelope reports failure or lacks data
	ErrEnvelope = errors.New("unsuccessful response envelope")

	// ErrNetwork indicates the request never produced an HTTP answer
	ErrNetwork = errors.New("network error")
)

// ProtocolError is a structured non-success answer from the remote service
type ProtocolError struct {
	// Kind is one of the sentinels above
	Kind    error
	Op      string
	Message string
	Status  int
	Code    int
}

func (e *ProtocolError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v (status %d, code %d)", e.Op, e.Kind, e.Status, e.Code)
	}
	return fmt.Sprintf("%s: %v (status %d, code %d): %s", e.Op, e.Kind, e.Status, e.Code, e.Message)
}

func (e *ProtocolError) Unwrap() error {
	return e.Kind
}

// FailureKind implements feeds.Classified
func (e *ProtocolError) FailureKind() feeds.FailureKind {
	return feeds.FailureProtocol
}

// NetworkError is a transport-level failure such as a refused connection or timeout
type NetworkError struct {
	Err error
	Op  string
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{ErrNetwork, e.Err}
}

// FailureKind implements feeds.Classified
func (e *NetworkError) FailureKind() feeds.FailureKind {
	return feeds.FailureNetwork
}

// IsAuthError returns true if the error is an authentication/authorization error
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// statusError maps an HTTP status to its sentinel
func statusError(status int) error {
	switch {
	case status == 400:
		return ErrBadRequest
	case status == 401:
		return ErrUnauthorized
	case status == 403:
		return ErrForbidden
	case status == 404:
		return ErrNotFound
	case status == 409:
		return ErrConflict
	case status == 429:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	default:
		return ErrBadRequest
	}
}
