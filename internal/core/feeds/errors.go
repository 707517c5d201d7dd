package feeds

import (
	"context"
	"errors"
	"fmt"
)

// ErrItemNotFound is returned when an item is not in the cache partition
var ErrItemNotFound = errors.New("feed item not found")

// FailureKind classifies why an engine operation failed
type FailureKind int

const (
	// FailureUnexpected covers programming faults and anything unclassified
	FailureUnexpected FailureKind = iota
	// FailureUnauthenticated means no credentials were available; no remote call was made
	FailureUnauthenticated
	// FailureNetwork is a transport-level failure such as missing connectivity
	FailureNetwork
	// FailureProtocol is a structured non-success answer from the remote service
	FailureProtocol
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnauthenticated:
		return "Unauthenticated"
	case FailureNetwork:
		return "Network"
	case FailureProtocol:
		return "Protocol"
	default:
		return "Unexpected"
	}
}

// Failure is the typed result of a failed load, reaction or moderation call.
// Cancellation is never reported as a Failure.
type Failure struct {
	Err  error
	Op   string
	Kind FailureKind
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s failure", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s failure: %v", f.Op, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Classified is implemented by remote client errors that know their failure kind
type Classified interface {
	FailureKind() FailureKind
}

// AsFailure translates err into a *Failure tagged with op.
// Context cancellation and deadline errors are returned unchanged so they keep
// propagating past the engine. A nil err stays nil.
func AsFailure(op string, err error) error {
	if err == nil {
		return nil
	}

	var existing *Failure
	if errors.As(err, &existing) {
		return err
	}

	var classified Classified
	if errors.As(err, &classified) {
		return &Failure{Op: op, Kind: classified.FailureKind(), Err: err}
	}

	if IsCancellation(err) {
		return err
	}

	return &Failure{Op: op, Kind: FailureUnexpected, Err: err}
}

// IsCancellation reports whether err is a context cancellation or deadline
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsFailure reports whether err is a Failure, optionally of one of kinds
func IsFailure(err error, kinds ...FailureKind) bool {
	var f *Failure
	if !errors.As(err, &f) {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if f.Kind == k {
			return true
		}
	}
	return false
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) error {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
