// Package errors provides common domain error types for roundtable.
//
// This package defines sentinel errors for common domain conditions like
// "request already in flight" or "duplicate content" that can be used across
// all packages. Using typed errors enables consistent error handling patterns
// with errors.Is() checks.
//
// Usage:
//
//	import rterrors "github.com/otherjamesbrown/roundtable/pkg/errors"
//
//	// Return a domain error
//	return nil, rterrors.ErrInFlight
//
//	// Check for domain errors
//	if rterrors.IsInFlight(err) {
//	    // handle in-flight case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested resource was not found.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input or validation failure.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState indicates the operation is not valid for the current
	// session lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInFlight indicates a request of the same type is already pending.
	ErrInFlight = errors.New("request already in flight")

	// ErrDuplicate indicates generated content duplicates an existing result.
	ErrDuplicate = errors.New("duplicate content")

	// ErrUnavailable indicates an external service could not be reached.
	ErrUnavailable = errors.New("service unavailable")

	// ErrSuperseded indicates a request was cancelled by a newer one and its
	// result was discarded.
	ErrSuperseded = errors.New("request superseded")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidState reports whether any error in err's chain is ErrInvalidState.
func IsInvalidState(err error) bool {
	return errors.Is(err, ErrInvalidState)
}

// IsInFlight reports whether any error in err's chain is ErrInFlight.
func IsInFlight(err error) bool {
	return errors.Is(err, ErrInFlight)
}

// IsDuplicate reports whether any error in err's chain is ErrDuplicate.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsUnavailable reports whether any error in err's chain is ErrUnavailable.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// IsSuperseded reports whether any error in err's chain is ErrSuperseded.
func IsSuperseded(err error) bool {
	return errors.Is(err, ErrSuperseded)
}
