package flexlimit

import (
	"errors"
	"fmt"
)

// Sentinel errors that can be checked with errors.Is().
var (
	// ErrRateExceeded is returned when the configured limiter rejects a key.
	//
	// Example:
	//
	//	if errors.Is(err, flexlimit.ErrRateExceeded) {
	//	    // deny the request
	//	}
	ErrRateExceeded = errors.New("flexlimit: rate exceeded")

	// ErrBackendConflict is returned when every configured conflict retry was
	// consumed without a clean compare-and-swap.
	ErrBackendConflict = errors.New("flexlimit: backend value conflict")

	// ErrInvalidConfig is returned when a Coordinator is built with missing or
	// invalid options.
	ErrInvalidConfig = errors.New("flexlimit: invalid configuration")

	// ErrKeyNotFound is returned by Inspect when a key has no stored state.
	ErrKeyNotFound = errors.New("flexlimit: key not found")
)

// DeniedError describes why Decide refused a key.
//
// Only RateExceeded is a normal business outcome; the other reasons surface
// only once every configured fallback has declined to mask them (see
// failureStrategy and conflictStrategy on Coordinator).
type DeniedError struct {
	// Key is the (hashed) key that was denied.
	Key string

	// Reason classifies why the key was denied.
	Reason Reason

	// Err is the underlying cause, set for BackendError, MalformedStoredValue
	// and WrongVariant; for BackendConflict it is the last
	// backend.ErrValueChanged seen; nil for RateExceeded.
	Err error
}

func (e *DeniedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("flexlimit: denied %q: %s: %v", e.Key, e.Reason, e.Err)
	}
	return fmt.Sprintf("flexlimit: denied %q: %s", e.Key, e.Reason)
}

// Is allows matching against the Reason-specific sentinel errors
// (ErrRateExceeded, ErrBackendConflict) via errors.Is.
func (e *DeniedError) Is(target error) bool {
	switch e.Reason {
	case ReasonRateExceeded:
		return target == ErrRateExceeded
	case ReasonBackendConflict:
		return target == ErrBackendConflict
	default:
		return false
	}
}

func (e *DeniedError) Unwrap() error {
	return e.Err
}

// InvalidConfigError reports a construction-time configuration rejection.
type InvalidConfigError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("flexlimit: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Reason classifies why a decision was denied.
type Reason int

const (
	// ReasonNone is the zero value; it never appears on a returned error.
	ReasonNone Reason = iota

	// ReasonRateExceeded means the limiter algorithm rejected the request.
	ReasonRateExceeded

	// ReasonBackendConflict means every conflict retry was exhausted without
	// a clean compare-and-swap.
	ReasonBackendConflict

	// ReasonBackendError means a transient backend failure survived every
	// failure retry and the failure strategy is Deny-family.
	ReasonBackendError

	// ReasonMalformedStoredValue means the bytes at the key could not be
	// decoded and discardInvalidStored is false.
	ReasonMalformedStoredValue

	// ReasonWrongVariant means the decoded value belongs to a different
	// limiter variant than the one currently configured.
	ReasonWrongVariant
)

func (r Reason) String() string {
	switch r {
	case ReasonRateExceeded:
		return "rate exceeded"
	case ReasonBackendConflict:
		return "backend conflict"
	case ReasonBackendError:
		return "backend error"
	case ReasonMalformedStoredValue:
		return "malformed stored value"
	case ReasonWrongVariant:
		return "wrong variant"
	default:
		return "none"
	}
}
