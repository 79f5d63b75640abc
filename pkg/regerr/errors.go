// Package regerr defines the error taxonomy shared by the query resolution
// layer: validation failures raised before any network call, transport
// failures surfaced from the remote service, and write failures from output
// sinks.
package regerr

import (
	"errors"
	"fmt"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindInvalidJurisdiction     Kind = "INVALID_JURISDICTION"
	KindInvalidDateRange        Kind = "INVALID_DATE_RANGE"
	KindDateGranularityMismatch Kind = "DATE_GRANULARITY_MISMATCH"
	KindUnsupportedCombination  Kind = "UNSUPPORTED_COMBINATION"
	KindMissingParameter        Kind = "MISSING_PARAMETER"
	KindInvalidIndustry         Kind = "INVALID_INDUSTRY"
	KindInvalidParameter        Kind = "INVALID_PARAMETER"
)

// Sentinels for errors.Is matching against a *ValidationError of the same kind.
var (
	ErrValidation              = errors.New("validation failed")
	ErrInvalidJurisdiction     = errors.New("invalid jurisdiction")
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrDateGranularityMismatch = errors.New("date granularity mismatch")
	ErrUnsupportedCombination  = errors.New("unsupported combination")
	ErrMissingParameter        = errors.New("missing parameter")
	ErrInvalidIndustry         = errors.New("invalid industry")
	ErrInvalidParameter        = errors.New("invalid parameter")
	ErrTransport               = errors.New("transport failed")
	ErrWrite                   = errors.New("write failed")
)

var kindSentinels = map[Kind]error{
	KindInvalidJurisdiction:     ErrInvalidJurisdiction,
	KindInvalidDateRange:        ErrInvalidDateRange,
	KindDateGranularityMismatch: ErrDateGranularityMismatch,
	KindUnsupportedCombination:  ErrUnsupportedCombination,
	KindMissingParameter:        ErrMissingParameter,
	KindInvalidIndustry:         ErrInvalidIndustry,
	KindInvalidParameter:        ErrInvalidParameter,
}

// ValidationError names the offending parameter and the violated constraint.
type ValidationError struct {
	Kind       Kind   `json:"kind"`
	Param      string `json:"param"`
	Constraint string `json:"constraint"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Param, e.Constraint)
}

// Is reports whether target is ErrValidation or the sentinel for e.Kind.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidation {
		return true
	}
	return kindSentinels[e.Kind] == target
}

// Validation builds a *ValidationError with a formatted constraint message.
func Validation(kind Kind, param, format string, args ...any) *ValidationError {
	return &ValidationError{
		Kind:       kind,
		Param:      param,
		Constraint: fmt.Sprintf(format, args...),
	}
}

// TransportError carries the remote status and message unmodified so callers
// can tell a failed request apart from a legitimately empty result.
// Status is zero when no HTTP response was received.
type TransportError struct {
	Status  int
	Message string
	URL     string
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("transport %d: %s: %v", e.Status, e.Message, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("transport %d: %s", e.Status, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("transport: %s: %v", e.Message, e.Err)
	default:
		return "transport: " + e.Message
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// WriteError is raised only by output sinks. The in-memory table that was
// being written remains valid.
type WriteError struct {
	Dest string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Dest, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrWrite }

// KindOf extracts the validation kind from err, or "" if err is not a
// validation failure.
func KindOf(err error) Kind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// IsValidation reports whether err is a validation failure of any kind.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
