// Package apperrors defines the error taxonomy shared across the engine.
//
// The taxonomy distinguishes three caller-relevant outcomes: "fix your input"
// (ValidationError), "try again later" (UpstreamError), and "no such thing"
// (ErrNotFound). Empty result sets are never errors — ranking and matching
// treat "no match" as a valid outcome. ErrConflict should never surface
// because all writes use conflict-tolerant upserts; if it does, a schema
// invariant has been violated and it must be treated as a defect.
package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError indicates malformed input that is rejected before any
// store access. Retrying the same call will never succeed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UpstreamError indicates a failure in an external collaborator (embedding
// endpoint, database). It is fatal for the current call; retry policy is the
// caller's decision.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NewUpstream wraps err as an UpstreamError attributed to service.
func NewUpstream(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Err: err}
}

// IsUpstream reports whether err is (or wraps) an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
