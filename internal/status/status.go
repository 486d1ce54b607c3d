// Package status defines the error taxonomy shared across the core:
// validation, conflict, not-found and external-dependency failures.
// Handlers translate these into HTTP responses; services never wrap a
// conflict into anything retryable.
package status

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrFailedPayment = errors.New("payment: payment capture failed")
	ErrCodeExhausted = errors.New("ticket: could not generate a unique code")
	ErrDuplicateCode = errors.New("ticket: duplicate code")
)

// ValidationError rejects malformed input before any record is touched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// ConflictError reports that a record was not in the expected transition
// source state. OccurredAt carries the timestamp of the earlier transition
// when it helps the operator (e.g. "already used at ...").
type ConflictError struct {
	Op         string
	Reason     string
	OccurredAt *time.Time
}

func (e *ConflictError) Error() string {
	if e.OccurredAt != nil {
		return fmt.Sprintf("conflict: %s: %s at %s", e.Op, e.Reason, e.OccurredAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("conflict: %s: %s", e.Op, e.Reason)
}

func Conflict(op, reason string) error {
	return &ConflictError{Op: op, Reason: reason}
}

func ConflictAt(op, reason string, at time.Time) error {
	return &ConflictError{Op: op, Reason: reason, OccurredAt: &at}
}

// NotFoundError reports an unknown identifier or code.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.ID)
}

func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ExternalError wraps a gateway or notification failure. It is fatal only
// for the payment-capture step; everywhere else it is logged and swallowed.
type ExternalError struct {
	Dependency string
	Err        error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("external: %s: %v", e.Dependency, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }

func External(dependency string, err error) error {
	return &ExternalError{Dependency: dependency, Err: err}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

func IsExternal(err error) bool {
	var ee *ExternalError
	return errors.As(err, &ee)
}
