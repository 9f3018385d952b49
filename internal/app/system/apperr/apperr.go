// Package apperr defines the error taxonomy shared by the social core.
//
// Three kinds of failure reach callers:
//   - *NotFoundError: a referenced user, thread, request or notification is absent
//   - *ValidationError: input rejected before any write
//   - *StoreError: the document store failed; the cause is kept intact
//
// Use errors.As to branch on kind and errors.Is with the sentinel reasons
// (ErrEmptyMessage, ErrMalformedThread, ...) for the specific rule.
package apperr

import (
	"errors"
	"fmt"
)

// Validation reasons.
var (
	ErrEmptyMessage    = errors.New("message text is empty")
	ErrMalformedThread = errors.New("thread must have exactly two participants including the caller")
	ErrSelfConnection  = errors.New("cannot connect to yourself")
	ErrNotPending      = errors.New("connection request is not pending")
	ErrNotParticipant  = errors.New("user is not a participant in this thread")
	ErrMissingField    = errors.New("required field is missing")
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Kind string // "user", "thread", "connection request", ...
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NotFound returns a *NotFoundError for the given entity kind and id.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// ValidationError reports rejected input. Reason is one of the package
// sentinels so callers can match with errors.Is.
type ValidationError struct {
	Field  string
	Reason error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason.Error()
	}
	return e.Field + ": " + e.Reason.Error()
}

func (e *ValidationError) Unwrap() error { return e.Reason }

// Invalid returns a *ValidationError for field with the given reason.
func Invalid(field string, reason error) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreError wraps a failure from the document store. The underlying error
// is reachable through errors.Unwrap / errors.As.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a *StoreError tagged with op. Nil stays nil and errors
// that already carry a kind from this package pass through unchanged.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		se *StoreError
		nf *NotFoundError
		ve *ValidationError
	)
	if errors.As(err, &se) || errors.As(err, &nf) || errors.As(err, &ve) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// IsNotFound reports whether err is (or wraps) a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStore reports whether err is (or wraps) a *StoreError.
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
