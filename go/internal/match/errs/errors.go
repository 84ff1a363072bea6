// Package errs defines the error taxonomy shared by the match engine
// components. Callers distinguish classes with errors.As.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// ContextError means the caller cannot act at all: missing permission
// or an invalid environment. It is fatal to the requested operation and
// never retried automatically.
type ContextError struct {
	Op     string
	Reason string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NotFoundError means the referenced match, round or submission is
// unknown.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ValidationRejected means content failed policy. It is recorded as a
// rejected submission, not treated as a failure of the flow.
type ValidationRejected struct {
	Reason   string
	Warnings []string
}

func (e *ValidationRejected) Error() string {
	return fmt.Sprintf("submission rejected: %s", e.Reason)
}

// TransportError means a publish, read or validate call to an external
// collaborator failed or timed out. The calling component retries with
// bounded backoff; RetryAfter, when set, is the minimum wait the remote
// side asked for.
type TransportError struct {
	Op         string
	Err        error
	RetryAfter time.Duration
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// LogicError means an internal invariant was violated, e.g. a second
// winner for a round. The offending transition is refused, not applied.
type LogicError struct {
	Op     string
	Detail string
}

func (e *LogicError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Detail)
}

// IsTransport reports whether err is (or wraps) a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
