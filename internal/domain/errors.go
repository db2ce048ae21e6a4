/**
 * @description
 * Error classes for the ledger. Client faults (validation, not-found, business-rule
 * violations) carry a 4xx-equivalent code and a message safe to return verbatim.
 * System faults are logged with full detail upstream and surface to callers as a
 * generic failure with a 5xx-equivalent code.
 */

package domain

import (
	"errors"
	"net/http"
)

// FaultClass distinguishes caller mistakes from infrastructure failures.
type FaultClass int

const (
	ClientFault FaultClass = iota
	SystemFault
)

// Error is the error type crossing the service boundary.
type Error struct {
	Class   FaultClass
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// NewValidationError flags invalid caller input.
func NewValidationError(message string) *Error {
	return &Error{Class: ClientFault, Code: http.StatusBadRequest, Message: message}
}

// NewNotFoundError flags a missing entity.
func NewNotFoundError(message string) *Error {
	return &Error{Class: ClientFault, Code: http.StatusNotFound, Message: message}
}

// NewBusinessRuleError flags a well-formed request the ledger's rules reject, such as
// insufficient funds or an invalid state transition.
func NewBusinessRuleError(message string) *Error {
	return &Error{Class: ClientFault, Code: http.StatusUnprocessableEntity, Message: message}
}

// NewSystemError wraps an internal failure. The caller-visible message is generic; the
// wrapped error is for logs only.
func NewSystemError(err error) *Error {
	return &Error{Class: SystemFault, Code: http.StatusInternalServerError, Message: "internal error", Err: err}
}

// AsError extracts a *Error from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
