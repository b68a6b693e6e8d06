// Package domainerrors defines the coded error type shared by services and the
// HTTP edge. Services return *Error (or a type exposing ErrorCode) and the
// transport layer maps the Code to a status without inspecting messages.
package domainerrors

import (
	"errors"
)

// Code classifies an error for transport mapping and test assertions.
type Code string

const (
	CodeBadRequest         Code = "bad_request"
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeForbidden          Code = "forbidden"
	CodeUnauthorized       Code = "unauthorized"
	CodeInternal           Code = "internal_error"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"

	// Compliance-specific codes.
	CodeConsentRequired     Code = "consent_required"
	CodeProcessingSuspended Code = "processing_suspended"
	CodeTenantIsolation     Code = "tenant_isolation"
	CodeLogGuardViolation   Code = "log_guard_violation"
	CodeExpired             Code = "expired"
	CodeLimitExceeded       Code = "limit_exceeded"
	CodeAccessDenied        Code = "access_denied"
)

// Error is a domain error carrying a Code and a caller-safe message.
// Err holds the underlying cause and is never rendered to clients.
type Error struct {
	Code    Code
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

// ErrorCode implements Coder.
func (e *Error) ErrorCode() Code { return e.Code }

// Coder is implemented by typed domain errors that carry their own Code.
type Coder interface {
	ErrorCode() Code
}

// New creates a domain error with the given code and message.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf returns the code of the outermost coded error in err's chain, or
// CodeInternal when none is found.
func CodeOf(err error) Code {
	var c Coder
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return CodeInternal
}

// HasCode reports whether any coded error in err's chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		if c, ok := err.(Coder); ok && c.ErrorCode() == code {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		case interface{ Unwrap() []error }:
			for _, inner := range u.Unwrap() {
				if HasCode(inner, code) {
					return true
				}
			}
			return false
		default:
			return false
		}
	}
	return false
}

// Is is an alias for HasCode kept for call sites that read better as a predicate.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// Message returns the caller-safe message of the outermost *Error, if any.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	var c Coder
	if errors.As(err, &c) {
		if s, ok := c.(interface{ SafeMessage() string }); ok {
			return s.SafeMessage()
		}
	}
	return ""
}
