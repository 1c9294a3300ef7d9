package shared

import "errors"

// Error codes shared by every layer. HTTP and chat adapters map them to
// status codes and user-facing text.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeForbidden    = "FORBIDDEN"
	CodeNotFound     = "NOT_FOUND"
	CodeInvalidState = "INVALID_STATE"
	CodeConflict     = "CONCURRENCY_CONFLICT"
	CodeUpstream     = "UPSTREAM_UNAVAILABLE"
	CodePersistence  = "PERSISTENCE_ERROR"
	CodeRateLimited  = "RATE_LIMITED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches any DomainError carrying the same code, so
// errors.Is(err, ErrNotFound) works for every helper-built error.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps the original cause
func WrapDomainError(code, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// NewValidationError reports malformed, user-correctable input
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewAuthorizationError reports an actor without the required role or category
func NewAuthorizationError(message string) *DomainError {
	return NewDomainError(CodeForbidden, message)
}

// NewNotFoundError reports an unknown order or user
func NewNotFoundError(message string) *DomainError {
	return NewDomainError(CodeNotFound, message)
}

// NewInvalidStateError reports a transition from the wrong source state
func NewInvalidStateError(message string) *DomainError {
	return NewDomainError(CodeInvalidState, message)
}

// NewUpstreamError reports a failing external collaborator
func NewUpstreamError(message string, cause error) *DomainError {
	return WrapDomainError(CodeUpstream, message, cause)
}

// NewPersistenceError reports a storage failure
func NewPersistenceError(message string, cause error) *DomainError {
	return WrapDomainError(CodePersistence, message, cause)
}

// CodeOf returns the domain error code carried by err, or "" for foreign errors
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Common domain errors
var (
	ErrValidation          = NewDomainError(CodeValidation, "Invalid input provided")
	ErrForbidden           = NewDomainError(CodeForbidden, "Not allowed to perform this action")
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidState        = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict = NewDomainError(CodeConflict, "Resource was modified by another process")
	ErrUpstreamUnavailable = NewDomainError(CodeUpstream, "External service temporarily unavailable")
	ErrPersistence         = NewDomainError(CodePersistence, "Storage operation failed")
	ErrRateLimited         = NewDomainError(CodeRateLimited, "Too many requests")
)
