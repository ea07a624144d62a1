package entity

import (
	"errors"
	"fmt"
)

// ErrorKind classifies query pipeline failures.
type ErrorKind string

// Query error kinds.
const (
	ErrKindInvalidParameter ErrorKind = "invalid_parameter"
	ErrKindConnection       ErrorKind = "connection"
	ErrKindTimeout          ErrorKind = "timeout"
	ErrKindServer           ErrorKind = "server"
	ErrKindParse            ErrorKind = "parse"
)

// QueryError is the classified error surfaced by the query pipeline.
type QueryError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

// NewQueryError creates a classified query error wrapping a cause
func NewQueryError(kind ErrorKind, message string, err error) *QueryError {
	return &QueryError{Kind: kind, Message: message, Err: err}
}

// NewInvalidParameter creates a validation error raised before any I/O
func NewInvalidParameter(message string) *QueryError {
	return &QueryError{Kind: ErrKindInvalidParameter, Message: message}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may succeed on a later attempt.
// Parse failures indicate a response contract mismatch and are never retried.
func (e *QueryError) Retryable() bool {
	switch e.Kind {
	case ErrKindConnection, ErrKindTimeout, ErrKindServer:
		return true
	}
	return false
}

// AsQueryError extracts a QueryError from an error chain
func AsQueryError(err error) (*QueryError, bool) {
	var qerr *QueryError
	if errors.As(err, &qerr) {
		return qerr, true
	}
	return nil, false
}
