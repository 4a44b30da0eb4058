// Package apperr defines the stable error codes returned by the API. Clients
// branch on Code; Message is for humans and may change.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error classification.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeForbidden         Code = "FORBIDDEN"
	CodeNotFound          Code = "NOT_FOUND"
	CodeConflict          Code = "CONFLICT"
	CodeDuplicateEntry    Code = "DUPLICATE_ENTRY"
	CodeIllegalTransition Code = "ILLEGAL_TRANSITION"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeTooManyRequests   Code = "TOO_MANY_REQUESTS"
	CodeStoreUnavailable  Code = "STORE_UNAVAILABLE"
	CodeInternal          Code = "INTERNAL"
)

// Error carries a Code plus optional per-field messages and a cause.
type Error struct {
	Code    Code
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so the sentinels below work with
// errors.Is regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrValidation        = &Error{Code: CodeValidation, Message: "validation failed"}
	ErrInvalidInput      = &Error{Code: CodeInvalidInput, Message: "invalid input"}
	ErrUnauthorized      = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	ErrForbidden         = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrNotFound          = &Error{Code: CodeNotFound, Message: "not found"}
	ErrConflict          = &Error{Code: CodeConflict, Message: "conflict"}
	ErrDuplicateEntry    = &Error{Code: CodeDuplicateEntry, Message: "duplicate entry"}
	ErrIllegalTransition = &Error{Code: CodeIllegalTransition, Message: "illegal transition"}
	ErrInsufficientStock = &Error{Code: CodeInsufficientStock, Message: "insufficient stock"}
	ErrTooManyRequests   = &Error{Code: CodeTooManyRequests, Message: "too many requests"}
	ErrStoreUnavailable  = &Error{Code: CodeStoreUnavailable, Message: "store unavailable"}
)

func New(code Code, msg string) *Error { return &Error{Code: code, Message: msg} }

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, err error) *Error {
	return &Error{Code: code, Message: msg, Err: err}
}

// Validation builds a VALIDATION_ERROR from field messages. It returns nil
// when fields is empty so callers can write `if err := apperr.Validation(f); err != nil`.
func Validation(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &Error{Code: CodeValidation, Message: "validation failed", Fields: fields}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConflict reports whether err is a conflict or one of its refinements.
func IsConflict(err error) bool {
	switch CodeOf(err) {
	case CodeConflict, CodeDuplicateEntry, CodeIllegalTransition:
		return true
	}
	return false
}

// Unavailable wraps uncoded errors as STORE_UNAVAILABLE and passes coded
// errors through untouched.
func Unavailable(err error) error {
	if err == nil || CodeOf(err) != "" {
		return err
	}
	return Wrap(CodeStoreUnavailable, "store unavailable", err)
}

// HTTPStatus maps a code to its response status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeDuplicateEntry, CodeIllegalTransition, CodeInsufficientStock:
		return http.StatusConflict
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	case CodeStoreUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
