package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned errors still compare equal
// to their predefined template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrIndexNotFound  = New("INDEX_ENTRY_NOT_FOUND", http.StatusNotFound, "document not found in index")
	ErrBlobRetrieval  = New("BLOB_RETRIEVAL_FAILED", http.StatusBadGateway, "failed to retrieve document content")
	ErrStorage        = New("STORAGE_ERROR", http.StatusInternalServerError, "storage backend error")
	ErrLockTimeout    = New("LOCK_NOT_ACQUIRED", http.StatusConflict, "resource is locked, retry later")
	ErrConfiguration  = New("CONFIGURATION_ERROR", http.StatusInternalServerError, "invalid configuration")
	ErrNotImplemented = New("NOT_IMPLEMENTED", http.StatusNotImplemented, "operation not supported by storage backend")
	ErrTimeout        = New("TIMEOUT", http.StatusGatewayTimeout, "operation timed out")
	ErrCanceled       = New("REQUEST_CANCELED", 499, "request canceled by client")
)

// FromError normalises any error into an *Error. Context expiry that
// escaped untyped from a backend maps to ErrTimeout or ErrCanceled.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	switch {
	case errors.As(err, &e):
		return e
	case errors.Is(err, context.DeadlineExceeded):
		return WrapAs(ErrTimeout, err, "")
	case errors.Is(err, context.Canceled):
		return WrapAs(ErrCanceled, err, "")
	}
	return WrapAs(ErrInternal, err, "")
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// WrapAs wraps err keeping the code and status of the template error.
func WrapAs(template *Error, err error, message string) *Error {
	if template == nil {
		template = ErrInternal
	}
	if message == "" {
		message = template.Message
	}
	return Wrap(err, template.Code, template.Status, message)
}
