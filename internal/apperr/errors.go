// Package apperr defines the closed set of domain failures returned by the
// account, token and economy services.
package apperr

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Account lifecycle
	CodeConflict              Code = "CONFLICT"
	CodeInvalidCredentials    Code = "INVALID_CREDENTIALS"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidOrExpiredToken Code = "INVALID_OR_EXPIRED_TOKEN"

	// Bearer token verification
	CodeTokenMalformed        Code = "TOKEN_MALFORMED"
	CodeTokenSignatureInvalid Code = "TOKEN_SIGNATURE_INVALID"
	CodeTokenExpired          Code = "TOKEN_EXPIRED"

	// Economy
	CodeAlreadyCheckedIn   Code = "ALREADY_CHECKED_IN"
	CodeInsufficientPoints Code = "INSUFFICIENT_POINTS"

	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// Error is a domain error. Message is safe to show to end users.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a domain error that keeps an underlying cause for logs.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

var (
	ErrConflict              = New(CodeConflict, "username or email already exists")
	ErrInvalidCredentials    = New(CodeInvalidCredentials, "invalid credentials")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrInvalidOrExpiredToken = New(CodeInvalidOrExpiredToken, "invalid or expired token")
	ErrTokenMalformed        = New(CodeTokenMalformed, "malformed token")
	ErrTokenSignatureInvalid = New(CodeTokenSignatureInvalid, "invalid token signature")
	ErrTokenExpired          = New(CodeTokenExpired, "token expired")
	ErrAlreadyCheckedIn      = New(CodeAlreadyCheckedIn, "already checked in")
	ErrInsufficientPoints    = New(CodeInsufficientPoints, "not enough points")
	ErrInvalidArgument       = New(CodeInvalidArgument, "invalid argument")
)

// InvalidArgument returns an INVALID_ARGUMENT error with a specific message.
func InvalidArgument(message string) *Error {
	return New(CodeInvalidArgument, message)
}

// CodeOf extracts the domain code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// HTTPStatus maps a code to the status used by the HTTP transport.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeConflict:
		return http.StatusConflict
	case CodeInvalidCredentials, CodeTokenMalformed, CodeTokenSignatureInvalid, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeNotFound:
		return http.StatusNotFound
	case CodeInvalidOrExpiredToken, CodeAlreadyCheckedIn, CodeInsufficientPoints, CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Response returns the status code and client-facing body for err. Errors
// outside the domain taxonomy collapse to a generic 500 so infrastructure
// detail never reaches the client.
func Response(err error) (int, map[string]string) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, map[string]string{
			"code":  string(CodeUnknown),
			"error": "internal error",
		}
	}
	return e.Code.HTTPStatus(), map[string]string{
		"code":  string(e.Code),
		"error": e.Message,
	}
}
