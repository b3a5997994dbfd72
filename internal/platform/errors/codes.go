// Package errors provides coded domain errors shared by the taskmanager
// service layers and their transport mapping.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Input errors
	CodeValidation Code = "VALIDATION"

	// Identity errors
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInvalidCredentials Code = "INVALID_CREDENTIALS"
	CodeTokenInvalid       Code = "TOKEN_INVALID"
	CodeTokenExpired       Code = "TOKEN_EXPIRED"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
	CodeConflict Code = "CONFLICT"

	// Process errors
	CodeConfiguration Code = "CONFIGURATION"
	CodeInternal      Code = "INTERNAL"
)

// HTTPStatus maps domain codes to HTTP status codes.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest

	// Token failures surface as unauthenticated so clients re-login.
	case CodeUnauthenticated,
		CodeInvalidCredentials,
		CodeTokenInvalid,
		CodeTokenExpired:
		return http.StatusUnauthorized

	case CodeNotFound:
		return http.StatusNotFound

	case CodeConflict:
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// Public reports whether the message of an error with this code is safe to
// return to callers verbatim.
func (c Code) Public() bool {
	return c.HTTPStatus() < http.StatusInternalServerError
}
