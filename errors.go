package ffauth

import (
	"errors"
	"net/http"
)

// Public error taxonomy. Every Engine method returns one of these (or nil); the
// underlying cause is logged and audited, never returned.
var (
	// ErrAuthRequired is returned when no credential was presented.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAuthInvalid covers bad passwords, bad or expired tokens, revoked sessions and
	// lost rotation races alike.
	ErrAuthInvalid = errors.New("invalid credentials")
	// ErrConflict is returned by Register when the email is already registered.
	ErrConflict = errors.New("email already registered")
	// ErrInvalidInput is returned for malformed registration input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnavailable is returned when a store, hasher or signer fails.
	ErrUnavailable = errors.New("internal error")
	// ErrEngineNotReady is returned by methods called on a nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Wire codes carried in error response bodies.
const (
	CodeAuthRequired = "AUTH_REQUIRED"
	CodeAuthInvalid  = "AUTH_INVALID"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeInternal     = "INTERNAL"
)

// ErrorCode maps err onto its wire code. Unknown errors map to CodeInternal.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrAuthRequired):
		return CodeAuthRequired
	case errors.Is(err, ErrAuthInvalid):
		return CodeAuthInvalid
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalidInput):
		return CodeValidation
	default:
		return CodeInternal
	}
}

// ErrorStatus maps err onto an HTTP status code.
func ErrorStatus(err error) int {
	switch ErrorCode(err) {
	case CodeAuthRequired, CodeAuthInvalid:
		return http.StatusUnauthorized
	case CodeConflict:
		return http.StatusConflict
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorMessage returns the fixed client-facing message for err's code.
func ErrorMessage(err error) string {
	switch ErrorCode(err) {
	case CodeAuthRequired:
		return "Authentication required"
	case CodeAuthInvalid:
		return "Invalid or expired credentials"
	case CodeConflict:
		return "Email already registered"
	case CodeValidation:
		return "Invalid request"
	default:
		return "Internal server error"
	}
}
