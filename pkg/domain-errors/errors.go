// Package domainerrors defines the gateway's error taxonomy. Services return
// these; the HTTP layer translates codes to status codes and a consistent
// {status:"error", message} envelope without leaking internal detail.
package domainerrors

import "net/http"

// Code classifies an error for transport mapping.
type Code string

const (
	// CodeInvalidInput covers malformed or missing request input.
	CodeInvalidInput Code = "invalid_input"
	// CodeUnauthorized covers missing, invalid, expired or revoked credentials.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden covers authenticated principals lacking role, scope,
	// permission or ownership.
	CodeForbidden Code = "forbidden"
	// CodeNotFound covers references to absent entities.
	CodeNotFound Code = "not_found"
	// CodeRateLimited covers throttled requests.
	CodeRateLimited Code = "rate_limited"
	// CodeUpstream covers failures talking to the NID registry.
	CodeUpstream Code = "upstream_error"
	// CodeInternal covers everything unexpected.
	CodeInternal Code = "internal_error"
)

// Error carries a code and a user-facing message. The message must be safe to
// return to clients verbatim; anything sensitive belongs in logs only.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds a domain error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ToHTTPStatus maps an error code to a status code.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
