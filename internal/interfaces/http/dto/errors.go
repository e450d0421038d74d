package dto

import (
	"net/http"
	"strings"
)

// General error codes used directly by the HTTP layer
const (
	ErrCodeInternal   = "INTERNAL_ERROR"
	ErrCodeBadRequest = "BAD_REQUEST"
	ErrCodeNotFound   = "NOT_FOUND"
)

// errorCodeHTTPStatus maps domain error codes to HTTP status codes.
// Codes not listed fall through to the prefix rules in GetHTTPStatus.
var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:  http.StatusNotFound,
	"ALREADY_EXISTS": http.StatusConflict,

	// Lifecycle and queue state -> 422 Unprocessable Entity. The payload
	// was understood; the operation is not allowed right now.
	"PENDING_SYNC":  http.StatusUnprocessableEntity,
	"INVALID_STATE": http.StatusUnprocessableEntity,
	"TILL_NOT_OPEN": http.StatusUnprocessableEntity,
	"NOT_COMPLETED": http.StatusUnprocessableEntity,
	"WRONG_TILL":    http.StatusUnprocessableEntity,

	// Payload problems -> 400 Bad Request
	"NO_ITEMS":             http.StatusBadRequest,
	"NO_TENDER":            http.StatusBadRequest,
	"TENDER_MISMATCH":      http.StatusBadRequest,
	"INSUFFICIENT_PAYMENT": http.StatusBadRequest,
	"MISSING_KEY":          http.StatusBadRequest,

	// Local store trouble
	"STORE_DEGRADED": http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status for a domain error code.
// MISSING_ and INVALID_ families are payload validation failures; anything
// unrecognized is answered as an internal error.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "MISSING_") || strings.HasPrefix(code, "INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
