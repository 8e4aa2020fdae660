package types

import (
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers and clients MUST use these instead of
// hardcoded strings; the prefix decides the HTTP status.
const (
	// Validation (400)
	ErrCodeValidationInvalidQuery ErrorCode = "validation_invalid_query"
	ErrCodeValidationInvalidUnits ErrorCode = "validation_invalid_units"
	ErrCodeValidationMissingField ErrorCode = "validation_missing_required_field"

	// Not Found (404)
	ErrCodeNotFoundLocation ErrorCode = "not_found_location"
	ErrCodeNotFoundRoute    ErrorCode = "not_found_route"

	// Upstream (502/504)
	ErrCodeUpstreamGeocoding       ErrorCode = "upstream_geocoding_unavailable"
	ErrCodeUpstreamForecast        ErrorCode = "upstream_forecast_unavailable"
	ErrCodeUpstreamMalformedSample ErrorCode = "upstream_forecast_malformed_sample"
	ErrCodeUpstreamUnavailable     ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited     ErrorCode = "upstream_rate_limited"
	ErrCodeUpstreamTimeout         ErrorCode = "upstream_timeout"

	// Internal (500)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// Pipeline stages attached to upstream errors under the "stage" detail key.
const (
	StageGeocoding = "geocoding"
	StageForecast  = "forecast"
)

// HTTPStatus maps an ErrorCode to its corresponding HTTP status code.
// Returns 500 for unrecognized error codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest // 400
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound // 404
	case s == string(ErrCodeUpstreamTimeout):
		return http.StatusGatewayTimeout // 504
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway // 502
	case strings.HasPrefix(s, "internal_"):
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// IsUpstream reports whether the code belongs to the dependency-failure family.
func (c ErrorCode) IsUpstream() bool {
	return strings.HasPrefix(string(c), "upstream_")
}

// AppError is the standard application error type used throughout the service.
// All domain, client and handler errors are expressed as AppError so that the
// HTTP layer can format them consistently.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a copy of the error with the provided details merged in.
// The receiver is not mutated.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
