package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies Error() produces "code: message".
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidQuery,
		Message: "query must be at least 2 characters",
	}

	expected := "validation_invalid_query: query must be at least 2 characters"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	appErr := &AppError{
		Code:    ErrCodeUpstreamGeocoding,
		Message: "geocoding request failed",
		Err:     underlying,
	}

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() = %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error through Unwrap")
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeNotFoundLocation, "location not found", nil)
	wrapped := fmt.Errorf("check rain: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeNotFoundLocation {
		t.Errorf("extracted Code = %q, want %q", target.Code, ErrCodeNotFoundLocation)
	}
}

func TestNewAppErrorWithDetails(t *testing.T) {
	appErr := NewAppErrorWithDetails(
		ErrCodeUpstreamForecast,
		"forecast request failed",
		nil,
		map[string]any{"stage": StageForecast, "upstream_status": 503},
	)

	if appErr.Details["stage"] != StageForecast {
		t.Errorf("Details[stage] = %v, want %q", appErr.Details["stage"], StageForecast)
	}
	if appErr.Details["upstream_status"] != 503 {
		t.Errorf("Details[upstream_status] = %v, want 503", appErr.Details["upstream_status"])
	}
}

// TestAppErrorWithDetails verifies WithDetails merges into a copy.
func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(
		ErrCodeUpstreamUnavailable,
		"upstream unavailable",
		nil,
		map[string]any{"upstream_status": 500},
	)

	enhanced := original.WithDetails(map[string]any{"stage": StageGeocoding, "upstream_status": 503})

	if _, ok := original.Details["stage"]; ok {
		t.Error("WithDetails should not mutate the original error")
	}
	if enhanced.Details["stage"] != StageGeocoding {
		t.Errorf("enhanced stage = %v", enhanced.Details["stage"])
	}
	if enhanced.Details["upstream_status"] != 503 {
		t.Errorf("WithDetails should overwrite existing key: upstream_status = %v", enhanced.Details["upstream_status"])
	}
	if enhanced.Code != original.Code || enhanced.Message != original.Message {
		t.Error("Code and Message should carry over")
	}
}

func TestAppErrorWithDetailsNilOriginal(t *testing.T) {
	enhanced := NewAppError(ErrCodeNotFoundLocation, "not found", nil).
		WithDetails(map[string]any{"query": "Nowhereville"})

	if enhanced.Details["query"] != "Nowhereville" {
		t.Errorf("query = %v", enhanced.Details["query"])
	}
}

func TestErrorCodeHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{ErrCodeValidationInvalidQuery, http.StatusBadRequest},
		{ErrCodeValidationInvalidUnits, http.StatusBadRequest},
		{ErrCodeValidationMissingField, http.StatusBadRequest},

		{ErrCodeNotFoundLocation, http.StatusNotFound},
		{ErrCodeNotFoundRoute, http.StatusNotFound},

		{ErrCodeUpstreamGeocoding, http.StatusBadGateway},
		{ErrCodeUpstreamForecast, http.StatusBadGateway},
		{ErrCodeUpstreamMalformedSample, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeUpstreamRateLimited, http.StatusBadGateway},
		{ErrCodeUpstreamTimeout, http.StatusGatewayTimeout},

		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrorCode("totally_unknown_error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("ErrorCode(%q).HTTPStatus() = %d, want %d", tt.code, got, tt.wantStatus)
			}
		})
	}
}

func TestErrorCodeIsUpstream(t *testing.T) {
	if !ErrCodeUpstreamTimeout.IsUpstream() {
		t.Error("upstream_timeout should be upstream")
	}
	if ErrCodeNotFoundLocation.IsUpstream() {
		t.Error("not_found_location should not be upstream")
	}
}

// TestErrorCodeStringValues pins the wire values clients match on.
func TestErrorCodeStringValues(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected string
	}{
		{ErrCodeValidationInvalidQuery, "validation_invalid_query"},
		{ErrCodeValidationInvalidUnits, "validation_invalid_units"},
		{ErrCodeNotFoundLocation, "not_found_location"},
		{ErrCodeNotFoundRoute, "not_found_route"},
		{ErrCodeUpstreamGeocoding, "upstream_geocoding_unavailable"},
		{ErrCodeUpstreamForecast, "upstream_forecast_unavailable"},
		{ErrCodeUpstreamMalformedSample, "upstream_forecast_malformed_sample"},
		{ErrCodeUpstreamTimeout, "upstream_timeout"},
		{ErrCodeInternalUnexpected, "internal_unexpected_error"},
	}

	for _, tt := range tests {
		if string(tt.code) != tt.expected {
			t.Errorf("ErrorCode constant has value %q, want %q", string(tt.code), tt.expected)
		}
	}
}
