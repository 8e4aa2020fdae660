package core

import (
	"errors"
	"testing"

	"github.com/Zidanesyah/willItRain/internal/types"
)

type testQuery struct {
	Query string `query:"q" validate:"min=2"`
	Units string `query:"units" validate:"omitempty,owm_units"`
}

type testRequired struct {
	Name string `json:"name" validate:"required"`
}

func TestNewValidator(t *testing.T) {
	v := NewValidator(testLogger())
	if v == nil || v.validate == nil || v.logger == nil {
		t.Fatal("NewValidator returned an incomplete validator")
	}
}

func TestValidateStruct_Success(t *testing.T) {
	v := NewValidator(testLogger())

	cases := []testQuery{
		{Query: "Jakarta"},
		{Query: "Jo", Units: "imperial"},
		{Query: "São Paulo", Units: "standard"},
		{Query: " a"},
	}
	for _, c := range cases {
		if err := v.ValidateStruct(c); err != nil {
			t.Errorf("ValidateStruct(%+v) = %v, want nil", c, err)
		}
	}
}

func TestValidateStruct_CodesPerField(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		wantCode  types.ErrorCode
		wantField string
	}{
		{"short query", testQuery{Query: "J"}, types.ErrCodeValidationInvalidQuery, "q"},
		{"empty query", testQuery{}, types.ErrCodeValidationInvalidQuery, "q"},
		{"bad units", testQuery{Query: "Jakarta", Units: "kelvin"}, types.ErrCodeValidationInvalidUnits, "units"},
		{"required", testRequired{}, types.ErrCodeValidationMissingField, "name"},
	}

	v := NewValidator(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.input)

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *types.AppError, got %T: %v", err, err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantCode)
			}
			errs, ok := appErr.Details["validation_errors"].([]ValidationError)
			if !ok || len(errs) == 0 {
				t.Fatalf("expected validation_errors detail, got %v", appErr.Details)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", errs[0].Field, tt.wantField)
			}
		})
	}
}

func TestValidateStruct_ShortQueryCountsRunes(t *testing.T) {
	v := NewValidator(testLogger())

	// Two runes, four bytes.
	if err := v.ValidateStruct(testQuery{Query: "東京"}); err != nil {
		t.Errorf("two-rune query should pass, got %v", err)
	}
	if err := v.ValidateStruct(testQuery{Query: "東"}); err == nil {
		t.Error("one-rune query should fail")
	}
}

func TestValidateStruct_ReportsAllFailures(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct(testQuery{Query: "J", Units: "kelvin"})

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %v", err)
	}
	errs := appErr.Details["validation_errors"].([]ValidationError)
	if len(errs) != 2 {
		t.Errorf("expected 2 failures, got %d: %+v", len(errs), errs)
	}
	if appErr.Message != "q must be at least 2 characters" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	v := NewValidator(testLogger())

	err := v.ValidateStruct("not a struct")

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeValidationInvalidQuery {
		t.Errorf("expected invalid query error for misuse, got %v", err)
	}
}
