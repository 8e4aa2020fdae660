package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// tagUnits is the custom units rule registered by NewValidator.
const tagUnits = "owm_units"

// ValidationError describes a single failed field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator and registers the domain rules
// used by request parsing.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator and registers custom validation tags.
// Field names in errors come from the `query` struct tag, then `json`.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	// Registration errors only occur for empty tags or nil funcs.
	_ = v.RegisterValidation(tagUnits, func(fl validator.FieldLevel) bool {
		return types.Units(fl.Field().String()).Valid()
	})

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s and returns nil or a *types.AppError. The error
// code and message come from the first failing field; every failure is listed
// under details.validation_errors.
func (v *Validator) ValidateStruct(s any) error {
	errs := v.collect(s)
	if len(errs) == 0 {
		return nil
	}
	first := errs[0]
	return types.NewAppErrorWithDetails(
		types.ErrorCode(first.Code),
		first.Message,
		nil,
		map[string]any{"validation_errors": errs},
	)
}

func (v *Validator) collect(s any) []ValidationError {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: a programming error, not bad input.
		v.logger.Error("validator misuse", "error", err)
		return []ValidationError{{
			Code:    string(types.ErrCodeValidationInvalidQuery),
			Message: "invalid request",
		}}
	}

	out := make([]ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Code:    string(codeForTag(fe.Tag())),
			Message: messageFor(fe),
		})
	}
	return out
}

func codeForTag(tag string) types.ErrorCode {
	switch tag {
	case "required":
		return types.ErrCodeValidationMissingField
	case tagUnits:
		return types.ErrCodeValidationInvalidUnits
	default:
		return types.ErrCodeValidationInvalidQuery
	}
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case tagUnits:
		return fmt.Sprintf("%s must be one of standard, metric, imperial", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
