// Package handlers contains the HTTP handler implementations for the
// rain-check API.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/Zidanesyah/willItRain/internal/core"
	"github.com/Zidanesyah/willItRain/internal/forecasts"
	"github.com/Zidanesyah/willItRain/internal/types"
)

// RainServiceInterface defines the service contract for the rain handler.
// Defined locally so tests can substitute a stub.
type RainServiceInterface interface {
	CheckRainTomorrow(ctx context.Context, q forecasts.RainQuery) (*types.RainReport, error)
}

// rainQueryParams is the validated shape of the query string.
type rainQueryParams struct {
	Query    string `query:"q" validate:"min=2"`
	Units    string `query:"units" validate:"omitempty,owm_units"`
	Language string `query:"lang"`
}

// RainHandler maps GET /api/will-it-rain to the rain service.
type RainHandler struct {
	service   RainServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewRainHandler creates a new RainHandler with the provided dependencies.
func NewRainHandler(svc RainServiceInterface, val *core.Validator, logger *slog.Logger) *RainHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &RainHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the rain endpoint onto the /api router.
func (h *RainHandler) RegisterRoutes(r chi.Router) {
	r.Get("/will-it-rain", h.HandleWillItRain)
}

// HandleWillItRain handles GET /api/will-it-rain?q=&units=&lang=.
// Validation failures never reach the service.
func (h *RainHandler) HandleWillItRain(w http.ResponseWriter, r *http.Request) {
	query, appErr := h.parseRainQuery(r.URL.Query())
	if appErr != nil {
		core.Error(w, r, appErr)
		return
	}

	report, err := h.service.CheckRainTomorrow(r.Context(), query)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.OK(w, r, report)
}

// parseRainQuery validates the query parameters. All three values are
// passed through verbatim; defaults for units and language are applied by
// the service.
func (h *RainHandler) parseRainQuery(values url.Values) (forecasts.RainQuery, *types.AppError) {
	params := rainQueryParams{
		Query:    values.Get("q"),
		Units:    values.Get("units"),
		Language: values.Get("lang"),
	}

	if err := h.validator.ValidateStruct(params); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return forecasts.RainQuery{}, appErr
		}
		return forecasts.RainQuery{}, types.NewAppError(types.ErrCodeValidationInvalidQuery, "invalid request", err)
	}

	return forecasts.RainQuery{
		Query:    params.Query,
		Units:    types.Units(params.Units),
		Language: params.Language,
	}, nil
}
