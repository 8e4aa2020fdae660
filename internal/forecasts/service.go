// Package forecasts answers "will it rain tomorrow" for a named place.
//
// The pure core (LocalDayStart, IsTomorrowSlot, Aggregate) works on UTC
// instants and a fixed UTC offset in seconds; Service composes it with the
// geocoding and forecast collaborators.
package forecasts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// Geocoder resolves a free-text place name. Implementations request at most
// one candidate; an empty slice means the place is unknown.
type Geocoder interface {
	Geocode(ctx context.Context, query string) ([]types.Location, error)
}

// ForecastProvider retrieves the multi-day forecast for a point.
type ForecastProvider interface {
	Forecast(ctx context.Context, lat, lon float64, units types.Units, lang string) (*types.ForecastPayload, error)
}

// VerdictPublisher receives every successful verdict. Publishing is best
// effort: errors are logged and never fail the query.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, msg types.RainVerdictMessage) error
}

// RainQuery is a validated rain-check request.
type RainQuery struct {
	Query    string
	Units    types.Units
	Language string
}

// Service orchestrates geocoding, forecast retrieval, tomorrow filtering and
// aggregation. It holds no per-query state and is safe for concurrent use.
type Service struct {
	geocoder  Geocoder
	forecasts ForecastProvider
	publisher VerdictPublisher
	logger    *slog.Logger
	clock     types.Clock
}

// ServiceOption configures optional Service collaborators.
type ServiceOption func(*Service)

// WithVerdictPublisher publishes each successful report.
func WithVerdictPublisher(p VerdictPublisher) ServiceOption {
	return func(s *Service) { s.publisher = p }
}

// WithClock overrides the wall clock used as "now".
func WithClock(c types.Clock) ServiceOption {
	return func(s *Service) { s.clock = c }
}

// NewService creates a Service.
func NewService(geocoder Geocoder, forecasts ForecastProvider, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		geocoder:  geocoder,
		forecasts: forecasts,
		logger:    logger,
		clock:     types.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckRainTomorrow runs the full pipeline for one query. The two upstream
// calls are sequential because the forecast needs the geocoded coordinates.
func (s *Service) CheckRainTomorrow(ctx context.Context, q RainQuery) (*types.RainReport, error) {
	units := q.Units
	if units == "" {
		units = types.DefaultUnits
	}
	lang := q.Language
	if lang == "" {
		lang = types.DefaultLanguage
	}

	logger := types.LoggerFromContext(ctx, s.logger)

	candidates, err := s.geocoder.Geocode(ctx, q.Query)
	if err != nil {
		return nil, upstreamError(err, types.ErrCodeUpstreamGeocoding, types.StageGeocoding)
	}
	if len(candidates) == 0 {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeNotFoundLocation,
			"no location matches the query",
			nil,
			map[string]any{"query": q.Query},
		)
	}
	loc := candidates[0]

	payload, err := s.forecasts.Forecast(ctx, loc.Latitude, loc.Longitude, units, lang)
	if err != nil {
		return nil, upstreamError(err, types.ErrCodeUpstreamForecast, types.StageForecast)
	}
	if payload == nil {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamForecast,
			"forecast provider returned no data",
			nil,
			map[string]any{"stage": types.StageForecast},
		)
	}

	if payload.UTCOffsetSeconds != nil {
		loc.UTCOffsetSeconds = *payload.UTCOffsetSeconds
	} else {
		loc.UTCOffsetSeconds = 0
	}

	samples, err := NormalizeSamples(payload.Samples)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().Unix()
	tomorrow := FilterTomorrow(samples, loc.UTCOffsetSeconds, now)
	summary := Aggregate(tomorrow)

	report := &types.RainReport{
		Location: types.LocationSummary{
			Query:             q.Query,
			Resolved:          ResolvedLabel(loc),
			Lat:               loc.Latitude,
			Lon:               loc.Longitude,
			TimezoneOffsetSec: loc.UTCOffsetSeconds,
		},
		Tomorrow: summary,
	}

	logger.InfoContext(ctx, "rain check completed",
		"resolved", report.Location.Resolved,
		"offset_sec", loc.UTCOffsetSeconds,
		"samples", len(samples),
		"tomorrow_samples", len(tomorrow),
		"will_rain", summary.WillRain,
	)

	s.publish(ctx, logger, report, now)
	return report, nil
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, report *types.RainReport, now int64) {
	if s.publisher == nil {
		return
	}
	start, _ := TomorrowWindow(report.Location.TimezoneOffsetSec, now)
	msg := types.RainVerdictMessage{
		RequestID:          types.GetRequestID(ctx),
		Query:              report.Location.Query,
		Resolved:           report.Location.Resolved,
		Lat:                report.Location.Lat,
		Lon:                report.Location.Lon,
		TimezoneOffsetSec:  report.Location.TimezoneOffsetSec,
		TomorrowStart:      start,
		WillRain:           report.Tomorrow.WillRain,
		HighestProbability: report.Tomorrow.HighestProbability,
		RainySlotCount:     len(report.Tomorrow.RainySlots),
		CheckedAt:          now,
	}
	if err := s.publisher.PublishVerdict(ctx, msg); err != nil {
		logger.WarnContext(ctx, "failed to publish rain verdict", "error", err)
	}
}

// ResolvedLabel joins name, state and country with spaces, skipping blanks.
func ResolvedLabel(loc types.Location) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{loc.Name, loc.State, loc.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// upstreamError keeps a collaborator's AppError (adding the stage when
// missing) and wraps anything else under the stage's code.
func upstreamError(err error, code types.ErrorCode, stage string) error {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		if _, ok := appErr.Details["stage"]; ok {
			return appErr
		}
		return appErr.WithDetails(map[string]any{"stage": stage})
	}
	if errors.Is(err, context.DeadlineExceeded) {
		code = types.ErrCodeUpstreamTimeout
	}
	return types.NewAppErrorWithDetails(code, stage+" request failed", err, map[string]any{"stage": stage})
}
