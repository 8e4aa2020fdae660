package external

import (
	"context"
	"errors"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// WeatherProvider abstracts the weather vendor. Implementations translate
// vendor payloads into domain types without interpreting them.
type WeatherProvider interface {
	// Geocode returns at most one candidate for a free-text place name.
	// An empty slice means no match.
	Geocode(ctx context.Context, query string) ([]types.Location, error)

	// Forecast returns the raw multi-day forecast for a point, including the
	// provider's UTC offset when it reports one.
	Forecast(ctx context.Context, lat, lon float64, units types.Units, lang string) (*types.ForecastPayload, error)
}

// isAppError checks if err is an *types.AppError and extracts it.
func isAppError(err error, target **types.AppError) bool {
	var ae *types.AppError
	if ok := errors.As(err, &ae); ok {
		*target = ae
		return true
	}
	return false
}
