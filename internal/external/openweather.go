package external

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sony/gobreaker/v2"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// openWeatherAPIBase is the default OpenWeather API base URL.
// Overridable via OpenWeatherClientConfig.BaseURL.
const openWeatherAPIBase = "https://api.openweathermap.org"

const defaultUserAgent = "WillItRain/1.0"

const (
	geocodePath  = "/geo/1.0/direct"
	forecastPath = "/data/2.5/forecast"
)

// OpenWeatherClientConfig holds the configuration for creating an OpenWeatherClient.
type OpenWeatherClientConfig struct {
	APIKey    types.SecretString
	BaseURL   string // defaults to openWeatherAPIBase
	UserAgent string // defaults to defaultUserAgent
	Logger    *slog.Logger
}

// OpenWeatherClient implements WeatherProvider against the OpenWeather
// geocoding and 5 day / 3 hour forecast APIs through BaseClient.
type OpenWeatherClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewOpenWeatherClient creates an OpenWeatherClient. The httpClient timeout
// bounds each call.
func NewOpenWeatherClient(httpClient *http.Client, cfg OpenWeatherClientConfig, retry RetryPolicy, opts ...BaseClientOption) *OpenWeatherClient {
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	base := NewBaseClient(httpClient, types.ProviderOpenWeather, retry, ua, opts...)
	return NewOpenWeatherClientWithBase(base, cfg)
}

// NewOpenWeatherClientWithBase creates an OpenWeatherClient with a
// pre-configured BaseClient.
func NewOpenWeatherClientWithBase(base *BaseClient, cfg OpenWeatherClientConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openWeatherAPIBase
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &OpenWeatherClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type geocodeCandidate struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// forecastResponse keeps per-field raw values so that one odd sample does
// not fail decoding of the whole list.
type forecastResponse struct {
	City struct {
		Name     string          `json:"name"`
		Timezone json.RawMessage `json:"timezone"`
	} `json:"city"`
	List []forecastItem `json:"list"`
}

type forecastItem struct {
	Dt   json.RawMessage `json:"dt"`
	Pop  json.RawMessage `json:"pop"`
	Rain json.RawMessage `json:"rain"`
}

// Geocode resolves a place name to at most one candidate location.
func (c *OpenWeatherClient) Geocode(ctx context.Context, query string) ([]types.Location, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", "1")

	c.logger.InfoContext(ctx, "geocoding location", "query", query)

	var candidates []geocodeCandidate
	if err := c.get(ctx, types.StageGeocoding, geocodePath, params, &candidates); err != nil {
		return nil, err
	}

	locs := make([]types.Location, 0, len(candidates))
	for _, cand := range candidates {
		locs = append(locs, types.Location{
			Latitude:  cand.Lat,
			Longitude: cand.Lon,
			Name:      cand.Name,
			Country:   cand.Country,
			State:     cand.State,
		})
	}
	return locs, nil
}

// Forecast retrieves the 3-hour forecast for a point. units and lang are
// passed through verbatim.
func (c *OpenWeatherClient) Forecast(ctx context.Context, lat, lon float64, units types.Units, lang string) (*types.ForecastPayload, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	if units != "" {
		params.Set("units", string(units))
	}
	if lang != "" {
		params.Set("lang", lang)
	}

	c.logger.InfoContext(ctx, "fetching forecast",
		"lat", lat,
		"lon", lon,
		"units", string(units),
		"lang", lang,
	)

	var body forecastResponse
	if err := c.get(ctx, types.StageForecast, forecastPath, params, &body); err != nil {
		return nil, err
	}

	payload := &types.ForecastPayload{
		UTCOffsetSeconds: rawInt(body.City.Timezone),
		City:             body.City.Name,
		Samples:          make([]types.RawSample, 0, len(body.List)),
	}
	for _, item := range body.List {
		payload.Samples = append(payload.Samples, types.RawSample{
			Timestamp:   rawInt(item.Dt),
			Probability: rawFloat(item.Pop),
			Volumes:     rawVolumes(item.Rain),
		})
	}

	c.logger.InfoContext(ctx, "forecast retrieved",
		"city", payload.City,
		"samples", len(payload.Samples),
		"offset_known", payload.UTCOffsetSeconds != nil,
	)
	return payload, nil
}

// Name implements core.HealthProbe.
func (c *OpenWeatherClient) Name() string {
	return types.ProviderOpenWeather
}

// Check implements core.HealthProbe. It performs no I/O: the client is
// unhealthy only while its circuit breaker is open.
func (c *OpenWeatherClient) Check(_ context.Context) error {
	if state := c.base.BreakerState(); state == gobreaker.StateOpen {
		return fmt.Errorf("openweather circuit breaker is %s", state)
	}
	return nil
}

func (c *OpenWeatherClient) get(ctx context.Context, stage, path string, params url.Values, out any) error {
	params.Set("appid", c.apiKey.Unmask())
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"failed to create OpenWeather request",
			err,
		)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.base.Do(req)
	if err != nil {
		return c.wrapError(ctx, stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return c.handleErrorResponse(ctx, resp, stage)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewAppErrorWithDetails(
			stageCode(stage),
			"failed to decode OpenWeather response",
			err,
			map[string]any{"stage": stage, "upstream_status": resp.StatusCode},
		)
	}
	return nil
}

// handleErrorResponse reads and logs the error body from a 4xx response that
// BaseClient passed through, then returns a stage-specific AppError.
func (c *OpenWeatherClient) handleErrorResponse(ctx context.Context, resp *http.Response, stage string) *types.AppError {
	bodyStr := readSnippet(resp.Body)

	c.logger.ErrorContext(ctx, "OpenWeather API error",
		"stage", stage,
		"status_code", resp.StatusCode,
		"response_body", bodyStr,
	)

	return types.NewAppErrorWithDetails(
		stageCode(stage),
		fmt.Sprintf("OpenWeather %s returned %d", stage, resp.StatusCode),
		fmt.Errorf("OpenWeather %s returned %d: %s", stage, resp.StatusCode, bodyStr),
		map[string]any{
			"stage":           stage,
			"upstream_status": resp.StatusCode,
			"upstream_body":   bodyStr,
		},
	)
}

// wrapError tags BaseClient errors with the stage. Generic unavailability
// becomes the stage-specific code; timeouts and rate limits keep theirs.
func (c *OpenWeatherClient) wrapError(ctx context.Context, stage string, err error) error {
	redactURLError(err)

	var appErr *types.AppError
	if isAppError(err, &appErr) {
		code := appErr.Code
		if code == types.ErrCodeUpstreamUnavailable || code == types.ErrCodeInternalUnexpected {
			code = stageCode(stage)
		}
		c.logger.ErrorContext(ctx, "OpenWeather call failed",
			"stage", stage,
			"code", string(code),
			"error", appErr.Err,
		)
		return types.NewAppErrorWithDetails(
			code,
			fmt.Sprintf("OpenWeather %s: %s", stage, appErr.Message),
			appErr.Err,
			appErr.Details,
		).WithDetails(map[string]any{"stage": stage})
	}

	return types.NewAppErrorWithDetails(
		stageCode(stage),
		fmt.Sprintf("OpenWeather %s failed", stage),
		err,
		map[string]any{"stage": stage},
	)
}

// redactURLError drops the request URL, which carries the API key, from
// transport errors before they reach logs.
func redactURLError(err error) {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if u, perr := url.Parse(urlErr.URL); perr == nil {
			u.RawQuery = ""
			urlErr.URL = u.String()
		} else {
			urlErr.URL = ""
		}
	}
}

func stageCode(stage string) types.ErrorCode {
	if stage == types.StageGeocoding {
		return types.ErrCodeUpstreamGeocoding
	}
	return types.ErrCodeUpstreamForecast
}

// rawFloat returns nil for absent, null or non-numeric values.
func rawFloat(raw json.RawMessage) *float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

// rawInt accepts whole-number JSON values that fit in an int64.
func rawInt(raw json.RawMessage) *int64 {
	f := rawFloat(raw)
	if f == nil || math.IsInf(*f, 0) || *f != math.Trunc(*f) {
		return nil
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is out of range.
	if *f < math.MinInt64 || *f >= math.MaxInt64 {
		return nil
	}
	v := int64(*f)
	return &v
}

// rawVolumes decodes the accumulation-window object, dropping entries that
// are not numbers.
func rawVolumes(raw json.RawMessage) map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	out := make(map[string]float64, len(fields))
	for k, v := range fields {
		if f := rawFloat(v); f != nil {
			out[k] = *f
		}
	}
	return out
}

var _ WeatherProvider = (*OpenWeatherClient)(nil)
