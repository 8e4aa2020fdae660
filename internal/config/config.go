// Package config defines the process configuration for the rain-check API.
// Configuration is loaded once at startup (or Lambda cold start) and is
// immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> *_FILE secret pointers (Lowest)
//
// A missing required value or an invalid format makes LoadConfig fail, and
// the process refuses to start.
package config

import (
	"time"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for it.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
// Sub-components receive only the config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"will-it-rain"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`

	// Domain Configurations
	Server        ServerConfig
	OpenWeather   OpenWeatherConfig
	AWS           AWSConfig
	Security      SecurityConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"5000" validate:"required,numeric"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// OpenWeatherConfig holds the weather provider credentials and call limits.
type OpenWeatherConfig struct {
	APIKey      SecretString  `envconfig:"OPENWEATHER_API_KEY" validate:"required"`
	BaseURL     string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	Timeout     time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxRetries  int           `envconfig:"OPENWEATHER_MAX_RETRIES" default:"0" validate:"min=0,max=5"`
	MaxInFlight int64         `envconfig:"OPENWEATHER_MAX_IN_FLIGHT" default:"16" validate:"min=1"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// VerdictQueueURL enables verdict publishing when set.
	VerdictQueueURL string `envconfig:"SQS_RAIN_VERDICTS" validate:"omitempty,url"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// SecurityConfig holds browser-facing security settings.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"WillItRain" validate:"required"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSecretResolution indicates a *_FILE secret pointer could not be read.
	ErrSecretResolution ConfigErrorType = "SECRET_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
