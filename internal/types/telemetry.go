package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency       = "APILatency"
	MetricAPIRequestCount  = "APIRequestCount"
	MetricUpstreamFailure  = "UpstreamFailure"
	MetricVerdictPublished = "VerdictPublished"

	// Dimension Keys
	DimEndpoint   = "Endpoint"
	DimMethod     = "Method"
	DimStatusCode = "StatusCode"
	DimProvider   = "Provider"
	DimErrorCode  = "ErrorCode"
	DimWillRain   = "WillRain"

	// Default Metric Namespace, overridable through METRIC_NAMESPACE.
	MetricNamespace = "WillItRain"

	// ProviderOpenWeather is the Provider dimension value for OpenWeather calls.
	ProviderOpenWeather = "openweather"
)
