package types

// SecondsPerDay is the length of a fixed-offset local calendar day.
const SecondsPerDay int64 = 86400

// Units selects the measurement system requested from the forecast provider.
type Units string

const (
	UnitsStandard Units = "standard"
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
)

// DefaultUnits and DefaultLanguage apply when the caller omits them.
const (
	DefaultUnits    = UnitsMetric
	DefaultLanguage = "en"
)

// Valid reports whether u is one of the provider-supported unit systems.
func (u Units) Valid() bool {
	switch u {
	case UnitsStandard, UnitsMetric, UnitsImperial:
		return true
	}
	return false
}

// Location is a geocoded place. UTCOffsetSeconds is populated from the
// forecast response once known; geocoding alone leaves it at 0.
type Location struct {
	Latitude         float64 `json:"lat"`
	Longitude        float64 `json:"lon"`
	Name             string  `json:"name"`
	Country          string  `json:"country,omitempty"`
	State            string  `json:"state,omitempty"`
	UTCOffsetSeconds int64   `json:"utc_offset_seconds"`
}

// RawSample is a forecast interval as decoded from the provider, before
// normalization. Nil pointers mark fields that were absent or not numeric.
// Volumes is keyed by accumulation window ("1h", "3h").
type RawSample struct {
	Timestamp   *int64
	Probability *float64
	Volumes     map[string]float64
}

// ForecastPayload is the provider's forecast response for one point.
type ForecastPayload struct {
	// UTCOffsetSeconds is nil when the provider omitted the offset.
	UTCOffsetSeconds *int64
	City             string
	Samples          []RawSample
}

// ForecastSample is one normalized forecast interval.
type ForecastSample struct {
	Timestamp       int64   `json:"time"`
	PrecipitationMM float64 `json:"volume"`
	Probability     float64 `json:"pop"`
}

// RainySlot is a tomorrow sample that met the rain trigger.
// Probability is rounded to 2 decimals, VolumeMM is the raw provider figure.
type RainySlot struct {
	Time        int64   `json:"time"`
	Probability float64 `json:"pop"`
	VolumeMM    float64 `json:"volume"`
}

// RainSummary is the verdict for tomorrow. RainySlots is sorted ascending by
// Time and is never nil.
type RainSummary struct {
	WillRain           bool        `json:"will_rain"`
	HighestProbability float64     `json:"highest_probability"`
	RainySlots         []RainySlot `json:"rainy_slots"`
}

// LocationSummary echoes the query and the resolved place.
type LocationSummary struct {
	Query             string  `json:"query"`
	Resolved          string  `json:"resolved"`
	Lat               float64 `json:"lat"`
	Lon               float64 `json:"lon"`
	TimezoneOffsetSec int64   `json:"timezone_offset_sec"`
}

// RainReport is the response payload of a rain check.
type RainReport struct {
	Location LocationSummary `json:"location"`
	Tomorrow RainSummary     `json:"tomorrow"`
}
