package types

// RainVerdictMessage is the SQS payload published after every successful
// rain check. Downstream consumers (reminders, dashboards) subscribe to the
// verdict queue; nothing in this service reads it back.
type RainVerdictMessage struct {
	MessageID string `json:"message_id"`
	RequestID string `json:"request_id,omitempty"`

	Query    string  `json:"query"`
	Resolved string  `json:"resolved"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`

	TimezoneOffsetSec int64 `json:"timezone_offset_sec"`
	// TomorrowStart is the UTC instant of local 00:00 tomorrow.
	TomorrowStart int64 `json:"tomorrow_start"`

	WillRain           bool    `json:"will_rain"`
	HighestProbability float64 `json:"highest_probability"`
	RainySlotCount     int     `json:"rainy_slot_count"`

	CheckedAt int64 `json:"checked_at"`
}
