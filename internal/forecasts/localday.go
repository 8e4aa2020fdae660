package forecasts

import "github.com/Zidanesyah/willItRain/internal/types"

// LocalDayStart returns the UTC instant of local midnight on the calendar day
// containing instant, for a location at a fixed offset (seconds east of UTC).
// Floor division keeps the result correct for negative shifted instants.
func LocalDayStart(instant, offset int64) int64 {
	shifted := instant + offset
	rem := shifted % types.SecondsPerDay
	if rem < 0 {
		rem += types.SecondsPerDay
	}
	return shifted - rem - offset
}

// TomorrowWindow returns the half-open UTC interval [start, end) covering the
// local calendar day after the one containing now.
func TomorrowWindow(offset, now int64) (start, end int64) {
	start = LocalDayStart(now, offset) + types.SecondsPerDay
	return start, start + types.SecondsPerDay
}

// IsTomorrowSlot reports whether a sample taken at the UTC instant sample falls
// inside tomorrow's local day. Both bounds are UTC instants, so the sample is
// compared unshifted.
func IsTomorrowSlot(sample, offset, now int64) bool {
	start, end := TomorrowWindow(offset, now)
	return sample >= start && sample < end
}

// FilterTomorrow keeps the samples inside tomorrow's local day, preserving
// input order. The result is never nil.
func FilterTomorrow(samples []types.ForecastSample, offset, now int64) []types.ForecastSample {
	start, end := TomorrowWindow(offset, now)
	out := make([]types.ForecastSample, 0, len(samples))
	for _, s := range samples {
		if s.Timestamp >= start && s.Timestamp < end {
			out = append(out, s)
		}
	}
	return out
}
