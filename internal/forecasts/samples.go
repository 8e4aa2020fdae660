package forecasts

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// defaultCadenceHours is assumed when the cadence cannot be inferred from
// fewer than two distinct timestamps. It matches the 3-hour forecast feed.
const defaultCadenceHours = 3

// NewMalformedSampleError reports a provider sample without a usable timestamp.
func NewMalformedSampleError(index int) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeUpstreamMalformedSample,
		"forecast provider returned a sample without a timestamp",
		nil,
		map[string]any{
			"stage":        types.StageForecast,
			"sample_index": index,
		},
	)
}

// NormalizeSamples turns provider samples into ForecastSamples. A missing
// timestamp rejects the whole batch; a missing probability or volume
// defaults to 0. Probabilities are clamped into [0,1].
func NormalizeSamples(raw []types.RawSample) ([]types.ForecastSample, error) {
	timestamps := make([]int64, 0, len(raw))
	for i, r := range raw {
		if r.Timestamp == nil {
			return nil, NewMalformedSampleError(i)
		}
		timestamps = append(timestamps, *r.Timestamp)
	}

	preferred := volumeKey(inferCadenceHours(timestamps))

	out := make([]types.ForecastSample, 0, len(raw))
	for _, r := range raw {
		out = append(out, types.ForecastSample{
			Timestamp:       *r.Timestamp,
			PrecipitationMM: pickVolume(r.Volumes, preferred),
			Probability:     clampProbability(r.Probability),
		})
	}
	return out, nil
}

// inferCadenceHours returns the smallest positive gap between timestamps,
// rounded to whole hours and never below 1.
func inferCadenceHours(timestamps []int64) int {
	if len(timestamps) < 2 {
		return defaultCadenceHours
	}
	sorted := append([]int64(nil), timestamps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var gap int64
	for i := 1; i < len(sorted); i++ {
		d := sorted[i] - sorted[i-1]
		if d > 0 && (gap == 0 || d < gap) {
			gap = d
		}
	}
	if gap == 0 {
		return defaultCadenceHours
	}
	hours := int(math.Round(float64(gap) / 3600))
	if hours < 1 {
		hours = 1
	}
	return hours
}

func volumeKey(hours int) string {
	return fmt.Sprintf("%dh", hours)
}

// windowHours parses an accumulation key such as "3h". Unparseable keys sort
// after every valid window.
func windowHours(key string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(key, "h"))
	if err != nil || !strings.HasSuffix(key, "h") || n <= 0 {
		return math.MaxInt
	}
	return n
}

// pickVolume returns the volume for the preferred window, falling back to the
// other windows shortest first. Negative and NaN values count as absent.
func pickVolume(volumes map[string]float64, preferred string) float64 {
	if len(volumes) == 0 {
		return 0
	}
	if v, ok := usableVolume(volumes, preferred); ok {
		return v
	}

	keys := make([]string, 0, len(volumes))
	for k := range volumes {
		if k != preferred {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		wi, wj := windowHours(keys[i]), windowHours(keys[j])
		if wi != wj {
			return wi < wj
		}
		return keys[i] < keys[j]
	})

	for _, k := range keys {
		if v, ok := usableVolume(volumes, k); ok {
			return v
		}
	}
	return 0
}

func usableVolume(volumes map[string]float64, key string) (float64, bool) {
	v, ok := volumes[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, false
	}
	return v, true
}

func clampProbability(p *float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return 0
	}
	return math.Min(1, math.Max(0, *p))
}
