package forecasts

import (
	"math"
	"sort"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// RainProbabilityThreshold is the inclusive probability at which a sample
// counts as rainy regardless of volume.
const RainProbabilityThreshold = 0.30

// IsRainy reports whether a sample meets either rain trigger. The comparison
// uses the unrounded probability.
func IsRainy(s types.ForecastSample) bool {
	return s.PrecipitationMM > 0 || s.Probability >= RainProbabilityThreshold
}

// Aggregate reduces tomorrow's samples to a verdict. HighestProbability is
// taken over every sample, not just the rainy ones. RainySlots is sorted by
// time whatever the input order.
func Aggregate(samples []types.ForecastSample) types.RainSummary {
	var highest float64
	slots := make([]types.RainySlot, 0, len(samples))

	for _, s := range samples {
		if s.Probability > highest {
			highest = s.Probability
		}
		if !IsRainy(s) {
			continue
		}
		slots = append(slots, types.RainySlot{
			Time:        s.Timestamp,
			Probability: round2(s.Probability),
			VolumeMM:    s.PrecipitationMM,
		})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].Time < slots[j].Time
	})

	return types.RainSummary{
		WillRain:           len(slots) > 0,
		HighestProbability: round2(highest),
		RainySlots:         slots,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
