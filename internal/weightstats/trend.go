package weightstats

import "math"

const (
	TrendAccelerating = "accelerating"
	TrendSteady       = "steady"
	TrendSlowing      = "slowing"
	TrendPlateauing   = "plateauing"

	// trendMinEntries is the minimum series length for a meaningful
	// two-window comparison; below it the result is a valid low-confidence
	// "steady", not an error.
	trendMinEntries = 14

	trendSteadyBand     = 0.05 // kg/day
	trendShiftThreshold = 0.1  // kg/day
	plateauLossFloor    = 0.5  // kg over the last 14 entries
)

type TrendAnalysis struct {
	Trend      string  `json:"trend"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// AnalyzeTrend classifies the short-term trajectory by comparing the average
// daily loss of the most recent 7 entries against the preceding 7. Windows
// are entry-count based, not calendar based - irregular logging skews the
// window duration, an accepted tradeoff for simplicity.
func AnalyzeTrend(entries []WeightEntry) TrendAnalysis {
	if len(entries) < trendMinEntries {
		return TrendAnalysis{
			Trend:      TrendSteady,
			Confidence: 0.5,
			Message:    "Not enough data for a reliable trend yet - keep logging, at least 14 entries are needed.",
		}
	}

	n := len(entries)
	recentLoss := avgDailyLoss(entries[n-7:])
	previousLoss := avgDailyLoss(entries[n-14 : n-7])

	// positive diff = the pace dropped, negative = it picked up
	diff := previousLoss - recentLoss

	switch {
	case math.Abs(diff) < trendSteadyBand:
		return TrendAnalysis{
			Trend:      TrendSteady,
			Confidence: 0.8,
			Message:    "Your pace is holding steady week over week.",
		}
	case diff < -trendShiftThreshold:
		return TrendAnalysis{
			Trend:      TrendAccelerating,
			Confidence: 0.85,
			Message:    "Weight loss is accelerating - recent days outpace the previous week.",
		}
	case diff > trendShiftThreshold:
		return TrendAnalysis{
			Trend:      TrendSlowing,
			Confidence: 0.85,
			Message:    "Weight loss is slowing down compared to the previous week.",
		}
	}

	last14 := entries[n-14:]
	lossOver14 := last14[0].Weight - last14[len(last14)-1].Weight
	if lossOver14 < plateauLossFloor {
		return TrendAnalysis{
			Trend:      TrendPlateauing,
			Confidence: 0.9,
			Message:    "Weight has plateaued over the last 14 entries.",
		}
	}

	return TrendAnalysis{
		Trend:      TrendSteady,
		Confidence: 0.75,
		Message:    "Progress continues at a steady pace.",
	}
}
