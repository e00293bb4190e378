package weightstats

import (
	"fmt"
	"math"
)

const (
	AnomalySpike = "spike"
	AnomalyDrop  = "drop"

	SeverityHigh   = "high"
	SeverityMedium = "medium"

	// anomalyMinEntries: no detection below this series length.
	anomalyMinEntries = 5

	anomalySigma     = 2.5
	anomalyHighSigma = 3.0
)

type Anomaly struct {
	Date         string  `json:"date"`
	Weight       float64 `json:"weight"`
	Type         string  `json:"type"`
	Severity     string  `json:"severity"`
	Message      string  `json:"message"`
	LikelyReason string  `json:"likelyReason"`
}

// DetectAnomalies flags statistical outliers: for each interior entry
// (excluding the first two and the last) the weight is compared against the
// mean and standard deviation of the preceding up-to-3 entries; beyond 2.5σ
// it is a spike or drop, beyond 3σ the severity is high.
func DetectAnomalies(entries []WeightEntry) []Anomaly {
	if len(entries) < anomalyMinEntries {
		return nil
	}

	var anomalies []Anomaly
	for i := 2; i < len(entries)-1; i++ {
		start := i - 3
		if start < 0 {
			start = 0
		}
		mean, stdDev := meanAndStdDev(entries[start:i])
		if stdDev == 0 {
			continue
		}

		deviation := entries[i].Weight - mean
		if math.Abs(deviation) <= anomalySigma*stdDev {
			continue
		}

		severity := SeverityMedium
		if math.Abs(deviation) > anomalyHighSigma*stdDev {
			severity = SeverityHigh
		}

		if deviation > 0 {
			anomalies = append(anomalies, Anomaly{
				Date:         entries[i].Date,
				Weight:       entries[i].Weight,
				Type:         AnomalySpike,
				Severity:     severity,
				Message:      fmt.Sprintf("Weight jumped %.1f kg above the recent average.", deviation),
				LikelyReason: "water retention, high sodium intake or a late heavy meal",
			})
		} else {
			anomalies = append(anomalies, Anomaly{
				Date:         entries[i].Date,
				Weight:       entries[i].Weight,
				Type:         AnomalyDrop,
				Severity:     severity,
				Message:      fmt.Sprintf("Weight dropped %.1f kg below the recent average.", -deviation),
				LikelyReason: "dehydration or a measurement right after intense activity",
			})
		}
	}
	return anomalies
}

func meanAndStdDev(window []WeightEntry) (float64, float64) {
	if len(window) == 0 {
		return 0, 0
	}
	var sum float64
	for _, e := range window {
		sum += e.Weight
	}
	mean := sum / float64(len(window))

	var variance float64
	for _, e := range window {
		diff := e.Weight - mean
		variance += diff * diff
	}
	variance /= float64(len(window))
	return mean, math.Sqrt(variance)
}

const (
	DirectionAccelerating = "accelerating"
	DirectionSlowing      = "slowing"
	DirectionReversing    = "reversing"

	changePointWindow     = 14
	changePointMinEntries = 2 * changePointWindow
	changePointMinDelta   = 0.05 // kg/day
)

type ChangePointInsight struct {
	Window    int     `json:"window"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"`
}

// DetectChangePoint compares the average daily loss of the most recent 14
// entries against the preceding 14. Nil when the series is too short or the
// shift is below the noise floor.
func DetectChangePoint(entries []WeightEntry) *ChangePointInsight {
	if len(entries) < changePointMinEntries {
		return nil
	}

	n := len(entries)
	recentLoss := avgDailyLoss(entries[n-changePointWindow:])
	previousLoss := avgDailyLoss(entries[n-changePointMinEntries : n-changePointWindow])

	delta := recentLoss - previousLoss
	if math.Abs(delta) < changePointMinDelta {
		return nil
	}

	direction := DirectionSlowing
	switch {
	case delta > 0:
		direction = DirectionAccelerating
	case recentLoss < 0 && previousLoss > 0:
		// the sign flipped: losing before, gaining now
		direction = DirectionReversing
	}

	return &ChangePointInsight{
		Window:    changePointWindow,
		Delta:     delta,
		Direction: direction,
	}
}
