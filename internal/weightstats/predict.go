package weightstats

import (
	"fmt"
	"math"
)

const (
	RiskAggressive = "aggressive"
	RiskModerate   = "moderate"
	RiskHealthy    = "healthy"

	projectionWindow = 14

	minConfidence = 20
	maxConfidence = 100

	aggressivePaceKgWeek = 1.2
	moderatePaceKgWeek   = 0.8
	minHealthyPaceKgWeek = 0.5
	maxHealthyPaceKgWeek = 1.0
)

type ProjectionScenario struct {
	Label            string  `json:"label"`
	WeeklyLoss       float64 `json:"weeklyLoss"`
	ProjectedEndDate string  `json:"projectedEndDate"`
}

type PredictiveAnalysis struct {
	// ProjectedGoalDate is empty when the recent trend projects no loss at
	// all - this projector never projects weight-gain scenarios.
	ProjectedGoalDate    string               `json:"projectedGoalDate"`
	ConfidenceLevel      float64              `json:"confidenceLevel"`
	RecommendedPace      float64              `json:"recommendedPace"`
	RiskAssessment       string               `json:"riskAssessment"`
	AlternativeScenarios []ProjectionScenario `json:"alternativeScenarios"`
}

// Project estimates the goal-completion date under the current trend plus
// three fixed-pace scenarios, with a confidence score derived from how
// consistent the recent daily deltas have been.
func Project(entries []WeightEntry, goal Goal, clock Clock) PredictiveAnalysis {
	if clock == nil {
		clock = SystemClock
	}
	if len(entries) == 0 {
		return PredictiveAnalysis{
			ConfidenceLevel: minConfidence,
			RecommendedPace: minHealthyPaceKgWeek,
			RiskAssessment:  RiskHealthy,
		}
	}

	recent := entries
	if len(recent) > projectionWindow {
		recent = recent[len(recent)-projectionWindow:]
	}

	// weight gain is clipped to zero, never extrapolated
	weeklyRate := avgDailyLoss(recent) * 7
	if weeklyRate < 0 {
		weeklyRate = 0
	}

	last := entries[len(entries)-1]
	remaining := last.Weight - goal.EndWeight
	anchor, anchorOK := ParseFlexible(last.Date, zeroTime)
	if !anchorOK {
		anchor = clock.Now()
	}

	projectDate := func(paceKgWeek float64) string {
		if paceKgWeek <= 0 || remaining <= 0 {
			return ""
		}
		days := int(math.Ceil(remaining / paceKgWeek * 7))
		return anchor.AddDate(0, 0, days).Format(CanonicalDateLayout)
	}

	scenarios := make([]ProjectionScenario, 0, 4)
	for _, pace := range []float64{0.5, 0.75, 1.0} {
		scenarios = append(scenarios, ProjectionScenario{
			Label:            fmt.Sprintf("%.2g kg/week", pace),
			WeeklyLoss:       pace,
			ProjectedEndDate: projectDate(pace),
		})
	}
	scenarios = append(scenarios, ProjectionScenario{
		Label:            "current trend",
		WeeklyLoss:       weeklyRate,
		ProjectedEndDate: projectDate(weeklyRate),
	})

	recommended := weeklyRate
	if recommended < minHealthyPaceKgWeek {
		recommended = minHealthyPaceKgWeek
	}
	if recommended > maxHealthyPaceKgWeek {
		recommended = maxHealthyPaceKgWeek
	}

	return PredictiveAnalysis{
		ProjectedGoalDate:    projectDate(weeklyRate),
		ConfidenceLevel:      projectionConfidence(recent),
		RecommendedPace:      recommended,
		RiskAssessment:       riskForPace(weeklyRate),
		AlternativeScenarios: scenarios,
	}
}

// projectionConfidence scores recent logging consistency:
// 1 - (stddev of daily deltas / mean absolute daily delta), perfectly
// consistent when the deltas never vary, clamped to [20, 100].
func projectionConfidence(recent []WeightEntry) float64 {
	deltas := dailyNormalizedDeltas(recent)
	if len(deltas) == 0 {
		return minConfidence
	}

	var sum, absSum float64
	for _, d := range deltas {
		sum += d
		absSum += math.Abs(d)
	}
	mean := sum / float64(len(deltas))
	meanAbs := absSum / float64(len(deltas))

	var variance float64
	for _, d := range deltas {
		diff := d - mean
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(len(deltas)))

	consistency := 1.0
	if stdDev != 0 && meanAbs != 0 {
		consistency = 1 - stdDev/meanAbs
	}

	confidence := consistency * 100
	if confidence < minConfidence {
		return minConfidence
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}

func riskForPace(weeklyRate float64) string {
	switch {
	case weeklyRate > aggressivePaceKgWeek:
		return RiskAggressive
	case weeklyRate > moderatePaceKgWeek:
		return RiskModerate
	default:
		return RiskHealthy
	}
}
