package weightstats

import (
	"errors"
	"math"
)

// ErrNoEntries signals that statistics were requested over an empty series.
// There is no meaningful "current" state without at least one valid entry,
// so this is the one computation that fails instead of degrading.
var ErrNoEntries = errors.New("no valid weight entries")

// minDailyAvgFloor saturates the projected-end-date division when the user
// is flat or gaining (dailyAvg <= 0). A deliberate floor, not a bug: without
// it the projection divides by zero or goes to negative infinity.
const minDailyAvgFloor = 0.01

// ComputeStatistics derives the full aggregate snapshot from a derived,
// chronologically sorted series and the active goal.
func ComputeStatistics(entries []WeightEntry, goal Goal) (*Statistics, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	current := entries[len(entries)-1]
	bmi := CalculateBMI(current.Weight, goal.Height)

	totalLost := goal.StartWeight - current.Weight
	remaining := current.Weight - goal.EndWeight

	// policy for a degenerate goal (target >= start weight): progress is
	// reported as 0 instead of replicating NaN/Inf propagation
	percentageComplete := 0.0
	if totalKg := goal.TotalKilos(); totalKg > 0 {
		percentageComplete = totalLost / totalKg * 100
	}

	currentDate, _ := ParseFlexible(current.Date, zeroTime)

	// negative values are intentional here: they signal "behind start" or
	// "past deadline" to the consumer
	daysElapsed := 0
	if start, ok := ParseFlexible(goal.StartDate, zeroTime); ok {
		daysElapsed = DaysBetween(start, currentDate)
	}
	daysRemaining := 0
	if end, ok := ParseFlexible(goal.EndDate, zeroTime); ok {
		daysRemaining = DaysBetween(currentDate, end)
	}

	dailyAvg := totalLost / math.Max(float64(daysElapsed), 1)
	requiredDaily := remaining / math.Max(float64(daysRemaining), 1)

	daysNeeded := int(math.Ceil(remaining / math.Max(dailyAvg, minDailyAvgFloor)))
	projectedEnd := currentDate.AddDate(0, 0, daysNeeded)

	daysAheadBehind := goal.DurationDays() - (daysElapsed + daysNeeded)

	return &Statistics{
		Current: CurrentStats{
			Date:        current.Date,
			Weight:      current.Weight,
			BMI:         bmi,
			BMICategory: GetBMICategory(bmi),
		},
		Progress: ProgressStats{
			TotalLost:          totalLost,
			PercentageComplete: percentageComplete,
			DaysElapsed:        daysElapsed,
			DaysRemaining:      daysRemaining,
			Remaining:          remaining,
		},
		Averages: AverageStats{
			DailyLoss:   dailyAvg,
			WeeklyLoss:  dailyAvg * 7,
			MonthlyLoss: dailyAvg * 30,
		},
		Target: TargetStats{
			RequiredDailyLoss:  requiredDaily,
			RequiredWeeklyLoss: requiredDaily * 7,
			ProjectedEndDate:   projectedEnd.Format(CanonicalDateLayout),
			OnTrack:            daysAheadBehind >= 0,
			DaysAheadBehind:    daysAheadBehind,
		},
		Performance: PerformanceStats{
			BestDay:       bestDay(entries),
			BestWeek:      bestWeek(entries),
			LongestStreak: longestLossStreak(entries),
		},
	}, nil
}

// bestDay is the entry with the most negative per-day change; on ties the
// chronologically first occurrence wins.
func bestDay(entries []WeightEntry) *BestDay {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.DailyChange < best.DailyChange {
			best = e
		}
	}
	return &BestDay{Date: best.Date, DailyChange: best.DailyChange}
}

// bestWeek partitions the series into rolling buckets - a new bucket starts
// whenever the gap from the bucket's first entry reaches 7 days - and picks
// the bucket with the most weight lost (first weight minus last weight,
// maximal).
func bestWeek(entries []WeightEntry) *BestWeek {
	type bucket struct {
		first, last WeightEntry
	}

	var buckets []bucket
	cur := bucket{first: entries[0], last: entries[0]}
	curStart, _ := ParseFlexible(entries[0].Date, zeroTime)

	for _, e := range entries[1:] {
		eDate, ok := ParseFlexible(e.Date, zeroTime)
		if ok && DaysBetween(curStart, eDate) >= 7 {
			buckets = append(buckets, cur)
			cur = bucket{first: e, last: e}
			curStart = eDate
			continue
		}
		cur.last = e
	}
	buckets = append(buckets, cur)

	best := buckets[0]
	bestLoss := best.first.Weight - best.last.Weight
	for _, b := range buckets[1:] {
		if loss := b.first.Weight - b.last.Weight; loss > bestLoss {
			best = b
			bestLoss = loss
		}
	}

	return &BestWeek{
		StartDate: best.first.Date,
		EndDate:   best.last.Date,
		TotalLoss: bestLoss,
	}
}

// longestLossStreak counts the longest run of consecutive entries (not
// calendar days) where the weight strictly decreases versus the prior entry.
func longestLossStreak(entries []WeightEntry) int {
	longest, current := 0, 0
	for i := 1; i < len(entries); i++ {
		if entries[i].Weight < entries[i-1].Weight {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}
