package weightstats

import (
	"fmt"
	"math"
	"time"
)

type ConsistencyStats struct {
	TrackedDays        int     `json:"trackedDays"`
	TotalDays          int     `json:"totalDays"`
	ConsistencyPercent float64 `json:"consistencyPercent"`
	// LongestGap is the largest number of fully missed days strictly
	// between two logged days.
	LongestGap int `json:"longestGap"`
}

// Consistency reports how regularly the user has been logging since
// startDate, anchored at the injected clock's "today".
func Consistency(entries []WeightEntry, startDate string, clock Clock) ConsistencyStats {
	if clock == nil {
		clock = SystemClock
	}

	totalDays := 1
	if start, ok := ParseFlexible(startDate, zeroTime); ok {
		if d := DaysBetween(start, clock.Now()) + 1; d > 1 {
			totalDays = d
		}
	}

	longestGap := 0
	for i := 1; i < len(entries); i++ {
		prev, okPrev := ParseFlexible(entries[i-1].Date, zeroTime)
		cur, okCur := ParseFlexible(entries[i].Date, zeroTime)
		if !okPrev || !okCur {
			continue
		}
		if gap := DaysBetween(prev, cur) - 1; gap > longestGap {
			longestGap = gap
		}
	}

	return ConsistencyStats{
		TrackedDays:        len(entries),
		TotalDays:          totalDays,
		ConsistencyPercent: float64(len(entries)) / float64(totalDays) * 100,
		LongestGap:         longestGap,
	}
}

// WeeklyDelta is the weight change within one Sunday-start calendar week
// (true calendar alignment, unlike the rolling best-week buckets).
type WeeklyDelta struct {
	WeekStart string  `json:"weekStart"`
	WeekEnd   string  `json:"weekEnd"`
	Label     string  `json:"label"`
	ChangeKg  float64 `json:"changeKg"`
}

// WeeklyDeltas groups the series into Sunday-start weeks and reports the
// first-to-last weight change per week. A week with a single entry has a
// zero change.
func WeeklyDeltas(entries []WeightEntry) []WeeklyDelta {
	type weekAgg struct {
		start       time.Time
		first, last WeightEntry
	}

	var weeks []*weekAgg
	byStart := make(map[string]*weekAgg)

	for _, e := range entries {
		date, ok := ParseFlexible(e.Date, zeroTime)
		if !ok {
			continue
		}
		weekStart := date.AddDate(0, 0, -int(date.Weekday()))
		key := weekStart.Format(CanonicalDateLayout)

		agg, seen := byStart[key]
		if !seen {
			agg = &weekAgg{start: weekStart, first: e, last: e}
			byStart[key] = agg
			weeks = append(weeks, agg)
			continue
		}
		agg.last = e
	}

	deltas := make([]WeeklyDelta, 0, len(weeks))
	for _, w := range weeks {
		weekEnd := w.start.AddDate(0, 0, 6)
		deltas = append(deltas, WeeklyDelta{
			WeekStart: w.start.Format(CanonicalDateLayout),
			WeekEnd:   weekEnd.Format(CanonicalDateLayout),
			Label:     fmt.Sprintf("%s - %s", w.start.Format("Jan 2"), weekEnd.Format("Jan 2")),
			ChangeKg:  w.first.Weight - w.last.Weight,
		})
	}
	return deltas
}

type VolatilityStats struct {
	AverageDailyChange    float64 `json:"averageDailyChange"`
	StdDevDailyChange     float64 `json:"stdDevDailyChange"`
	AverageAbsoluteChange float64 `json:"averageAbsoluteChange"`
}

// Volatility measures day-to-day scatter: per adjacent pair the weight delta
// is normalized by the days between them (floored at 1), then the mean,
// population standard deviation and mean absolute value are reported.
// Fewer than two entries yield the zero struct.
func Volatility(entries []WeightEntry) VolatilityStats {
	deltas := dailyNormalizedDeltas(entries)
	if len(deltas) == 0 {
		return VolatilityStats{}
	}

	var sum, absSum float64
	for _, d := range deltas {
		sum += d
		absSum += math.Abs(d)
	}
	mean := sum / float64(len(deltas))

	var variance float64
	for _, d := range deltas {
		diff := d - mean
		variance += diff * diff
	}
	variance /= float64(len(deltas))

	return VolatilityStats{
		AverageDailyChange:    mean,
		StdDevDailyChange:     math.Sqrt(variance),
		AverageAbsoluteChange: absSum / float64(len(deltas)),
	}
}

func dailyNormalizedDeltas(entries []WeightEntry) []float64 {
	if len(entries) < 2 {
		return nil
	}
	deltas := make([]float64, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		days := 1
		prev, okPrev := ParseFlexible(entries[i-1].Date, zeroTime)
		cur, okCur := ParseFlexible(entries[i].Date, zeroTime)
		if okPrev && okCur {
			if d := DaysBetween(prev, cur); d > 1 {
				days = d
			}
		}
		deltas = append(deltas, (entries[i].Weight-entries[i-1].Weight)/float64(days))
	}
	return deltas
}

const (
	PeriodMorning   = "morning"
	PeriodAfternoon = "afternoon"
	PeriodEvening   = "evening"
	PeriodNight     = "night"
	PeriodMixed     = "mixed"
)

// dominantPeriodMinEntries guards against declaring a dominant weigh-in
// period from too thin a sample.
const dominantPeriodMinEntries = 3

type TimeOfDayStats struct {
	MorningAvg     float64 `json:"morningAvg"`
	AfternoonAvg   float64 `json:"afternoonAvg"`
	EveningAvg     float64 `json:"eveningAvg"`
	NightAvg       float64 `json:"nightAvg"`
	DominantPeriod string  `json:"dominantPeriod"`
}

// TimeOfDay buckets entries carrying a recorded-at timestamp into four fixed
// local-hour windows: morning [5,11), afternoon [11,16), evening [16,22) and
// night [22,5). Entries without a timestamp are excluded entirely, not
// defaulted into any bucket.
func TimeOfDay(entries []WeightEntry) TimeOfDayStats {
	sums := map[string]float64{}
	counts := map[string]int{}

	for _, e := range entries {
		hour, ok := recordedAtHour(e.RecordedAt)
		if !ok {
			continue
		}
		period := periodForHour(hour)
		sums[period] += e.Weight
		counts[period]++
	}

	avg := func(period string) float64 {
		if counts[period] == 0 {
			return 0
		}
		return sums[period] / float64(counts[period])
	}

	dominant := PeriodMixed
	dominantCount := 0
	for _, period := range []string{PeriodMorning, PeriodAfternoon, PeriodEvening, PeriodNight} {
		if counts[period] > dominantCount {
			dominant = period
			dominantCount = counts[period]
		}
	}
	if dominantCount < dominantPeriodMinEntries {
		dominant = PeriodMixed
	}

	return TimeOfDayStats{
		MorningAvg:     avg(PeriodMorning),
		AfternoonAvg:   avg(PeriodAfternoon),
		EveningAvg:     avg(PeriodEvening),
		NightAvg:       avg(PeriodNight),
		DominantPeriod: dominant,
	}
}

func periodForHour(hour int) string {
	switch {
	case hour >= 5 && hour < 11:
		return PeriodMorning
	case hour >= 11 && hour < 16:
		return PeriodAfternoon
	case hour >= 16 && hour < 22:
		return PeriodEvening
	default:
		return PeriodNight
	}
}
