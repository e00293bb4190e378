package weightstats

import "fmt"

// PatternInsight is a human-readable observation derived from the series,
// consumed read-only by the presentation layer.
type PatternInsight struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// PatternInsights summarizes day-of-week and time-of-day patterns plus the
// overall scatter of the series. Insufficient data simply produces fewer
// insights, never an error.
func PatternInsights(entries []WeightEntry) []PatternInsight {
	var insights []PatternInsight

	if day, avg, ok := bestWeekday(entries); ok {
		insights = append(insights, PatternInsight{
			Title:  "Best day of the week",
			Detail: fmt.Sprintf("%ss are your strongest days, averaging %.2f kg/day.", day, -avg),
		})
	}

	if tod := TimeOfDay(entries); tod.DominantPeriod != PeriodMixed {
		insights = append(insights, PatternInsight{
			Title:  "Weigh-in habit",
			Detail: fmt.Sprintf("You usually weigh in during the %s.", tod.DominantPeriod),
		})
	}

	if vol := Volatility(entries); vol.StdDevDailyChange > 0.5 {
		insights = append(insights, PatternInsight{
			Title:  "High day-to-day variation",
			Detail: "Your weight swings a lot between days - daily fluctuations are mostly water, focus on the weekly trend.",
		})
	}

	return insights
}

// bestWeekday returns the weekday with the most negative average per-day
// change, requiring at least two samples for that weekday.
func bestWeekday(entries []WeightEntry) (string, float64, bool) {
	sums := map[string]float64{}
	counts := map[string]int{}
	for i, e := range entries {
		if i == 0 || e.WeekDay == "" {
			continue
		}
		sums[e.WeekDay] += e.DailyChange
		counts[e.WeekDay]++
	}

	bestDayName := ""
	bestAvg := 0.0
	for day, count := range counts {
		if count < 2 {
			continue
		}
		avg := sums[day] / float64(count)
		if avg < bestAvg {
			bestAvg = avg
			bestDayName = day
		}
	}
	if bestDayName == "" {
		return "", 0, false
	}
	return bestDayName, bestAvg, true
}
