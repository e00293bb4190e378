package weightstats

import "time"

// EntryStreak returns the current run of consecutive calendar days with at
// least one observation, counted over unique canonical days. A streak is
// broken - not just stale - once the most recent logged day lies more than
// one day before "today", in which case it reports 0.
func EntryStreak(entries []WeightEntry, clock Clock) int {
	if clock == nil {
		clock = SystemClock
	}

	days := make(map[string]bool, len(entries))
	var latest time.Time
	for _, e := range entries {
		day, ok := ToCanonicalDate(e.Date)
		if !ok {
			day, ok = ToCanonicalDate(e.RecordedAt)
		}
		if !ok {
			continue
		}
		days[day] = true
		if t, parsed := ParseFlexible(day, zeroTime); parsed && t.After(latest) {
			latest = t
		}
	}

	if len(days) == 0 {
		return 0
	}

	if DaysBetween(latest, clock.Now()) > 1 {
		return 0
	}

	streak := 0
	for day := latest; days[day.Format(CanonicalDateLayout)]; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}
