package weightstats

import (
	"sort"
)

// Sanitize drops entries whose date cannot be parsed by any strategy and
// reports each drop to the sink. Filtering instead of failing is deliberate:
// malformed historical rows must not block the rest of the series from
// loading.
func Sanitize(entries []WeightEntry, diag DiagnosticsSink) []WeightEntry {
	if diag == nil {
		diag = NopDiagnostics{}
	}
	valid := make([]WeightEntry, 0, len(entries))
	for _, e := range entries {
		if _, ok := ParseFlexible(e.Date, zeroTime); !ok {
			diag.EntryDropped(e, "unparseable date")
			continue
		}
		valid = append(valid, e)
	}
	return valid
}

// DeriveAll sorts the series chronologically and recomputes every derived
// field from weight and date alone, ignoring whatever derived values the
// input carried. The first entry gets zero deltas (no prior baseline).
// Deriving an already-derived series yields the same output.
func DeriveAll(entries []WeightEntry) []WeightEntry {
	derived := make([]WeightEntry, len(entries))
	copy(derived, entries)
	sortChronologically(derived)

	for i := range derived {
		date, dateOK := ParseFlexible(derived[i].Date, zeroTime)
		if dateOK {
			derived[i].Date = date.Format(CanonicalDateLayout)
			derived[i].WeekDay = date.Weekday().String()
		}

		if i == 0 {
			derived[i].ChangeKg = 0
			derived[i].ChangePercent = 0
			derived[i].DailyChange = 0
			continue
		}

		prev := derived[i-1]
		changeKg := derived[i].Weight - prev.Weight
		derived[i].ChangeKg = changeKg

		if prev.Weight != 0 {
			derived[i].ChangePercent = changeKg / prev.Weight * 100
		} else {
			derived[i].ChangePercent = 0
		}

		// floor the day count at 1 so same-day re-entries cannot blow up
		// the per-day rate
		days := 1
		if prevDate, ok := ParseFlexible(prev.Date, zeroTime); ok && dateOK {
			if d := DaysBetween(prevDate, date); d > days {
				days = d
			}
		}
		derived[i].DailyChange = changeKg / float64(days)
	}

	return derived
}

// sortChronologically orders entries ascending by parsed date, falling back
// to a plain string comparison when a date resists parsing - never failing.
func sortChronologically(entries []WeightEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ti, okI := ParseFlexible(entries[i].Date, zeroTime)
		tj, okJ := ParseFlexible(entries[j].Date, zeroTime)
		if okI && okJ {
			return ti.Before(tj)
		}
		return entries[i].Date < entries[j].Date
	})
}

// avgDailyLoss returns the average daily weight loss (positive = losing)
// over a window, zero when the window spans zero days.
func avgDailyLoss(window []WeightEntry) float64 {
	if len(window) < 2 {
		return 0
	}
	first := window[0]
	last := window[len(window)-1]
	firstDate, okF := ParseFlexible(first.Date, zeroTime)
	lastDate, okL := ParseFlexible(last.Date, zeroTime)
	if !okF || !okL {
		return 0
	}
	days := DaysBetween(firstDate, lastDate)
	if days == 0 {
		return 0
	}
	return (first.Weight - last.Weight) / float64(days)
}
