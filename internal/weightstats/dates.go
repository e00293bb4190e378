package weightstats

import (
	"strconv"
	"strings"
	"time"
)

const (
	// CanonicalDateLayout is the YYYY-MM-DD form every comparison uses.
	CanonicalDateLayout = "2006-01-02"

	timestampLayout = "2006-01-02T15:04:05"

	// excelEpochOffsetDays is the number of days between the spreadsheet
	// serial date epoch (1899-12-30) and the Unix epoch. Serial 25569 is
	// 1970-01-01, serial 1 is 1899-12-31. Imported Sheets data relies on
	// this exact offset.
	excelEpochOffsetDays = 25569

	millisPerDay = 24 * 60 * 60 * 1000
)

var zeroTime time.Time

// Clock provides the "now" anchor for streak / consistency / projection
// calculations, injectable so tests stay deterministic.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall-clock default.
var SystemClock Clock = systemClock{}

// ClockAt returns a Clock frozen at the given instant.
func ClockAt(t time.Time) Clock { return fixedClock{t} }

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// isoLayouts cover ISO-8601 strings with or without a time component.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// datePatterns is the explicit fallback list, tried in this fixed priority
// order against the date portion only (text after a space is discarded).
var datePatterns = []string{
	"02.01.2006",
	"2.1.2006",
	"02-01-2006",
	"2-1-2006",
	"02/01/2006",
	"2/1/2006",
	"2006-01-02",
}

// lastResortLayouts approximate what a native date constructor would still
// accept after every explicit strategy has failed.
var lastResortLayouts = []string{
	time.RFC1123,
	time.RFC1123Z,
	time.RFC822,
	time.ANSIC,
	time.UnixDate,
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

// ParseFlexible reconciles the heterogeneous date representations seen in
// manual input, voice transcription and imported spreadsheet cells:
// time values, numeric spreadsheet serial dates, ISO-8601 strings, bare
// time-of-day strings (combined with ref, or "now" when ref is zero) and a
// fixed list of explicit day-first patterns. It never fails loudly - the
// second return value is false when nothing could be made of the input, and
// the caller decides what to do about it.
func ParseFlexible(value any, ref time.Time) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return zeroTime, false
	case time.Time:
		if v.IsZero() {
			return zeroTime, false
		}
		return v, true
	case *time.Time:
		if v == nil || v.IsZero() {
			return zeroTime, false
		}
		return *v, true
	case float64:
		return serialToTime(v)
	case float32:
		return serialToTime(float64(v))
	case int:
		return serialToTime(float64(v))
	case int64:
		return serialToTime(float64(v))
	case string:
		return parseFlexibleString(v, ref)
	default:
		return zeroTime, false
	}
}

func parseFlexibleString(s string, ref time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return zeroTime, false
	}

	// numeric strings are treated as spreadsheet serials
	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return serialToTime(serial)
	}

	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	if isTimeOnly(s) {
		if ref.IsZero() {
			ref = time.Now()
		}
		return combineDayAndTime(ref, s)
	}

	// explicit patterns are matched against the date portion only
	datePart := s
	if idx := strings.IndexByte(datePart, ' '); idx > 0 {
		datePart = datePart[:idx]
	}
	for _, layout := range datePatterns {
		if t, err := time.Parse(layout, datePart); err == nil {
			return t, true
		}
	}

	for _, layout := range lastResortLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return zeroTime, false
}

// serialToTime converts a spreadsheet serial date (fractional part carries
// the time of day) into a UTC time.
func serialToTime(serial float64) (time.Time, bool) {
	// serials far outside the plausible range are rejected rather than
	// silently producing dates in the distant past or future
	if serial < -excelEpochOffsetDays || serial > 200000 {
		return zeroTime, false
	}
	ms := (serial - excelEpochOffsetDays) * millisPerDay
	return time.UnixMilli(int64(ms)).UTC(), true
}

func isTimeOnly(s string) bool {
	parts := strings.Split(s, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
		if _, err := strconv.Atoi(p); err != nil {
			return false
		}
	}
	return true
}

func combineDayAndTime(day time.Time, timeStr string) (time.Time, bool) {
	var parsed time.Time
	var err error
	if strings.Count(timeStr, ":") == 2 {
		parsed, err = time.Parse("15:04:05", timeStr)
	} else {
		parsed, err = time.Parse("15:04", timeStr)
	}
	if err != nil {
		return zeroTime, false
	}
	return time.Date(
		day.Year(), day.Month(), day.Day(),
		parsed.Hour(), parsed.Minute(), parsed.Second(), 0,
		day.Location(),
	), true
}

// ToCanonicalDate parses the value flexibly and formats it as YYYY-MM-DD.
func ToCanonicalDate(value any) (string, bool) {
	t, ok := ParseFlexible(value, zeroTime)
	if !ok {
		return "", false
	}
	return t.Format(CanonicalDateLayout), true
}

// NormalizeTimestamp reconciles a recorded-at value against its owning day:
// a value carrying both date and time is re-serialized as is, a time-only
// value is spliced onto dateISO. Returns "" when the value is absent or
// cannot be parsed.
func NormalizeTimestamp(dateISO string, raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return ""
		}
		if isTimeOnly(s) {
			day, ok := ParseFlexible(dateISO, zeroTime)
			if !ok {
				return ""
			}
			combined, ok := combineDayAndTime(day, s)
			if !ok {
				return ""
			}
			return combined.Format(timestampLayout)
		}
		t, ok := ParseFlexible(s, zeroTime)
		if !ok {
			return ""
		}
		return t.Format(timestampLayout)
	default:
		t, ok := ParseFlexible(raw, zeroTime)
		if !ok {
			return ""
		}
		return t.Format(timestampLayout)
	}
}

// DaysBetween returns the number of whole calendar days from a to b,
// negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	aDay := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDay := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bDay.Sub(aDay).Hours() / 24)
}

// recordedAtHour extracts the local hour from a normalized recorded-at
// string, false when the value is absent or carries no time component.
func recordedAtHour(recordedAt string) (int, bool) {
	if recordedAt == "" {
		return 0, false
	}
	if !strings.ContainsRune(recordedAt, 'T') {
		return 0, false
	}
	t, ok := ParseFlexible(recordedAt, zeroTime)
	if !ok {
		return 0, false
	}
	return t.Hour(), true
}
