package weightstats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/weightstats/internal/weightstats"
)

func TestToCanonicalDate_SpreadsheetSerials(t *testing.T) {
	for name, tc := range map[string]struct {
		input    any
		expected string
	}{
		"serial-one": {
			input:    1,
			expected: "1899-12-31",
		},
		"serial-unix-epoch": {
			input:    25569,
			expected: "1970-01-01",
		},
		"serial-recent": {
			input:    45000,
			expected: "2023-03-15",
		},
		"serial-as-float": {
			input:    45000.0,
			expected: "2023-03-15",
		},
		"serial-as-string": {
			input:    "45000",
			expected: "2023-03-15",
		},
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := weightstats.ToCanonicalDate(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestToCanonicalDate_Strings(t *testing.T) {
	for name, tc := range map[string]struct {
		input    string
		expected string
	}{
		"iso-date": {
			input:    "2024-03-05",
			expected: "2024-03-05",
		},
		"iso-with-time": {
			input:    "2024-03-05T08:30:00",
			expected: "2024-03-05",
		},
		"dotted-day-first": {
			input:    "05.03.2024",
			expected: "2024-03-05",
		},
		"dotted-short": {
			input:    "5.3.2024",
			expected: "2024-03-05",
		},
		"dashed-day-first": {
			input:    "05-03-2024",
			expected: "2024-03-05",
		},
		"slashed-day-first": {
			input:    "05/03/2024",
			expected: "2024-03-05",
		},
		"date-with-trailing-text": {
			input:    "05.03.2024 some note",
			expected: "2024-03-05",
		},
		"slash-year-first": {
			input:    "2024/03/05",
			expected: "2024-03-05",
		},
		"written-out": {
			input:    "Mar 5, 2024",
			expected: "2024-03-05",
		},
		"surrounding-whitespace": {
			input:    "  2024-03-05  ",
			expected: "2024-03-05",
		},
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := weightstats.ToCanonicalDate(tc.input)
			require.True(t, ok)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestToCanonicalDate_Rejected(t *testing.T) {
	for name, input := range map[string]any{
		"empty-string":      "",
		"garbage":           "not a date at all",
		"nil":               nil,
		"serial-too-large":  400000,
		"serial-below-min":  -30000,
		"unsupported-type":  struct{}{},
		"zero-time":         time.Time{},
		"whitespace-string": "   ",
	} {
		t.Run(name, func(t *testing.T) {
			_, ok := weightstats.ToCanonicalDate(input)
			assert.False(t, ok)
		})
	}
}

func TestParseFlexible_TimeOnly(t *testing.T) {
	ref := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	got, ok := weightstats.ParseFlexible("08:30", ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 8, 30, 0, 0, time.UTC), got)

	got, ok = weightstats.ParseFlexible("22:15:42", ref)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 22, 15, 42, 0, time.UTC), got)
}

func TestParseFlexible_TimeValuesPassThrough(t *testing.T) {
	now := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	got, ok := weightstats.ParseFlexible(now, time.Time{})
	require.True(t, ok)
	assert.Equal(t, now, got)

	got, ok = weightstats.ParseFlexible(&now, time.Time{})
	require.True(t, ok)
	assert.Equal(t, now, got)

	var nilTime *time.Time
	_, ok = weightstats.ParseFlexible(nilTime, time.Time{})
	assert.False(t, ok)
}

func TestNormalizeTimestamp(t *testing.T) {
	for name, tc := range map[string]struct {
		dateISO  string
		raw      any
		expected string
	}{
		"time-only-spliced-onto-day": {
			dateISO:  "2024-03-05",
			raw:      "08:30",
			expected: "2024-03-05T08:30:00",
		},
		"full-timestamp-kept": {
			dateISO:  "2024-03-05",
			raw:      "2024-03-04T23:55:00",
			expected: "2024-03-04T23:55:00",
		},
		"serial-with-fraction": {
			dateISO:  "2023-03-15",
			raw:      45000.5,
			expected: "2023-03-15T12:00:00",
		},
		"absent": {
			dateISO:  "2024-03-05",
			raw:      nil,
			expected: "",
		},
		"empty-string": {
			dateISO:  "2024-03-05",
			raw:      "   ",
			expected: "",
		},
		"garbage": {
			dateISO:  "2024-03-05",
			raw:      "somewhere around noon",
			expected: "",
		},
		"time-only-with-bad-day": {
			dateISO:  "not-a-day",
			raw:      "08:30",
			expected: "",
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, weightstats.NormalizeTimestamp(tc.dateISO, tc.raw))
		})
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 1, 15, 0, 1, 0, 0, time.UTC)

	// whole calendar days, time of day ignored
	assert.Equal(t, 14, weightstats.DaysBetween(a, b))
	assert.Equal(t, -14, weightstats.DaysBetween(b, a))
	assert.Equal(t, 0, weightstats.DaysBetween(a, a))
}
