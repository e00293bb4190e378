package weightstats

import (
	log "github.com/sirupsen/logrus"
)

// DiagnosticsSink receives records that were silently excluded from the
// working set. Dropping malformed historical rows is deliberate (one bad row
// must not block the rest of the series), but the data loss should at least
// be observable by the operator.
type DiagnosticsSink interface {
	EntryDropped(entry WeightEntry, reason string)
}

// LogDiagnostics reports dropped entries through the global logger.
type LogDiagnostics struct{}

func (LogDiagnostics) EntryDropped(entry WeightEntry, reason string) {
	log.Warnf("weight entry dropped [date: %q, weight: %.2f]: %s", entry.Date, entry.Weight, reason)
}

// NopDiagnostics discards all reports.
type NopDiagnostics struct{}

func (NopDiagnostics) EntryDropped(WeightEntry, string) {}
