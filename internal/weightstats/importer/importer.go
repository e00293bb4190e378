package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/weightstats/internal/weightstats"
)

// MissingColumnsError is the one import failure surfaced loudly: a sheet
// without the mandatory columns is a setup error the user has to fix,
// not noisy data to skip.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("import schema invalid, missing mandatory columns: %s", strings.Join(e.Columns, ", "))
}

const (
	StateRunning = "running"
	StateDone    = "done"
	StateFailed  = "failed"
)

type Status struct {
	State        string `json:"state"`
	RowsTotal    int    `json:"rowsTotal"`
	RowsImported int    `json:"rowsImported"`
	RowsDropped  int    `json:"rowsDropped"`
}

type StatusListener interface {
	ImportStatusChanged(status Status)
}

// StatusRegistry fans import status changes out to registered listeners.
// Passed by reference to every interested party so tests and multiple
// consumers never share hidden package state.
type StatusRegistry struct {
	mu        sync.Mutex
	listeners []StatusListener
	last      Status
}

func NewStatusRegistry() *StatusRegistry {
	return &StatusRegistry{}
}

func (r *StatusRegistry) Register(listener StatusListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *StatusRegistry) Publish(status Status) {
	r.mu.Lock()
	r.last = status
	listeners := make([]StatusListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, l := range listeners {
		l.ImportStatusChanged(status)
	}
}

func (r *StatusRegistry) Last() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type entriesAdder interface {
	Add(ctx context.Context, entry weightstats.WeightEntry) (*weightstats.WeightEntry, error)
}

// Importer ingests header-mapped spreadsheet exports. Columns may come in
// any order; header names are matched after normalization. Date and Weight
// are mandatory, everything else is optional. Rows that fail to parse are
// dropped and reported, they never abort the import.
type Importer struct {
	repo     entriesAdder
	diag     weightstats.DiagnosticsSink
	registry *StatusRegistry
}

func New(repo entriesAdder, diag weightstats.DiagnosticsSink, registry *StatusRegistry) *Importer {
	if diag == nil {
		diag = weightstats.LogDiagnostics{}
	}
	if registry == nil {
		registry = NewStatusRegistry()
	}
	return &Importer{
		repo:     repo,
		diag:     diag,
		registry: registry,
	}
}

const (
	columnDate       = "date"
	columnWeight     = "weight"
	columnRecordedAt = "recordedat"
)

// normalizeHeader folds a raw header cell to its canonical column name.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(h)
	switch h {
	case "date", "day":
		return columnDate
	case "weight", "weightkg", "kg":
		return columnWeight
	case "recordedat", "timestamp", "time":
		return columnRecordedAt
	}
	return h
}

// ImportCSV reads the whole sheet and upserts every parseable row. Returns
// the final status; the returned error is nil for row-level failures (those
// are dropped and counted), non-nil only for schema or storage failures.
func (im *Importer) ImportCSV(ctx context.Context, reader io.Reader) (Status, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1
	csvReader.TrimLeadingSpace = true

	header, err := csvReader.Read()
	if err != nil {
		im.registry.Publish(Status{State: StateFailed})
		return Status{State: StateFailed}, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		columns[normalizeHeader(h)] = i
	}

	var missing []string
	for _, mandatory := range []string{columnDate, columnWeight} {
		if _, ok := columns[mandatory]; !ok {
			missing = append(missing, mandatory)
		}
	}
	if len(missing) > 0 {
		im.registry.Publish(Status{State: StateFailed})
		return Status{State: StateFailed}, &MissingColumnsError{Columns: missing}
	}

	status := Status{State: StateRunning}
	im.registry.Publish(status)

	var rowErrs error
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			im.registry.Publish(Status{State: StateFailed})
			return Status{State: StateFailed}, fmt.Errorf("read row: %w", err)
		}
		status.RowsTotal++

		entry, rowErr := im.rowToEntry(row, columns)
		if rowErr != nil {
			rowErrs = multierr.Append(rowErrs, fmt.Errorf("row %d: %w", status.RowsTotal, rowErr))
			im.diag.EntryDropped(entry, rowErr.Error())
			status.RowsDropped++
			continue
		}

		if _, err := im.repo.Add(ctx, entry); err != nil {
			status.State = StateFailed
			im.registry.Publish(status)
			return status, fmt.Errorf("store row %d: %w", status.RowsTotal, err)
		}
		status.RowsImported++
	}

	if rowErrs != nil {
		log.Warnf("import finished with dropped rows: %s", rowErrs)
	}

	status.State = StateDone
	im.registry.Publish(status)
	log.Debugf(
		"import done: %d rows, %d imported, %d dropped",
		status.RowsTotal, status.RowsImported, status.RowsDropped,
	)
	return status, nil
}

func (im *Importer) rowToEntry(row []string, columns map[string]int) (weightstats.WeightEntry, error) {
	cell := func(column string) string {
		idx, ok := columns[column]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	entry := weightstats.WeightEntry{
		Date: cell(columnDate),
	}

	day, ok := weightstats.ToCanonicalDate(entry.Date)
	if !ok {
		return entry, fmt.Errorf("unparseable date %q", entry.Date)
	}
	entry.Date = day

	weightRaw := cell(columnWeight)
	weight, err := strconv.ParseFloat(strings.ReplaceAll(weightRaw, ",", "."), 64)
	if err != nil {
		return entry, fmt.Errorf("unparseable weight %q", weightRaw)
	}
	if weight <= 0 {
		return entry, fmt.Errorf("non-positive weight %q", weightRaw)
	}
	entry.Weight = weight

	if recordedAt := cell(columnRecordedAt); recordedAt != "" {
		entry.RecordedAt = weightstats.NormalizeTimestamp(day, recordedAt)
	}

	return entry, nil
}
