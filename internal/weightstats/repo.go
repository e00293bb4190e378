package weightstats

import (
	"context"
	"errors"
	"fmt"

	"github.com/2beens/weightstats/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var (
	ErrEntryNotFound = errors.New("weight entry not found")
	ErrGoalNotSet    = errors.New("goal not set")
)

// Repo persists weight entries and the single active goal. The entry day is
// the primary key - adding an entry for an existing day overwrites it (last
// write wins). Only raw fields are stored; derived fields are recomputed on
// read and never round-trip through the database.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, entry WeightEntry) (_ *WeightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", entry.Date))

	day, ok := ToCanonicalDate(entry.Date)
	if !ok {
		return nil, fmt.Errorf("unparseable entry date: %q", entry.Date)
	}
	entry.Date = day
	entry.RecordedAt = NormalizeTimestamp(day, entry.RecordedAt)

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO weight_entry (day, weight, recorded_at)
			VALUES ($1, $2, $3)
		ON CONFLICT (day) DO UPDATE
			SET weight = EXCLUDED.weight, recorded_at = EXCLUDED.recorded_at;`,
		entry.Date, entry.Weight, nullIfEmpty(entry.RecordedAt),
	)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *Repo) Get(ctx context.Context, day string) (_ *WeightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day))

	rows, err := r.db.Query(
		ctx,
		`SELECT day, weight, recorded_at FROM weight_entry WHERE day = $1;`,
		day,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	entries, err := r.rows2entries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) != 1 {
		return nil, ErrEntryNotFound
	}

	return &entries[0], nil
}

func (r *Repo) Delete(ctx context.Context, day string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("day", day))

	tag, err := r.db.Exec(ctx, `DELETE FROM weight_entry WHERE day = $1;`, day)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// ListAll returns the raw series ordered ascending by day.
func (r *Repo) ListAll(ctx context.Context) (_ []WeightEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT day, weight, recorded_at FROM weight_entry ORDER BY day ASC;`,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	entries, err := r.rows2entries(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2entries: %w", err)
	}
	return entries, nil
}

func (r *Repo) GetGoal(ctx context.Context) (_ *Goal, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.getgoal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT start_date, start_weight, end_date, end_weight, height
			FROM goal WHERE id = 1;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrGoalNotSet
	}

	var g Goal
	if err := rows.Scan(&g.StartDate, &g.StartWeight, &g.EndDate, &g.EndWeight, &g.Height); err != nil {
		return nil, fmt.Errorf("rows scan: %w", err)
	}

	// denormalized fields are derived, never read back from storage
	g.TotalDuration = g.DurationDays()
	g.TotalKg = g.TotalKilos()

	return &g, nil
}

// SetGoal replaces the single active goal wholesale. No history is retained.
func (r *Repo) SetGoal(ctx context.Context, goal Goal) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.setgoal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO goal (id, start_date, start_weight, end_date, end_weight, height)
			VALUES (1, $1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
			SET start_date = EXCLUDED.start_date,
				start_weight = EXCLUDED.start_weight,
				end_date = EXCLUDED.end_date,
				end_weight = EXCLUDED.end_weight,
				height = EXCLUDED.height;`,
		goal.StartDate, goal.StartWeight, goal.EndDate, goal.EndWeight, goal.Height,
	)
	return err
}

func (r *Repo) EntriesCount(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.weightstats.count")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `SELECT COUNT(*) FROM weight_entry;`)
	if err != nil {
		return -1, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return -1, err
	}

	if rows.Next() {
		var count int
		if err := rows.Scan(&count); err == nil {
			return count, nil
		}
	}

	return -1, errors.New("unexpected error, failed to get entries count")
}

func (r *Repo) rows2entries(rows pgx.Rows) ([]WeightEntry, error) {
	var entries []WeightEntry
	for rows.Next() {
		var day string
		var weight float64
		var recordedAt *string
		if err := rows.Scan(&day, &weight, &recordedAt); err != nil {
			return nil, err
		}

		e := WeightEntry{
			Date:   day,
			Weight: weight,
		}
		if recordedAt != nil {
			e.RecordedAt = *recordedAt
		}
		entries = append(entries, e)
	}

	if entries == nil {
		entries = make([]WeightEntry, 0)
	}

	return entries, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
