package weightstats

import (
	"context"
	"fmt"

	"github.com/2beens/weightstats/internal/telemetry/tracing"
)

type entriesRepo interface {
	ListAll(ctx context.Context) ([]WeightEntry, error)
	GetGoal(ctx context.Context) (*Goal, error)
}

// Analyzer loads the entry series plus the goal and runs the derived
// statistics over them. Every method recomputes from scratch on a fresh
// snapshot - nothing is retained between calls, so concurrent use needs no
// coordination.
type Analyzer struct {
	repo  entriesRepo
	clock Clock
	diag  DiagnosticsSink
}

func NewAnalyzer(repo entriesRepo, clock Clock, diag DiagnosticsSink) *Analyzer {
	if clock == nil {
		clock = SystemClock
	}
	if diag == nil {
		diag = LogDiagnostics{}
	}
	return &Analyzer{
		repo:  repo,
		clock: clock,
		diag:  diag,
	}
}

// loadDerived fetches the raw series, silently filters unparseable rows
// (reported to the diagnostics sink) and recomputes all derived fields.
func (a *Analyzer) loadDerived(ctx context.Context) ([]WeightEntry, error) {
	entries, err := a.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return DeriveAll(Sanitize(entries, a.diag)), nil
}

func (a *Analyzer) loadGoal(ctx context.Context) (Goal, error) {
	goal, err := a.repo.GetGoal(ctx)
	if err != nil {
		return Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return *goal, nil
}

func (a *Analyzer) Statistics(ctx context.Context) (_ *Statistics, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.statistics")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return nil, err
	}
	goal, err := a.loadGoal(ctx)
	if err != nil {
		return nil, err
	}
	return ComputeStatistics(entries, goal)
}

func (a *Analyzer) Trend(ctx context.Context) (_ TrendAnalysis, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.trend")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return TrendAnalysis{}, err
	}
	return AnalyzeTrend(entries), nil
}

func (a *Analyzer) MovingAverages(ctx context.Context) (_ []MovingAveragePoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.movingavg")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return nil, err
	}
	return MovingAverages(entries), nil
}

func (a *Analyzer) Consistency(ctx context.Context) (_ ConsistencyStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.consistency")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return ConsistencyStats{}, err
	}
	goal, err := a.loadGoal(ctx)
	if err != nil {
		return ConsistencyStats{}, err
	}
	return Consistency(entries, goal.StartDate, a.clock), nil
}

func (a *Analyzer) WeeklyDeltas(ctx context.Context) (_ []WeeklyDelta, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.weeklydeltas")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return nil, err
	}
	return WeeklyDeltas(entries), nil
}

func (a *Analyzer) Volatility(ctx context.Context) (_ VolatilityStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.volatility")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return VolatilityStats{}, err
	}
	return Volatility(entries), nil
}

func (a *Analyzer) TimeOfDay(ctx context.Context) (_ TimeOfDayStats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.timeofday")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return TimeOfDayStats{}, err
	}
	return TimeOfDay(entries), nil
}

func (a *Analyzer) Anomalies(ctx context.Context) (_ []Anomaly, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.anomalies")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return nil, err
	}
	return DetectAnomalies(entries), nil
}

func (a *Analyzer) ChangePoint(ctx context.Context) (_ *ChangePointInsight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.changepoint")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return nil, err
	}
	return DetectChangePoint(entries), nil
}

func (a *Analyzer) Streak(ctx context.Context) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.streak")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return 0, err
	}
	return EntryStreak(entries, a.clock), nil
}

func (a *Analyzer) Projection(ctx context.Context) (_ PredictiveAnalysis, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.projection")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return PredictiveAnalysis{}, err
	}
	goal, err := a.loadGoal(ctx)
	if err != nil {
		return PredictiveAnalysis{}, err
	}
	return Project(entries, goal, a.clock), nil
}

func (a *Analyzer) Insights(ctx context.Context) (_ []PatternInsight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analyzer.weightstats.insights")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	entries, err := a.loadDerived(ctx)
	if err != nil {
		return nil, err
	}
	return PatternInsights(entries), nil
}
