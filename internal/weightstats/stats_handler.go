package weightstats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/weightstats/internal/telemetry/tracing"
	"github.com/2beens/weightstats/pkg"
)

const (
	megabyte         = 1024 * 1024
	statsCacheSize   = 10 * megabyte
	statsCacheExpire = 5 * time.Minute
)

// NewStatsCache creates the response cache shared between the stats handler
// (reads) and the CRUD handler / importer (invalidation on writes).
func NewStatsCache() *freecache.Cache {
	return freecache.NewCache(statsCacheSize)
}

type StreakResponse struct {
	StreakDays int `json:"streakDays"`
}

// StatsHandler serves the analytics endpoints. Every result is recomputed
// from the full series, so responses are cached until the next write.
type StatsHandler struct {
	analyzer *Analyzer
	cache    *freecache.Cache
}

func NewStatsHandler(analyzer *Analyzer, cache *freecache.Cache) *StatsHandler {
	return &StatsHandler{
		analyzer: analyzer,
		cache:    cache,
	}
}

// respondCached serves the cached response for the given key, or computes,
// caches and serves it. Compute errors are translated to client errors for
// the expected empty-data cases.
func (handler *StatsHandler) respondCached(
	w http.ResponseWriter,
	ctx context.Context,
	cacheKey string,
	compute func(ctx context.Context) (any, error),
) {
	key := []byte(cacheKey)
	if handler.cache != nil {
		if cached, err := handler.cache.Get(key); err == nil {
			log.Tracef("stats cache hit: %s", cacheKey)
			pkg.WriteResponseBytes(w, pkg.ContentType.JSON, cached, http.StatusOK)
			return
		}
	}

	result, err := compute(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoEntries):
			http.Error(w, "no weight entries yet", http.StatusBadRequest)
		case errors.Is(err, ErrGoalNotSet):
			http.Error(w, "goal not set", http.StatusBadRequest)
		default:
			log.Errorf("failed to compute %s: %s", cacheKey, err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
		}
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal %s response: %s", cacheKey, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if handler.cache != nil {
		if err := handler.cache.Set(key, resultJson, int(statsCacheExpire.Seconds())); err != nil {
			log.Errorf("failed to cache %s response: %s", cacheKey, err)
		}
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, resultJson, http.StatusOK)
}

func (handler *StatsHandler) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.statistics")
	defer span.End()
	handler.respondCached(w, ctx, "stats::statistics", func(ctx context.Context) (any, error) {
		return handler.analyzer.Statistics(ctx)
	})
}

func (handler *StatsHandler) HandleTrend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.trend")
	defer span.End()
	handler.respondCached(w, ctx, "stats::trend", func(ctx context.Context) (any, error) {
		return handler.analyzer.Trend(ctx)
	})
}

func (handler *StatsHandler) HandleMovingAverages(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.movingavg")
	defer span.End()
	handler.respondCached(w, ctx, "stats::movingavg", func(ctx context.Context) (any, error) {
		return handler.analyzer.MovingAverages(ctx)
	})
}

func (handler *StatsHandler) HandleConsistency(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.consistency")
	defer span.End()
	handler.respondCached(w, ctx, "stats::consistency", func(ctx context.Context) (any, error) {
		return handler.analyzer.Consistency(ctx)
	})
}

func (handler *StatsHandler) HandleWeeklyDeltas(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.weekly")
	defer span.End()
	handler.respondCached(w, ctx, "stats::weekly", func(ctx context.Context) (any, error) {
		return handler.analyzer.WeeklyDeltas(ctx)
	})
}

func (handler *StatsHandler) HandleVolatility(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.volatility")
	defer span.End()
	handler.respondCached(w, ctx, "stats::volatility", func(ctx context.Context) (any, error) {
		return handler.analyzer.Volatility(ctx)
	})
}

func (handler *StatsHandler) HandleTimeOfDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.timeofday")
	defer span.End()
	handler.respondCached(w, ctx, "stats::timeofday", func(ctx context.Context) (any, error) {
		return handler.analyzer.TimeOfDay(ctx)
	})
}

func (handler *StatsHandler) HandleAnomalies(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.anomalies")
	defer span.End()
	handler.respondCached(w, ctx, "stats::anomalies", func(ctx context.Context) (any, error) {
		return handler.analyzer.Anomalies(ctx)
	})
}

func (handler *StatsHandler) HandleChangePoint(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.changepoint")
	defer span.End()
	handler.respondCached(w, ctx, "stats::changepoint", func(ctx context.Context) (any, error) {
		return handler.analyzer.ChangePoint(ctx)
	})
}

func (handler *StatsHandler) HandleStreak(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.streak")
	defer span.End()
	handler.respondCached(w, ctx, "stats::streak", func(ctx context.Context) (any, error) {
		streak, err := handler.analyzer.Streak(ctx)
		if err != nil {
			return nil, err
		}
		return StreakResponse{StreakDays: streak}, nil
	})
}

func (handler *StatsHandler) HandleProjection(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.projection")
	defer span.End()
	handler.respondCached(w, ctx, "stats::projection", func(ctx context.Context) (any, error) {
		return handler.analyzer.Projection(ctx)
	})
}

func (handler *StatsHandler) HandleInsights(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.stats.insights")
	defer span.End()
	handler.respondCached(w, ctx, "stats::insights", func(ctx context.Context) (any, error) {
		return handler.analyzer.Insights(ctx)
	})
}
