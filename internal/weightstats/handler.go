package weightstats

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coocood/freecache"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/weightstats/internal/telemetry/metrics"
	"github.com/2beens/weightstats/internal/telemetry/tracing"
	"github.com/2beens/weightstats/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=weightstats_mocks_test.go -package=weightstats_test

type weightsRepo interface {
	Add(ctx context.Context, entry WeightEntry) (*WeightEntry, error)
	Get(ctx context.Context, day string) (*WeightEntry, error)
	Delete(ctx context.Context, day string) error
	ListAll(ctx context.Context) ([]WeightEntry, error)
	GetGoal(ctx context.Context) (*Goal, error)
	SetGoal(ctx context.Context, goal Goal) error
	EntriesCount(ctx context.Context) (int, error)
}

// AddEntryRequest accepts the entry date and timestamp in any of the
// supported formats, including spreadsheet serial numbers, hence the
// untyped recordedAt.
type AddEntryRequest struct {
	Date       string  `json:"date"`
	Weight     float64 `json:"weight"`
	RecordedAt any     `json:"recordedAt,omitempty"`
}

type DeleteEntryResponse struct {
	DeletedDay string `json:"deletedDay"`
}

type ListEntriesResponse struct {
	Entries []WeightEntry `json:"entries"`
	Total   int           `json:"total"`
}

type Handler struct {
	repo    weightsRepo
	diag    DiagnosticsSink
	cache   *freecache.Cache
	metrics *metrics.Manager
}

// NewHandler creates the entries and goal CRUD handler. The cache is the
// shared stats cache, cleared on every write so the analytics endpoints
// never serve stale numbers.
func NewHandler(repo weightsRepo, diag DiagnosticsSink, cache *freecache.Cache, metricsManager *metrics.Manager) *Handler {
	if diag == nil {
		diag = LogDiagnostics{}
	}
	return &Handler{
		repo:    repo,
		diag:    diag,
		cache:   cache,
		metrics: metricsManager,
	}
}

func (handler *Handler) invalidateStatsCache() {
	if handler.cache != nil {
		handler.cache.Clear()
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.add")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("new weight entry, unmarshal json params: %s", err)
		http.Error(w, "add entry failed", http.StatusBadRequest)
		return
	}

	if req.Weight <= 0 {
		http.Error(w, "error, weight must be positive", http.StatusBadRequest)
		return
	}
	day, ok := ToCanonicalDate(req.Date)
	if !ok {
		http.Error(w, "error, unparseable entry date", http.StatusBadRequest)
		return
	}

	addedEntry, err := handler.repo.Add(ctx, WeightEntry{
		Date:       day,
		Weight:     req.Weight,
		RecordedAt: NormalizeTimestamp(day, req.RecordedAt),
	})
	if err != nil {
		log.Errorf("failed to add weight entry [%s]: %s", day, err)
		http.Error(w, "error, failed to add weight entry", http.StatusInternalServerError)
		return
	}

	handler.invalidateStatsCache()
	handler.metrics.CounterEntriesAdded.Inc()

	addedEntryJson, err := json.Marshal(addedEntry)
	if err != nil {
		log.Errorf("failed to marshal added entry: %s", err)
		http.Error(w, "error, failed to add weight entry", http.StatusInternalServerError)
		return
	}

	log.Debugf("new weight entry added: %s", addedEntryJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedEntryJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.get")
	defer span.End()

	vars := mux.Vars(r)
	day, ok := ToCanonicalDate(vars["day"])
	if !ok {
		http.Error(w, "error, invalid day", http.StatusBadRequest)
		return
	}

	entry, err := handler.repo.Get(ctx, day)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get weight entry %s: %s", day, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	entryJson, err := json.Marshal(entry)
	if err != nil {
		log.Errorf("failed to marshal entry: %s", err)
		http.Error(w, "failed to marshal entry", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, entryJson, http.StatusOK)
}

// HandleList returns the full series, chronological, with all derived
// fields recomputed. Unparseable rows are dropped, not errored.
func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.list")
	defer span.End()

	entries, err := handler.repo.ListAll(ctx)
	if err != nil {
		log.Errorf("list weight entries error: %s", err)
		http.Error(w, "failed to get weight entries", http.StatusInternalServerError)
		return
	}

	derived := DeriveAll(Sanitize(entries, handler.diag))

	listRespJson, err := json.Marshal(ListEntriesResponse{
		Entries: derived,
		Total:   len(derived),
	})
	if err != nil {
		log.Errorf("marshal weight entries error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listRespJson, http.StatusOK)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.delete")
	defer span.End()

	vars := mux.Vars(r)
	day, ok := ToCanonicalDate(vars["day"])
	if !ok {
		http.Error(w, "error, invalid day", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, day); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			log.Debugf("weight entry %s not found", day)
			http.Error(w, "entry not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete weight entry %s: %s", day, err)
		http.Error(w, "entry not deleted", http.StatusInternalServerError)
		return
	}

	handler.invalidateStatsCache()

	deleteRespJson, err := json.Marshal(DeleteEntryResponse{
		DeletedDay: day,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to marshal delete response", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

func (handler *Handler) HandleGetGoal(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.getgoal")
	defer span.End()

	goal, err := handler.repo.GetGoal(ctx)
	if err != nil {
		if errors.Is(err, ErrGoalNotSet) {
			http.Error(w, "goal not set", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get goal: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	goalJson, err := json.Marshal(goal)
	if err != nil {
		log.Errorf("failed to marshal goal: %s", err)
		http.Error(w, "failed to marshal goal", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, goalJson, http.StatusOK)
}

func (handler *Handler) HandleSetGoal(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.weightstats.setgoal")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var goal Goal
	if err := json.NewDecoder(r.Body).Decode(&goal); err != nil {
		log.Tracef("set goal, unmarshal json params: %s", err)
		http.Error(w, "set goal failed", http.StatusBadRequest)
		return
	}

	if goal.StartWeight <= 0 || goal.EndWeight <= 0 {
		http.Error(w, "error, goal weights must be positive", http.StatusBadRequest)
		return
	}
	startDate, ok := ToCanonicalDate(goal.StartDate)
	if !ok {
		http.Error(w, "error, unparseable goal start date", http.StatusBadRequest)
		return
	}
	endDate, ok := ToCanonicalDate(goal.EndDate)
	if !ok {
		http.Error(w, "error, unparseable goal end date", http.StatusBadRequest)
		return
	}
	goal.StartDate = startDate
	goal.EndDate = endDate

	// denormalized fields are always recomputed, whatever the client sent
	goal.TotalDuration = goal.DurationDays()
	goal.TotalKg = goal.TotalKilos()

	if err := handler.repo.SetGoal(ctx, goal); err != nil {
		log.Errorf("failed to set goal: %s", err)
		http.Error(w, "error, failed to set goal", http.StatusInternalServerError)
		return
	}

	handler.invalidateStatsCache()

	goalJson, err := json.Marshal(goal)
	if err != nil {
		log.Errorf("failed to marshal goal: %s", err)
		http.Error(w, "failed to marshal goal", http.StatusInternalServerError)
		return
	}

	log.Debugf("goal set: %s", goalJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, goalJson, http.StatusOK)
}
