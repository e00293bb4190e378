package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/coocood/freecache"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/multierr"

	"github.com/2beens/weightstats/internal/auth"
	"github.com/2beens/weightstats/internal/config"
	"github.com/2beens/weightstats/internal/db"
	"github.com/2beens/weightstats/internal/middleware"
	"github.com/2beens/weightstats/internal/misc"
	"github.com/2beens/weightstats/internal/telemetry/metrics"
	"github.com/2beens/weightstats/internal/telemetry/tracing"
	"github.com/2beens/weightstats/internal/weightstats"
	"github.com/2beens/weightstats/internal/weightstats/importer"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config *config.Config
	dbPool *pgxpool.Pool

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	statsCache     *freecache.Cache
	importRegistry *importer.StatusRegistry

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "weightstats_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0) // will be set to 1 when all is set and ran

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authService := auth.NewAuthService(&auth.Admin{
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "weightstats-backend", rdb)
	if err != nil {
		return nil, err
	}

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		versionInfo: params.VersionInfo,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		statsCache:     weightstats.NewStatsCache(),
		importRegistry: importer.NewStatusRegistry(),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("main-router"))

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	miscHandler := misc.NewHandler(s.versionInfo, s.authService)
	miscHandler.SetupRoutes(r, reqRateLimiter, s.metricsManager, s.config.LoginRateLimitAllowedPerMin)

	repo := weightstats.NewRepo(s.dbPool)
	diag := weightstats.LogDiagnostics{}

	weightsHandler := weightstats.NewHandler(repo, diag, s.statsCache, s.metricsManager)
	statsHandler := weightstats.NewStatsHandler(
		weightstats.NewAnalyzer(repo, nil, diag),
		s.statsCache,
	)

	s.importRegistry.Register(importMetricsListener{metricsManager: s.metricsManager})
	importHandler := importer.NewHandler(
		importer.New(repo, diag, s.importRegistry),
		s.importRegistry,
		s.statsCache,
	)

	// register the fixed paths before the {day} catch-all
	r.HandleFunc("/weights/goal", weightsHandler.HandleGetGoal).Methods("GET", "OPTIONS").Name("get-goal")
	r.HandleFunc("/weights/goal", weightsHandler.HandleSetGoal).Methods("POST", "OPTIONS").Name("set-goal")

	r.HandleFunc("/weights/import", importHandler.HandleImport).Methods("POST", "OPTIONS").Name("import")
	r.HandleFunc("/weights/import/status", importHandler.HandleStatus).Methods("GET", "OPTIONS").Name("import-status")

	r.HandleFunc("/weights/stats", statsHandler.HandleStatistics).Methods("GET", "OPTIONS").Name("stats")
	r.HandleFunc("/weights/stats/trend", statsHandler.HandleTrend).Methods("GET", "OPTIONS").Name("stats-trend")
	r.HandleFunc("/weights/stats/movingavg", statsHandler.HandleMovingAverages).Methods("GET", "OPTIONS").Name("stats-movingavg")
	r.HandleFunc("/weights/stats/consistency", statsHandler.HandleConsistency).Methods("GET", "OPTIONS").Name("stats-consistency")
	r.HandleFunc("/weights/stats/weekly", statsHandler.HandleWeeklyDeltas).Methods("GET", "OPTIONS").Name("stats-weekly")
	r.HandleFunc("/weights/stats/volatility", statsHandler.HandleVolatility).Methods("GET", "OPTIONS").Name("stats-volatility")
	r.HandleFunc("/weights/stats/timeofday", statsHandler.HandleTimeOfDay).Methods("GET", "OPTIONS").Name("stats-timeofday")
	r.HandleFunc("/weights/stats/anomalies", statsHandler.HandleAnomalies).Methods("GET", "OPTIONS").Name("stats-anomalies")
	r.HandleFunc("/weights/stats/changepoint", statsHandler.HandleChangePoint).Methods("GET", "OPTIONS").Name("stats-changepoint")
	r.HandleFunc("/weights/stats/streak", statsHandler.HandleStreak).Methods("GET", "OPTIONS").Name("stats-streak")
	r.HandleFunc("/weights/stats/projection", statsHandler.HandleProjection).Methods("GET", "OPTIONS").Name("stats-projection")
	r.HandleFunc("/weights/stats/insights", statsHandler.HandleInsights).Methods("GET", "OPTIONS").Name("stats-insights")

	r.HandleFunc("/weights", weightsHandler.HandleAdd).Methods("POST", "OPTIONS").Name("new-entry")
	r.HandleFunc("/weights", weightsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-entries")
	r.HandleFunc("/weights/{day}", weightsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-entry")
	r.HandleFunc("/weights/{day}", weightsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-entry")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(s.loginChecker)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) Serve(ctx context.Context, host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(
		s.config.PrometheusMetricsHost,
		strconv.Itoa(s.config.PrometheusMetricsPort),
	)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	var shutdownErr error

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			shutdownErr = multierr.Append(shutdownErr, fmt.Errorf("close redis client: %w", err))
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		shutdownErr = multierr.Append(shutdownErr, fmt.Errorf("shutdown http server: %w", err))
	}
	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		shutdownErr = multierr.Append(shutdownErr, fmt.Errorf("shutdown metrics http server: %w", err))
	}

	if shutdownErr != nil {
		log.Errorf(" >>> graceful shutdown errors: %s", shutdownErr)
	}
	log.Warnln("server shut down")
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}

// importMetricsListener bumps the import row counters whenever an import
// run finishes.
type importMetricsListener struct {
	metricsManager *metrics.Manager
}

func (l importMetricsListener) ImportStatusChanged(status importer.Status) {
	if status.State != importer.StateDone {
		return
	}
	l.metricsManager.CounterImportedRows.Add(float64(status.RowsImported))
	l.metricsManager.CounterDroppedRows.Add(float64(status.RowsDropped))
}
