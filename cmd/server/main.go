package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	crmapp "github.com/stocker/backend/internal/application/crm"
	hrapp "github.com/stocker/backend/internal/application/hr"
	inventoryapp "github.com/stocker/backend/internal/application/inventory"
	manufacturingapp "github.com/stocker/backend/internal/application/manufacturing"
	"github.com/stocker/backend/internal/application/mediator"
	migrationapp "github.com/stocker/backend/internal/application/migration"
	"github.com/stocker/backend/internal/infrastructure/auth"
	"github.com/stocker/backend/internal/infrastructure/cache"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/infrastructure/event"
	"github.com/stocker/backend/internal/infrastructure/jobqueue"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/infrastructure/persistence"
	"github.com/stocker/backend/internal/infrastructure/storage"
	"github.com/stocker/backend/internal/infrastructure/telemetry"
	"github.com/stocker/backend/internal/interfaces/http/handler"
	"github.com/stocker/backend/internal/interfaces/http/middleware"
	"github.com/stocker/backend/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/stocker/backend/docs"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

//	@title			Stocker API
//	@version		1.0
//	@description	Multi-tenant ERP backend: CRM deals, payroll, replenishment, manufacturing routings and bulk data migration.

//	@contact.name	API Support
//	@contact.url	https://github.com/stocker/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Bootstrap logger, used until the OTLP log core is ready
	bootstrap, err := newLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	tel := setupTelemetry(ctx, cfg, bootstrap)

	var extraCores []zapcore.Core
	if tel.logs != nil && tel.logs.IsEnabled() {
		extraCores = append(extraCores, tel.logs.ZapCore(logger.ParseLevel(cfg.Log.Level)))
	}
	log, err := newLogger(cfg, extraCores...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	zap.ReplaceGlobals(log)

	log.Info("Starting Stocker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, persistence.Options{
		LogLevel:      logger.MapGormLogLevel(cfg.Log.Level),
		SlowThreshold: 200 * time.Millisecond,
		LogFullSQL:    cfg.Telemetry.DBLogFullSQL,
		RequireTenant: cfg.App.IsProduction(),
	})
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Redis backs token revocation; idempotency has its own factory with
	// an in-memory fallback.
	var (
		redisClient *redis.Client
		revocations auth.RevocationList = auth.NewMemoryRevocationList()
	)
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() { _ = redisClient.Close() }()
		revocations = auth.NewRedisRevocationList(redisClient)
	}
	idempotency, err := cache.NewIdempotencyStoreFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	objects, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	// Domain events
	bus := event.NewInMemoryEventBus(log)
	// Events can be published again when a job is retried; subscribers see
	// each event id once.
	bus.Subscribe(event.NewIdempotentHandler(event.NewLoggingHandler(log), idempotency, 0, log))
	if err := bus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Mediator and application handlers
	meter := tel.meter()
	behaviors, err := mediator.DefaultBehaviors(log, meter)
	if err != nil {
		log.Fatal("Failed to build mediator behaviors", zap.Error(err))
	}
	m := mediator.New(behaviors...)

	jobOpts := []jobqueue.StoreOption{jobqueue.WithRetryBaseDelay(cfg.Jobs.RetryBaseDelay)}
	migrationDeps := migrationapp.Deps{
		Tx:          persistence.NewGormTransactionScope(db.DB, jobOpts...),
		Sessions:    persistence.NewGormSessionRepository(db.DB),
		Chunks:      persistence.NewGormChunkRepository(db.DB),
		Results:     persistence.NewGormValidationResultRepository(db.DB),
		Objects:     objects,
		Idempotency: idempotency,
		Events:      bus,
	}
	migrationCfg := migrationapp.ConfigFrom(cfg.Migration, cfg.Jobs)

	if err := errors.Join(
		crmapp.NewHandlers(persistence.NewGormDealRepository(db.DB), bus, log).Register(m),
		hrapp.NewHandlers(persistence.NewGormPayslipRepository(db.DB), bus, log).Register(m),
		inventoryapp.NewHandlers(persistence.NewGormReorderRuleRepository(db.DB), bus, log).Register(m),
		manufacturingapp.NewHandlers(persistence.NewGormRoutingRepository(db.DB), bus, log).Register(m),
		migrationapp.NewHandlers(migrationDeps, migrationCfg, log).Register(m),
	); err != nil {
		log.Fatal("Failed to register handlers", zap.Error(err))
	}

	// Background jobs
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	var pool *jobqueue.Pool
	if cfg.Jobs.Enabled {
		pool = jobqueue.NewPool(jobqueue.PoolConfig{
			Workers:           cfg.Jobs.Workers,
			PollInterval:      cfg.Jobs.PollInterval,
			JobTimeout:        cfg.Jobs.JobTimeout,
			HeartbeatInterval: cfg.Jobs.HeartbeatInterval,
			StaleTimeout:      cfg.Jobs.StaleTimeout,
		}, jobqueue.NewStore(db.DB, jobOpts...), jobqueue.NewMetrics(registry), log)
		migrationapp.NewPipeline(migrationDeps, migrationCfg, log).Register(pool)
		if err := pool.Start(ctx); err != nil {
			log.Fatal("Failed to start job workers", zap.Error(err))
		}
	}

	// HTTP
	system := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", db.Ping)
	if redisClient != nil {
		system.AddCheck("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}

	engine, err := router.NewEngine(router.Options{
		Config:      cfg,
		Logger:      log,
		Tokens:      auth.NewTokenService(cfg.JWT),
		Revocations: revocations,
		Idempotency: idempotency,
		RateLimiter: middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow),
		Meter:       meter,
		Metrics:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Profiling:   tel.profiler != nil && tel.profiler.IsEnabled(),
	}, router.Handlers{
		Deal:        handler.NewDealHandler(m),
		Payslip:     handler.NewPayslipHandler(m),
		ReorderRule: handler.NewReorderRuleHandler(m),
		Routing:     handler.NewRoutingHandler(m),
		Migration:   handler.NewMigrationHandler(m, cfg.Migration.MaxUploadBytes),
		System:      system,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if pool != nil {
		if err := pool.Stop(shutdownCtx); err != nil {
			log.Error("Job workers did not drain", zap.Error(err))
		}
	}
	if err := bus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	tel.shutdown(shutdownCtx, log)

	log.Info("Server exited gracefully")
}

func newLogger(cfg *config.Config, extraCores ...zapcore.Core) (*zap.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	}, extraCores...)
}

// telemetryStack holds the OpenTelemetry providers and the profiler. A
// provider that failed to start is left nil and the app runs without it.
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meters   *telemetry.MeterProvider
	logs     *telemetry.LoggerProvider
	profiler *telemetry.Profiler
}

func setupTelemetry(ctx context.Context, cfg *config.Config, log *zap.Logger) *telemetryStack {
	t := &telemetryStack{}
	tc := cfg.Telemetry

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           tc.Enabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		SamplingRatio:     tc.SamplingRatio,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
	} else {
		t.tracer = tracer
	}

	meters, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           tc.Enabled && tc.MetricsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ExportInterval:    tc.MetricsInterval,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Metrics export disabled", zap.Error(err))
	} else {
		t.meters = meters
	}

	logs, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           tc.Enabled && tc.LogsEnabled,
		CollectorEndpoint: tc.CollectorEndpoint,
		ServiceName:       tc.ServiceName,
		Insecure:          tc.Insecure,
	}, log)
	if err != nil {
		log.Warn("Log export disabled", zap.Error(err))
	} else {
		t.logs = logs
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   tc.ServiceName,
		BasicAuthUser:     cfg.Profiling.AuthUser,
		BasicAuthPassword: cfg.Profiling.AuthPassword,
	}, log)
	if err != nil {
		log.Warn("Continuous profiling disabled", zap.Error(err))
	} else {
		t.profiler = profiler
		if t.tracer != nil && profiler.IsEnabled() {
			t.tracer.EnableSpanProfiles()
		}
	}
	return t
}

// meter falls back to the global no-op provider when metrics export is off.
func (t *telemetryStack) meter() metric.Meter {
	return t.meters.Meter("github.com/stocker/backend")
}

func (t *telemetryStack) shutdown(ctx context.Context, log *zap.Logger) {
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			log.Warn("Error stopping profiler", zap.Error(err))
		}
	}
	var errs []error
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
	}
	if t.meters != nil {
		errs = append(errs, t.meters.Shutdown(ctx))
	}
	if t.logs != nil {
		errs = append(errs, t.logs.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		log.Warn("Error shutting down telemetry", zap.Error(err))
	}
}
