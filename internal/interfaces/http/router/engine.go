package router

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/auth"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/interfaces/http/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// probePaths bypass request logging, tracing and authentication.
var probePaths = []string{"/healthz", "/ready", "/metrics"}

// Options carries the collaborators the HTTP stack is built from. Nil
// optional collaborators disable the feature they back.
type Options struct {
	Config      *config.Config
	Logger      *zap.Logger
	Tokens      *auth.TokenService
	Revocations auth.RevocationList
	// Idempotency enables Idempotency-Key handling on mutating API routes.
	Idempotency shared.IdempotencyStore
	RateLimiter *middleware.RateLimiter
	Meter       metric.Meter
	// Metrics is served on /metrics, typically promhttp.Handler().
	Metrics http.Handler
	// Profiling mounts net/http/pprof and tags requests with pyroscope labels.
	Profiling bool
}

// NewEngine assembles the gin engine: global middleware, probes, tooling
// endpoints and the authenticated /api/v1 routes.
func NewEngine(opts Options, h Handlers) (*gin.Engine, error) {
	cfg, log := opts.Config, opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id must exist before the logger and the
	// tracer read it, and recovery must wrap everything below it.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.Telemetry.Enabled {
		engine.Use(middleware.Tracing(cfg.Telemetry.ServiceName, probePaths...))
	}
	engine.Use(logger.GinMiddleware(log, probePaths...))
	if opts.Meter != nil {
		httpMetrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(httpMetrics)
	}
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfigFrom(cfg.HTTP)))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize,
		middleware.UploadLimit(ChunkUploadRoute, cfg.Migration.MaxUploadBytes)))

	engine.GET("/healthz", h.System.Liveness)
	engine.GET("/ready", h.System.Readiness)
	if opts.Metrics != nil {
		engine.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	authn := middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		Tokens:      opts.Tokens,
		Revocations: opts.Revocations,
		Logger:      log,
	})
	if cfg.Swagger.Enabled {
		var swaggerAuth gin.HandlerFunc
		if cfg.Swagger.RequireAuth {
			swaggerAuth = authn
		}
		engine.GET("/swagger/*any",
			middleware.SwaggerProtection(cfg.Swagger, swaggerAuth),
			ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if opts.Profiling {
		mountPprof(engine.Group("/debug/pprof", authn, middleware.RequireRole("admin")))
	}

	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Logger = log
	r := NewRouter(engine, WithAPIVersion("v1")).
		Use(authn, middleware.TenantMiddlewareWithConfig(tenantCfg))
	if cfg.Telemetry.Enabled {
		r.Use(middleware.SpanEnricher())
	}
	if opts.Profiling {
		r.Use(middleware.Profiling())
	}
	if opts.RateLimiter != nil {
		r.Use(middleware.RateLimit(opts.RateLimiter))
	}
	if opts.Idempotency != nil {
		r.Use(middleware.Idempotency(opts.Idempotency, cfg.HTTP.IdempotencyTTL, log))
	}
	r.Use(middleware.Timeout(requestTimeout(cfg.HTTP)))
	r.Register(DomainGroups(h)...)
	r.Setup()

	return engine, nil
}

// requestTimeout leaves headroom under the server write timeout so the
// handler can still write its error response.
func requestTimeout(cfg config.HTTPConfig) time.Duration {
	if cfg.WriteTimeout <= time.Second {
		return 30 * time.Second
	}
	return cfg.WriteTimeout - 500*time.Millisecond
}

func mountPprof(rg *gin.RouterGroup) {
	rg.GET("/", gin.WrapF(pprof.Index))
	rg.GET("/cmdline", gin.WrapF(pprof.Cmdline))
	rg.GET("/profile", gin.WrapF(pprof.Profile))
	rg.GET("/symbol", gin.WrapF(pprof.Symbol))
	rg.GET("/trace", gin.WrapF(pprof.Trace))
	rg.GET("/:name", func(c *gin.Context) {
		pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
	})
}
