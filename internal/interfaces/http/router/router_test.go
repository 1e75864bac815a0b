package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	crmapp "github.com/stocker/backend/internal/application/crm"
	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/infrastructure/auth"
	"github.com/stocker/backend/internal/infrastructure/cache"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/interfaces/http/handler"
	"github.com/stocker/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	var seen []string
	r := NewRouter(engine, WithAPIVersion("v2")).Use(func(c *gin.Context) {
		seen = append(seen, c.FullPath())
	})

	g := NewDomainGroup("catalog", "/catalog")
	g.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	items := g.Group("items", "/items")
	items.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) }).
		DELETE("/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Register(g).Setup()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v2/catalog/ping", http.StatusOK},
		{http.MethodPost, "/api/v2/catalog/items", http.StatusCreated},
		{http.MethodDelete, "/api/v2/catalog/items/7", http.StatusNoContent},
		{http.MethodGet, "/api/v1/catalog/ping", http.StatusNotFound},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.want, w.Code, tt.path)
	}
	assert.Equal(t, []string{"/api/v2/catalog/ping", "/api/v2/catalog/items", "/api/v2/catalog/items/:id"}, seen)
	assert.Equal(t, "catalog", g.Name())
	assert.Equal(t, "/catalog", g.Prefix())
}

func TestDomainGroupMiddleware(t *testing.T) {
	engine := gin.New()
	g := NewDomainGroup("test", "/test").Use(func(c *gin.Context) {
		c.Header("X-Group", "test")
	})
	g.GET("/items", func(c *gin.Context) { c.Status(http.StatusOK) })
	g.RegisterRoutes(engine.Group("/api/v1"))

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/items", nil))
	assert.Equal(t, "test", w.Header().Get("X-Group"))
}

type engineFixture struct {
	engine *gin.Engine
	tokens *auth.TokenService
	got    *crmapp.GetDealQuery
}

func newEngineFixture(t *testing.T, ready error) *engineFixture {
	t.Helper()
	cfg := &config.Config{
		App:  config.AppConfig{Name: "stocker", Env: "test"},
		HTTP: config.HTTPConfig{MaxBodySize: 1 << 20, IdempotencyTTL: time.Minute, WriteTimeout: 10 * time.Second},
	}
	tokens := auth.NewTokenService(config.JWTConfig{Secret: "router-test-secret-at-least-32-chars", Issuer: "stocker"})

	m := mediator.New(mediator.NewValidationBehavior(), mediator.NewTenantBehavior())
	f := &engineFixture{tokens: tokens, got: new(crmapp.GetDealQuery)}
	require.NoError(t, mediator.Register(m, mediator.HandlerFunc[crmapp.GetDealQuery, crmapp.DealDTO](
		func(_ context.Context, q crmapp.GetDealQuery) (crmapp.DealDTO, error) {
			*f.got = q
			return crmapp.DealDTO{ID: q.DealID, TenantID: q.TenantID}, nil
		})))
	require.NoError(t, mediator.Register(m, mediator.HandlerFunc[crmapp.DeleteDealCommand, struct{}](
		func(context.Context, crmapp.DeleteDealCommand) (struct{}, error) { return struct{}{}, nil })))

	system := handler.NewSystemHandler("stocker", "test").
		AddCheck("database", func(context.Context) error { return ready })
	engine, err := NewEngine(Options{
		Config:      cfg,
		Tokens:      tokens,
		Idempotency: cache.NewInMemoryIdempotencyStore(),
		RateLimiter: middleware.NewRateLimiter(100, time.Minute),
		Metrics:     http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("jobs_claimed_total 0\n")) }),
	}, Handlers{
		Deal:        handler.NewDealHandler(m),
		Payslip:     handler.NewPayslipHandler(m),
		ReorderRule: handler.NewReorderRuleHandler(m),
		Routing:     handler.NewRoutingHandler(m),
		Migration:   handler.NewMigrationHandler(m, 0),
		System:      system,
	})
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *engineFixture) do(t *testing.T, method, path, token string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestEngine_ProbesNeedNoToken(t *testing.T) {
	f := newEngineFixture(t, nil)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/ready", "", nil).Code)

	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "jobs_claimed_total")

	down := newEngineFixture(t, errors.New("db down"))
	assert.Equal(t, http.StatusServiceUnavailable, down.do(t, http.MethodGet, "/ready", "", nil).Code)
}

func TestEngine_APIRequiresToken(t *testing.T) {
	f := newEngineFixture(t, nil)
	w := f.do(t, http.MethodGet, "/api/v1/crm/deals/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestEngine_TenantFromToken(t *testing.T) {
	f := newEngineFixture(t, nil)
	tenantID, userID, dealID := uuid.New(), uuid.New(), uuid.New()
	token, _, err := f.tokens.Issue(auth.IssueInput{TenantID: tenantID, UserID: userID})
	require.NoError(t, err)

	w := f.do(t, http.MethodGet, "/api/v1/crm/deals/"+dealID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, tenantID, f.got.TenantID)
	assert.Equal(t, dealID, f.got.DealID)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))

	w = f.do(t, http.MethodGet, "/api/v1/crm/deals/"+dealID.String(), token,
		map[string]string{middleware.TenantHeaderKey: uuid.NewString()})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestEngine_IdempotentDelete(t *testing.T) {
	f := newEngineFixture(t, nil)
	token, _, err := f.tokens.Issue(auth.IssueInput{TenantID: uuid.New(), UserID: uuid.New()})
	require.NoError(t, err)
	path := "/api/v1/crm/deals/" + uuid.NewString()
	key := map[string]string{middleware.IdempotencyKeyHeader: "delete-1"}

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, path, token, key).Code)
	w := f.do(t, http.MethodDelete, path, token, key)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "ERR_IDEMPOTENCY_CONFLICT"))
}

func TestEngine_RoutesMounted(t *testing.T) {
	f := newEngineFixture(t, nil)
	paths := make(map[string]bool)
	for _, r := range f.engine.Routes() {
		paths[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/v1/crm/deals/:id/win",
		"DELETE /api/v1/hr/payslips/:id/lines/:line_id",
		"GET /api/v1/inventory/reorder-check",
		"POST /api/v1/inventory/reorder-rules/:id/trigger",
		"GET /api/v1/manufacturing/routings/:id/lead-time",
		"POST /api/v1/migration/sessions/:id/chunks",
		"POST /api/v1/migration/sessions/:id/results/:result_id/skip",
		"GET /api/v1/system/info",
	} {
		assert.True(t, paths[want], want)
	}
	assert.False(t, paths["GET /swagger/*any"], "swagger is off unless enabled")
}
