package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/auth"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokens() *auth.TokenService {
	return auth.NewTokenService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "stocker-test",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func issue(t *testing.T, tokens *auth.TokenService, in auth.IssueInput) string {
	t.Helper()
	token, _, err := tokens.Issue(in)
	require.NoError(t, err)
	return token
}

func authedRouter(cfg JWTMiddlewareConfig, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddlewareWithConfig(cfg), TenantMiddlewareWithConfig(DefaultTenantConfig()))
	router.GET("/api/v1/deals", handler)
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func get(router *gin.Engine, path, token string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	tokens := newTestTokens()
	in := auth.IssueInput{TenantID: uuid.New(), UserID: uuid.New(), Username: "deniz"}

	var gotTenant uuid.UUID
	var gotUser *uuid.UUID
	var logTenant string
	router := authedRouter(DefaultJWTConfig(tokens), func(c *gin.Context) {
		gotTenant = GetTenantID(c)
		gotUser = GetUserID(c)
		logTenant = logger.GetTenantID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := get(router, "/api/v1/deals", issue(t, tokens, in))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, in.TenantID, gotTenant)
	require.NotNil(t, gotUser)
	assert.Equal(t, in.UserID, *gotUser)
	assert.Equal(t, in.TenantID.String(), logTenant)
}

func TestJWTAuth_Rejections(t *testing.T) {
	tokens := newTestTokens()
	router := authedRouter(DefaultJWTConfig(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("missing header", func(t *testing.T) {
		w := get(router, "/api/v1/deals", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_INVALID")
		assert.Contains(t, w.Body.String(), `"request_id"`)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "stocker-test",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			},
			TenantID: uuid.NewString(),
			UserID:   uuid.NewString(),
		}).SignedString([]byte("test-secret-key-at-least-32-chars"))
		require.NoError(t, err)
		w := get(router, "/api/v1/deals", expired)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "ERR_TOKEN_EXPIRED")
	})

	t.Run("skip path", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, get(router, "/health", "").Code)
	})
}

func TestJWTAuth_Revoked(t *testing.T) {
	tokens := newTestTokens()
	revocations := auth.NewMemoryRevocationList()
	cfg := DefaultJWTConfig(tokens)
	cfg.Revocations = revocations
	router := authedRouter(cfg, func(c *gin.Context) { c.Status(http.StatusOK) })

	token := issue(t, tokens, auth.IssueInput{TenantID: uuid.New(), UserID: uuid.New()})
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/deals", token).Code)

	claims, err := tokens.Validate(token)
	require.NoError(t, err)
	require.NoError(t, revocations.Revoke(context.Background(), claims.ID, claims.RemainingTTL()))

	w := get(router, "/api/v1/deals", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "revoked")
}

func TestTenantMiddleware_HeaderMismatch(t *testing.T) {
	tokens := newTestTokens()
	in := auth.IssueInput{TenantID: uuid.New(), UserID: uuid.New()}
	router := authedRouter(DefaultJWTConfig(tokens), func(c *gin.Context) { c.Status(http.StatusOK) })
	token := issue(t, tokens, in)

	assert.Equal(t, http.StatusOK, get(router, "/api/v1/deals", token, TenantHeaderKey, in.TenantID.String()).Code)

	w := get(router, "/api/v1/deals", token, TenantHeaderKey, uuid.NewString())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ERR_FORBIDDEN")
}

func TestTenantMiddleware_HeaderFallback(t *testing.T) {
	tenantID := uuid.New()
	var got uuid.UUID
	handler := func(c *gin.Context) { got = GetTenantID(c); c.Status(http.StatusOK) }

	strict := gin.New()
	strict.Use(TenantMiddlewareWithConfig(DefaultTenantConfig()))
	strict.GET("/x", handler)
	assert.Equal(t, http.StatusUnauthorized, get(strict, "/x", "", TenantHeaderKey, tenantID.String()).Code)

	cfg := DefaultTenantConfig()
	cfg.HeaderFallback = true
	lenient := gin.New()
	lenient.Use(TenantMiddlewareWithConfig(cfg))
	lenient.GET("/x", handler)

	assert.Equal(t, http.StatusOK, get(lenient, "/x", "", TenantHeaderKey, tenantID.String()).Code)
	assert.Equal(t, tenantID, got)
	assert.Equal(t, http.StatusUnauthorized, get(lenient, "/x", "", TenantHeaderKey, "not-a-uuid").Code)
}

func TestRequireRole(t *testing.T) {
	tokens := newTestTokens()
	router := gin.New()
	router.Use(JWTAuthMiddleware(tokens))
	router.GET("/admin", RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusOK) })

	admin := issue(t, tokens, auth.IssueInput{TenantID: uuid.New(), UserID: uuid.New(), Roles: []string{"admin"}})
	clerk := issue(t, tokens, auth.IssueInput{TenantID: uuid.New(), UserID: uuid.New(), Roles: []string{"clerk"}})

	assert.Equal(t, http.StatusOK, get(router, "/admin", admin).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/admin", clerk).Code)
}
