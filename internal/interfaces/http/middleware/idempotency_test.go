package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
)

func newIdempotentRouter(t *testing.T, status *int) *gin.Engine {
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	tenantID := uuid.New()
	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(TenantIDKey, tenantID); c.Next() })
	router.Use(Idempotency(store, time.Hour, nil))
	router.POST("/deals", func(c *gin.Context) { c.Status(*status) })
	router.GET("/deals", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func send(router *gin.Engine, method, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/deals", nil)
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency_RejectsReplay(t *testing.T) {
	status := http.StatusCreated
	router := newIdempotentRouter(t, &status)

	assert.Equal(t, http.StatusCreated, send(router, http.MethodPost, "k-1").Code)

	w := send(router, http.MethodPost, "k-1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "true", w.Header().Get(IdempotencyReplayHeader))
	assert.Contains(t, w.Body.String(), "ERR_IDEMPOTENCY_CONFLICT")

	assert.Equal(t, http.StatusCreated, send(router, http.MethodPost, "k-2").Code)
}

func TestIdempotency_ReleasesOnFailure(t *testing.T) {
	status := http.StatusUnprocessableEntity
	router := newIdempotentRouter(t, &status)

	assert.Equal(t, http.StatusUnprocessableEntity, send(router, http.MethodPost, "k-1").Code)

	status = http.StatusCreated
	assert.Equal(t, http.StatusCreated, send(router, http.MethodPost, "k-1").Code)
}

func TestIdempotency_PassThrough(t *testing.T) {
	status := http.StatusCreated
	router := newIdempotentRouter(t, &status)

	assert.Equal(t, http.StatusCreated, send(router, http.MethodPost, "").Code)
	assert.Equal(t, http.StatusCreated, send(router, http.MethodPost, "").Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "k-1").Code)
	assert.Equal(t, http.StatusOK, send(router, http.MethodGet, "k-1").Code)
}
