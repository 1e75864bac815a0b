package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGinMiddleware_LogsAndPropagates(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := gin.New()
	r.Use(GinMiddleware(zap.New(core), "/health"))
	r.GET("/items/:id", func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithTenantID(c.Request.Context(), "t-1"))
		L(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNotFound)
	})
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/9", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, 2, logs.Len(), "handler entry plus one request entry; /health skipped")
	handler := logs.All()[0]
	assert.Equal(t, "inside handler", handler.Message)
	assert.Equal(t, "t-1", handler.ContextMap()["tenant_id"])

	req := logs.All()[1]
	assert.Equal(t, zapcore.WarnLevel, req.Level)
	assert.Equal(t, "/items/:id", req.ContextMap()["route"])
	assert.EqualValues(t, http.StatusNotFound, req.ContextMap()["status"])
	assert.Equal(t, "t-1", req.ContextMap()["tenant_id"])
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic recovered", logs.All()[0].Message)
}
