package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
)

func swaggerStatus(cfg config.SwaggerConfig, auth gin.HandlerFunc, remoteAddr string) int {
	router := gin.New()
	router.GET("/swagger/*any", SwaggerProtection(cfg, auth), func(c *gin.Context) { c.Status(http.StatusOK) })
	req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code
}

func TestSwaggerProtection(t *testing.T) {
	deny := func(c *gin.Context) { c.AbortWithStatus(http.StatusUnauthorized) }

	assert.Equal(t, http.StatusNotFound, swaggerStatus(config.SwaggerConfig{}, nil, "10.0.0.1:1234"))
	assert.Equal(t, http.StatusOK, swaggerStatus(config.SwaggerConfig{Enabled: true}, nil, "10.0.0.1:1234"))

	restricted := config.SwaggerConfig{Enabled: true, AllowedIPs: []string{"192.168.0.0/16", "10.0.0.7"}}
	assert.Equal(t, http.StatusOK, swaggerStatus(restricted, nil, "192.168.4.2:1234"))
	assert.Equal(t, http.StatusOK, swaggerStatus(restricted, nil, "10.0.0.7:1234"))
	assert.Equal(t, http.StatusForbidden, swaggerStatus(restricted, nil, "10.0.0.8:1234"))

	authed := config.SwaggerConfig{Enabled: true, RequireAuth: true}
	assert.Equal(t, http.StatusUnauthorized, swaggerStatus(authed, deny, "10.0.0.1:1234"))
}
