package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/infrastructure/telemetry"
)

// Profiling runs the rest of the chain under pprof labels (route, method and
// tenant) so Pyroscope can break CPU time down per endpoint. Mount it after
// the tenant middleware.
func Profiling() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			c.Next()
			return
		}
		labels := map[string]string{
			telemetry.ProfilingLabelOperation: c.Request.Method + " " + route,
		}
		if tenantID := c.GetString(JWTTenantIDKey); tenantID != "" {
			labels[telemetry.ProfilingLabelTenantID] = tenantID
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}
