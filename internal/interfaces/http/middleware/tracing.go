package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps otelgin. Span names are the route pattern; health and
// metrics probes are not traced.
func Tracing(serviceName string, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}
	return otelgin.Middleware(serviceName,
		otelgin.WithFilter(func(r *http.Request) bool {
			_, skipped := skip[r.URL.Path]
			return !skipped
		}),
	)
}

// SpanEnricher tags the request span with request, tenant and user IDs and
// marks it as failed on 5xx. Mount it after the auth middleware.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}

		if id := c.GetString(RequestIDKey); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}
		if tenantID := c.GetString(JWTTenantIDKey); tenantID != "" {
			span.SetAttributes(attribute.String("tenant_id", tenantID))
		}
		if userID := c.GetString(JWTUserIDKey); userID != "" {
			span.SetAttributes(attribute.String("user_id", userID))
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
