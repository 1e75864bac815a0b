package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	TenantIDKey     = "tenant_id"
	TenantHeaderKey = "X-Tenant-ID"
)

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// HeaderFallback accepts X-Tenant-ID when no token claim is present.
	// Only enable it for trusted internal callers.
	HeaderFallback bool
	SkipPaths      []string
	Logger         *zap.Logger
}

func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/metrics", "/swagger", "/debug/pprof"},
	}
}

// TenantMiddlewareWithConfig resolves the request tenant. The token claim
// wins; a conflicting X-Tenant-ID header is rejected.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.ContainsFunc(cfg.SkipPaths, func(p string) bool {
			return path == p || strings.HasPrefix(path, p+"/")
		}) {
			c.Next()
			return
		}

		claimed := c.GetString(JWTTenantIDKey)
		header := c.GetHeader(TenantHeaderKey)

		raw := claimed
		switch {
		case claimed != "" && header != "" && !strings.EqualFold(claimed, header):
			log.Warn("tenant header does not match token",
				zap.String("token_tenant", claimed),
				zap.String("header_tenant", header),
			)
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "Tenant mismatch", c.GetString(RequestIDKey)))
			return
		case claimed == "" && cfg.HeaderFallback:
			raw = header
		}

		if raw == "" {
			respondUnauthorized(c, "Tenant identification required")
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			respondUnauthorized(c, "Invalid tenant ID format")
			return
		}

		c.Set(TenantIDKey, tenantID)
		c.Request = c.Request.WithContext(logger.WithTenantID(c.Request.Context(), tenantID.String()))
		c.Next()
	}
}

func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse(dto.ErrCodeUnauthorized, message, c.GetString(RequestIDKey)))
}

// GetTenantID returns the tenant resolved by the tenant middleware, or
// uuid.Nil when none ran.
func GetTenantID(c *gin.Context) uuid.UUID {
	if v, ok := c.Get(TenantIDKey); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}

// GetUserID returns the authenticated user, if any.
func GetUserID(c *gin.Context) *uuid.UUID {
	claims := GetJWTClaims(c)
	if claims == nil {
		return nil
	}
	id := claims.UserUUID()
	return &id
}
