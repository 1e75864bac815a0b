package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/infrastructure/auth"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// JWT context keys
const (
	JWTClaimsKey   = "jwt_claims"
	JWTUserIDKey   = "jwt_user_id"
	JWTTenantIDKey = "jwt_tenant_id"
	AuthHeaderKey  = "Authorization"
	BearerPrefix   = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	Tokens *auth.TokenService
	// Revocations is optional. Lookup failures are logged and the token is
	// accepted.
	Revocations      auth.RevocationList
	SkipPaths        []string
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(tokens *auth.TokenService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		Tokens:           tokens,
		SkipPaths:        []string{"/health", "/healthz", "/ready", "/metrics"},
		SkipPathPrefixes: []string{"/swagger", "/debug/pprof"},
	}
}

// JWTAuthMiddleware creates JWT authentication middleware
func JWTAuthMiddleware(tokens *auth.TokenService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(tokens))
}

// JWTAuthMiddlewareWithConfig creates JWT authentication middleware with custom config
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if slices.Contains(cfg.SkipPaths, path) {
			c.Next()
			return
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) || strings.TrimPrefix(header, BearerPrefix) == "" {
			abortAuth(c, log, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.Tokens.Validate(strings.TrimPrefix(header, BearerPrefix))
		if err != nil {
			abortAuth(c, log, err, "Token validation failed")
			return
		}

		ctx := c.Request.Context()
		if cfg.Revocations != nil && claims.ID != "" {
			revoked, err := cfg.Revocations.IsRevoked(ctx, claims.ID)
			switch {
			case err != nil:
				log.Error("failed to check token revocation", zap.String("jti", claims.ID), zap.Error(err))
			case revoked:
				abortAuth(c, log, auth.ErrTokenRevoked, "Token has been revoked")
				return
			}
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)
		c.Set(JWTTenantIDKey, claims.TenantID)

		ctx = logger.WithUserID(ctx, claims.UserID)
		ctx = logger.WithTenantID(ctx, claims.TenantID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeTokenInvalid, "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		message = "Token is not yet valid"
	case errors.Is(err, auth.ErrTokenRevoked):
		message = "Token has been revoked"
	case errors.Is(err, auth.ErrMissingTenantID), errors.Is(err, auth.ErrMissingUserID), errors.Is(err, auth.ErrInvalidClaims):
		message = "Token claims are incomplete"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message, c.GetString(RequestIDKey)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// RequireRole rejects callers whose token carries none of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims != nil && slices.ContainsFunc(claims.Roles, func(r string) bool { return slices.Contains(roles, r) }) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden,
			dto.NewErrorResponse(dto.ErrCodeForbidden, "Insufficient role", c.GetString(RequestIDKey)))
	}
}
