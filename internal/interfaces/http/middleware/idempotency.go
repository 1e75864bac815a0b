package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	IdempotencyKeyHeader    = "Idempotency-Key"
	IdempotencyReplayHeader = "Idempotent-Replayed"
)

// Idempotency claims the Idempotency-Key of unsafe requests. A key that is
// already claimed by the same tenant gets 409. The claim is released when
// the request does not succeed so the client can retry with the same key.
// Requests without the header pass through.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
		if key == "" || isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > 255 {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Idempotency-Key is too long", c.GetString(RequestIDKey)))
			return
		}

		storeKey := "http:" + GetTenantID(c).String() + ":" + c.Request.Method + ":" + c.FullPath() + ":" + key
		ctx := c.Request.Context()
		claimed, err := store.MarkProcessed(ctx, storeKey, ttl)
		if err != nil {
			log.Warn("idempotency store unavailable, processing request", zap.Error(err))
			c.Next()
			return
		}
		if !claimed {
			c.Header(IdempotencyReplayHeader, "true")
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponse(dto.ErrCodeIdempotencyConflict,
				"A request with this Idempotency-Key was already processed", c.GetString(RequestIDKey)))
			return
		}

		c.Next()

		if status := c.Writer.Status(); status >= http.StatusBadRequest {
			// The request context may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			defer cancel()
			if err := store.Release(releaseCtx, storeKey); err != nil {
				log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
			}
		}
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
