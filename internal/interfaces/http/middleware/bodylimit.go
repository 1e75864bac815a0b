package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/interfaces/http/dto"
)

// multipartOverhead is allowed on top of an upload limit for boundaries,
// part headers and small form fields.
const multipartOverhead = 64 << 10

// BodyLimitRule overrides the default limit for one route pattern, as
// reported by gin's FullPath. Rules without a positive MaxBytes are ignored.
type BodyLimitRule struct {
	Method   string
	Route    string
	MaxBytes int64
}

// UploadLimit allows a multipart body that carries a file of up to
// maxFileBytes.
func UploadLimit(route string, maxFileBytes int64) BodyLimitRule {
	if maxFileBytes <= 0 {
		return BodyLimitRule{Method: http.MethodPost, Route: route}
	}
	return BodyLimitRule{Method: http.MethodPost, Route: route, MaxBytes: maxFileBytes + multipartOverhead}
}

// BodyLimit rejects requests whose declared length exceeds the limit and
// caps the body reader for the rest. A limit <= 0 disables the check.
func BodyLimit(maxBytes int64, rules ...BodyLimitRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := maxBytes
		for _, r := range rules {
			if r.MaxBytes > 0 && r.Method == c.Request.Method && r.Route == c.FullPath() {
				limit = r.MaxBytes
				break
			}
		}
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(
				dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size", c.GetString(RequestIDKey)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
