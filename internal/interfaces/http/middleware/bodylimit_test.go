package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func bodyLimitEngine(limit int64, rules ...BodyLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(BodyLimit(limit, rules...))
	read := func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusBadRequest, "body too large")
			return
		}
		c.String(http.StatusOK, "ok")
	}
	r.POST("/crm/deals", read)
	r.GET("/crm/deals", read)
	r.POST("/migration/sessions/:id/chunks", read)
	return r
}

func TestBodyLimit(t *testing.T) {
	upload := UploadLimit("/migration/sessions/:id/chunks", 1000)

	tests := []struct {
		name          string
		limit         int64
		method, path  string
		size          int
		unknownLength bool
		want          int
	}{
		{name: "within limit", limit: 100, method: http.MethodPost, path: "/crm/deals", size: 10, want: http.StatusOK},
		{name: "declared length over limit", limit: 100, method: http.MethodPost, path: "/crm/deals", size: 200, want: http.StatusRequestEntityTooLarge},
		{name: "streamed body over limit", limit: 50, method: http.MethodPost, path: "/crm/deals", size: 100, unknownLength: true, want: http.StatusBadRequest},
		{name: "get without body", limit: 10, method: http.MethodGet, path: "/crm/deals", want: http.StatusOK},
		{name: "zero disables", limit: 0, method: http.MethodPost, path: "/crm/deals", size: 4096, want: http.StatusOK},
		{name: "upload route uses its own limit", limit: 100, method: http.MethodPost, path: "/migration/sessions/42/chunks", size: 900, want: http.StatusOK},
		{name: "upload route still capped", limit: 100, method: http.MethodPost, path: "/migration/sessions/42/chunks", size: 1000 + multipartOverhead + 1, want: http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body io.Reader
			if tt.size > 0 {
				body = strings.NewReader(strings.Repeat("x", tt.size))
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			if tt.unknownLength {
				req.ContentLength = -1
			}
			w := httptest.NewRecorder()
			bodyLimitEngine(tt.limit, upload).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusRequestEntityTooLarge {
				assert.Contains(t, w.Body.String(), "ERR_PAYLOAD_TOO_LARGE")
			}
		})
	}
}
