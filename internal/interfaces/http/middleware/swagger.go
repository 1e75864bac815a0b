package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/infrastructure/config"
	"github.com/stocker/backend/internal/interfaces/http/dto"
)

// SwaggerProtection guards the API docs: disabled docs are 404, an IP
// allow-list (CIDR supported) gives 403, and auth can be required.
func SwaggerProtection(cfg config.SwaggerConfig, auth gin.HandlerFunc) gin.HandlerFunc {
	var nets []*net.IPNet
	for _, entry := range cfg.AllowedIPs {
		if !strings.Contains(entry, "/") {
			if strings.Contains(entry, ":") {
				entry += "/128"
			} else {
				entry += "/32"
			}
		}
		if _, n, err := net.ParseCIDR(entry); err == nil {
			nets = append(nets, n)
		}
	}

	return func(c *gin.Context) {
		if !cfg.Enabled {
			c.AbortWithStatusJSON(http.StatusNotFound, dto.NewErrorResponse(
				dto.ErrCodeNotFound, "API documentation is not available", c.GetString(RequestIDKey)))
			return
		}
		if len(cfg.AllowedIPs) > 0 && !ipAllowed(net.ParseIP(c.ClientIP()), nets) {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponse(
				dto.ErrCodeForbidden, "Access to API documentation is restricted", c.GetString(RequestIDKey)))
			return
		}
		if cfg.RequireAuth && auth != nil {
			auth(c)
			if c.IsAborted() {
				return
			}
		}
		c.Next()
	}
}

func ipAllowed(ip net.IP, nets []*net.IPNet) bool {
	if ip == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
