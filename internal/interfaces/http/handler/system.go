package handler

import (
	"context"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// SystemHandler serves liveness, readiness and build information.
type SystemHandler struct {
	name      string
	version   string
	startTime time.Time
	timeout   time.Duration
	checks    map[string]HealthCheck
}

func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		startTime: time.Now(),
		timeout:   2 * time.Second,
		checks:    make(map[string]HealthCheck),
	}
}

// AddCheck registers a readiness dependency.
func (h *SystemHandler) AddCheck(name string, check HealthCheck) *SystemHandler {
	h.checks[name] = check
	return h
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"stocker"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// ReadinessResponse lists the state of each dependency.
// @name HandlerReadinessResponse
type ReadinessResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks"`
	Time   string            `json:"time" example:"2026-01-23T12:00:00Z"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Security     BearerAuth
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}))
}

// Liveness answers as long as the process serves HTTP.
func (h *SystemHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness runs every registered check concurrently and reports 503 when
// any of them fails.
func (h *SystemHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		healthy = true
		results = make(map[string]string, len(h.checks))
	)
	for name, check := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				healthy = false
				results[name] = "error"
				logger.L(ctx).Warn("readiness check failed", zap.String("check", name), zap.Error(err))
				return
			}
			results[name] = "ok"
		}()
	}
	wg.Wait()

	resp := ReadinessResponse{Status: "ready", Checks: results, Time: time.Now().UTC().Format(time.RFC3339)}
	if !healthy {
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}
