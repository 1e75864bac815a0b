package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stocker/backend/internal/interfaces/http/dto"
)

// RateLimiter is a fixed-window in-memory limiter keyed by caller.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	now     func() time.Time
	stop    chan struct{}
}

type window struct {
	remaining int
	resetAt   time.Time
}

// NewRateLimiter starts a limiter allowing limit requests per window. Call
// Stop to end its cleanup goroutine.
func NewRateLimiter(limit int, every time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  every,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

func (rl *RateLimiter) Stop() { close(rl.stop) }

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, w := range rl.clients {
				if now.After(w.resetAt) {
					delete(rl.clients, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Allow consumes one request for key and reports whether it fits the
// window, together with what is left.
func (rl *RateLimiter) Allow(key string) (bool, int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{remaining: rl.limit, resetAt: now.Add(rl.window)}
		rl.clients[key] = w
	}
	if w.remaining == 0 {
		return false, 0
	}
	w.remaining--
	return true, w.remaining
}

// RateLimit limits each tenant and client IP pair.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if tenantID := GetTenantID(c); tenantID != uuid.Nil {
			key = tenantID.String() + ":" + key
		}

		allowed, remaining := limiter.Allow(key)
		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponse(
				dto.ErrCodeRateLimited, "Too many requests. Please try again later.", c.GetString(RequestIDKey)))
			return
		}
		c.Next()
	}
}
