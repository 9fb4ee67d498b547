package middlewares

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Limiter is a fixed-window counter. Allow reports whether the caller may
// proceed and, when denied, how long until the window resets.
type Limiter interface {
	Allow(ctx context.Context, key string) (retryAfter time.Duration, allowed bool)
}

// MemoryLimiter is the in-process fallback used when no redis is
// configured. Per-instance counters only.
type MemoryLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*clientBucket),
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (time.Duration, bool) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.clients[key]

	if !ok || now.After(b.windowEnd) {
		rl.clients[key] = &clientBucket{
			count:     1,
			windowEnd: now.Add(rl.window),
		}
		return 0, true
	}

	if b.count >= rl.limit {
		retryAfter := time.Until(b.windowEnd)

		if retryAfter < 0 {
			retryAfter = 0
		}
		return retryAfter, false
	}

	b.count++
	return 0, true
}

// LoginRateLimit throttles login POSTs per client IP. Denied requests get a
// flash and bounce back to the login page they came from.
func LoginRateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		retryAfter, ok := l.Allow(c.Request.Context(), "login:"+clientIP(c))

		if !ok {
			seconds := int(retryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			SetFlash(c, FlashError, "Too many login attempts. Please try again shortly.")
			c.Redirect(http.StatusSeeOther, c.Request.URL.Path)
			c.Abort()
			return
		}

		c.Next()
	}
}

func clientIP(c *gin.Context) string {
	// Gin's ClientIP respects X-Forwarded-For / X-Real-IP if configured.
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)

	if err == nil && host != "" {
		return host
	}

	return ip
}
