package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// staleIPAfter is how long an IP may go unseen before its limiter entry is
// evicted. The callback route is unauthenticated, so the per-IP map must
// not grow without bound.
const staleIPAfter = 10 * time.Minute

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type rateLimiter struct {
	ips   map[string]*ipLimiter
	mu    sync.Mutex
	rate  rate.Limit
	burst int
}

func newRateLimiter(r rate.Limit, b int) *rateLimiter {
	return &rateLimiter{
		ips:   make(map[string]*ipLimiter),
		rate:  r,
		burst: b,
	}
}

func (rl *rateLimiter) limiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if entry, exists := rl.ips[ip]; exists {
		entry.lastSeen = now
		return entry.limiter
	}

	rl.evictStale(now)
	entry := &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst), lastSeen: now}
	rl.ips[ip] = entry
	return entry.limiter
}

// evictStale drops entries idle longer than staleIPAfter. Called with the
// lock held, on the new-IP path only, so steady traffic from known IPs pays
// nothing.
func (rl *rateLimiter) evictStale(now time.Time) {
	for ip, entry := range rl.ips {
		if now.Sub(entry.lastSeen) > staleIPAfter {
			delete(rl.ips, ip)
		}
	}
}

// RateLimitMiddleware limits requests per client IP. Used on the public
// gateway callback, which carries no auth.
func RateLimitMiddleware() gin.HandlerFunc {
	rl := newRateLimiter(rate.Every(time.Minute/100), 50)

	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			return
		}
		c.Next()
	}
}
