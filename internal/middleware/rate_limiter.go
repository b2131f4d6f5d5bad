package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"maaztelecom/internal/apierror"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ── Per-IP rate limiter ───────────────────────────────────────────────────────
// Guards the unauthenticated public surface (sale verification). Each client
// IP gets a token bucket; idle buckets are purged in the background.

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiterEntry
	rate     rate.Limit
	burst    int
	entryTTL time.Duration
}

// NewIPRateLimiter allows perMinute requests per IP with bursts of up to
// burst. The purge loop stops when done is closed.
func NewIPRateLimiter(perMinute, burst int, done <-chan struct{}) *IPRateLimiter {
	if perMinute < 1 {
		perMinute = 60
	}
	if burst < 1 {
		burst = 1
	}
	rl := &IPRateLimiter{
		limiters: make(map[string]*ipLimiterEntry),
		rate:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		entryTTL: 10 * time.Minute,
	}
	go rl.cleanupLoop(done)
	return rl
}

func (rl *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &ipLimiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

func (rl *IPRateLimiter) cleanupLoop(done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			rl.cleanup(time.Now())
		}
	}
}

func (rl *IPRateLimiter) cleanup(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := now.Add(-rl.entryTTL)
	for ip, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, ip)
		}
	}
}

func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, please try again shortly"))
			return
		}
		c.Next()
	}
}
