package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/aura-events/backend/pkg/response"
)

// RateLimiter is a per-client-IP token bucket. Buckets idle for longer than the
// idle timeout are dropped, and at most maxClients are tracked at once.
//
// The key is gin's ClientIP, so the router's trusted proxies decide whether
// X-Forwarded-For is believed.
type RateLimiter struct {
	mu       sync.Mutex
	limiters *lru.LRU[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewRateLimiter allows requestsPerSecond sustained with bursts of burst.
func NewRateLimiter(requestsPerSecond float64, burst, maxClients int, idle time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: lru.NewLRU[string, *rate.Limiter](maxClients, nil, idle),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters.Get(key)
	if !ok {
		l = rate.NewLimiter(rl.rate, rl.burst)
	}
	// Re-adding refreshes the entry's expiry, so only idle clients age out.
	rl.limiters.Add(key, l)
	return l
}

// Clients returns the number of tracked clients.
func (rl *RateLimiter) Clients() int {
	return rl.limiters.Len()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			c.Header("X-RateLimit-Limit", strconv.Itoa(rl.burst))
			response.TooManyRequests(c, "rate limit exceeded")
			c.Abort()
			return
		}
		c.Next()
	}
}
