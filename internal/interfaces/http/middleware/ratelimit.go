package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/MerlinStacks/woodash-dashboard-sub007/internal/interfaces/http/dto"
)

// ErrCodeRateLimited is returned when an account exceeds its request budget
const ErrCodeRateLimited = "ERR_RATE_LIMITED"

// defaultIdleTTL is how long an unused key keeps its bucket
const defaultIdleTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per key
type RateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per key with the given burst
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: defaultIdleTTL,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// Allow reports whether a request for key may proceed now
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idleTTL {
		rl.sweep(now)
	}

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than idleTTL. Callers hold mu.
func (rl *RateLimiter) sweep(now time.Time) {
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
	rl.lastSweep = now
}

// Len returns the number of tracked keys
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// AccountRateLimit throttles mutating requests (POST, PUT, PATCH, DELETE) per
// :account_id, so manual syncs cannot flood the storefront. Reads and routes
// without an account pass through.
func AccountRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	if limiter == nil {
		return passThrough
	}
	return func(c *gin.Context) {
		accountID := c.Param("account_id")
		if accountID == "" || isReadOnly(c.Request.Method) {
			c.Next()
			return
		}

		if !limiter.Allow(accountID) {
			retryAfter := 1
			if limiter.limit > 0 {
				retryAfter = max(1, int(1/float64(limiter.limit)))
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.NewErrorResponseWithRequestID(
				ErrCodeRateLimited,
				"Too many sync requests for this account, try again later",
				c.GetString("request_id"),
			))
			return
		}
		c.Next()
	}
}

func isReadOnly(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}
