package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	t.Run("burst then blocked", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 3)
		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("acct-1"), "request %d should be allowed", i+1)
		}
		assert.False(t, limiter.Allow("acct-1"))
	})

	t.Run("separate buckets per key", func(t *testing.T) {
		limiter := NewRateLimiter(0.001, 1)
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))
	})

	t.Run("refills over time", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(1, 1)
		limiter.now = func() time.Time { return now }

		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))

		now = now.Add(1500 * time.Millisecond)
		assert.True(t, limiter.Allow("a"))
	})

	t.Run("idle keys are evicted", func(t *testing.T) {
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		limiter := NewRateLimiter(1, 1)
		limiter.now = func() time.Time { return now }

		limiter.Allow("a")
		limiter.Allow("b")
		assert.Equal(t, 2, limiter.Len())

		now = now.Add(defaultIdleTTL + time.Minute)
		limiter.Allow("c")
		assert.Equal(t, 1, limiter.Len())
	})
}

func TestAccountRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)

	newRouter := func() *gin.Engine {
		router := gin.New()
		router.Use(AccountRateLimit(NewRateLimiter(0.001, 1)))
		ok := func(c *gin.Context) { c.Status(http.StatusAccepted) }
		router.POST("/accounts/:account_id/sync", ok)
		router.GET("/accounts/:account_id/sync", ok)
		router.POST("/health", ok)
		return router
	}

	do := func(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w
	}

	t.Run("throttles writes per account", func(t *testing.T) {
		router := newRouter()
		account := "/accounts/" + uuid.NewString() + "/sync"

		assert.Equal(t, http.StatusAccepted, do(router, http.MethodPost, account).Code)
		w := do(router, http.MethodPost, account)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), ErrCodeRateLimited)

		other := "/accounts/" + uuid.NewString() + "/sync"
		assert.Equal(t, http.StatusAccepted, do(router, http.MethodPost, other).Code)
	})

	t.Run("reads are not throttled", func(t *testing.T) {
		router := newRouter()
		account := "/accounts/" + uuid.NewString() + "/sync"
		for i := 0; i < 5; i++ {
			assert.Equal(t, http.StatusAccepted, do(router, http.MethodGet, account).Code)
		}
	})

	t.Run("routes without account pass", func(t *testing.T) {
		router := newRouter()
		for i := 0; i < 3; i++ {
			assert.Equal(t, http.StatusAccepted, do(router, http.MethodPost, "/health").Code)
		}
	})

	t.Run("nil limiter", func(t *testing.T) {
		router := gin.New()
		router.Use(AccountRateLimit(nil))
		router.POST("/accounts/:account_id/sync", func(c *gin.Context) { c.Status(http.StatusOK) })
		assert.Equal(t, http.StatusOK, do(router, http.MethodPost, "/accounts/x/sync").Code)
	})
}
