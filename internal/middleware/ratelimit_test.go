package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	r := NewInMemoryRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, r.Allow("1.2.3.4"), "request %d", i+1)
	}
	assert.False(t, r.Allow("1.2.3.4"))

	// keys are independent
	assert.True(t, r.Allow("5.6.7.8"))
}

func TestRateLimiterWindowResets(t *testing.T) {
	r := NewInMemoryRateLimiter(1, 30*time.Millisecond)

	assert.True(t, r.Allow("1.2.3.4"))
	assert.False(t, r.Allow("1.2.3.4"))

	time.Sleep(40 * time.Millisecond)
	assert.True(t, r.Allow("1.2.3.4"))
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/ping", RateLimit(NewInMemoryRateLimiter(2, time.Hour)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() int {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusOK, do())
	assert.Equal(t, http.StatusTooManyRequests, do())
}
