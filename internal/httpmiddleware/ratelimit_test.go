package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestAllowRefills(t *testing.T) {
	l := NewTokenBucket(2, 60)
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Minute)
	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "refill is capped at capacity")
}

func TestZeroRateDisablesLimit(t *testing.T) {
	l := NewTokenBucket(0, 0)
	for i := 0; i < 10; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestMiddlewareKeysBySubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := NewTokenBucket(1, 1)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("sub", c.GetHeader("X-Sub")) })
	r.GET("/", l.Middleware(func(c *gin.Context) string { return c.GetString("sub") }), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	do := func(sub string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Sub", sub)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusNoContent, do("staff-1"))
	assert.Equal(t, http.StatusTooManyRequests, do("staff-1"))
	assert.Equal(t, http.StatusNoContent, do("staff-2"))
	assert.Equal(t, http.StatusNoContent, do(""), "anonymous callers share the IP bucket")
	assert.Equal(t, http.StatusTooManyRequests, do(""))
}
