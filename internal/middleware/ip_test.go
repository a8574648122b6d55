package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"forum_go/internal/core/config"
)

func TestIsLocalIP(t *testing.T) {
	for _, ip := range []string{"localhost", "127.0.0.1", "::1", "10.1.2.3", "172.20.0.1", "192.168.1.9"} {
		assert.True(t, isLocalIP(ip), ip)
	}
	for _, ip := range []string{"8.8.8.8", "172.32.0.1", "garbage", ""} {
		assert.False(t, isLocalIP(ip), ip)
	}
}

func TestIPChecker(t *testing.T) {
	c := newIPChecker([]string{"203.0.113.0/24", " 198.51.100.7 "}, []string{"10.0.0.5", "203.0.113.66"})

	assert.True(t, c.isAllowed("203.0.113.10"))
	assert.True(t, c.isAllowed("198.51.100.7"))
	assert.True(t, c.isAllowed("192.168.0.2"))
	assert.False(t, c.isAllowed("203.0.113.66"))
	assert.False(t, c.isAllowed("10.0.0.5"))
	assert.False(t, c.isAllowed("8.8.8.8"))
}

func TestAdminWhitelistMW(t *testing.T) {
	r := gin.New()
	r.Use(AdminWhitelistMW(&config.SecurityConfig{AllowIPs: []string{"203.0.113.9"}}))
	r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.RemoteAddr = remote + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("127.0.0.1"))
	assert.Equal(t, http.StatusOK, do("203.0.113.9"))
	assert.Equal(t, http.StatusForbidden, do("8.8.8.8"))
}

func TestRateLimitMW(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMW(NewIPLimiter(2)))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = remote + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("8.8.8.8"))
	assert.Equal(t, http.StatusOK, do("8.8.8.8"))
	assert.Equal(t, http.StatusTooManyRequests, do("8.8.8.8"))
	assert.Equal(t, http.StatusOK, do("8.8.4.4"))
}

func TestRateLimitMWDisabled(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMW(nil))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
