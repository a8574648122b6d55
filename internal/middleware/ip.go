package middleware

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"forum_go/internal/core/config"
	"forum_go/internal/core/logger"
	"forum_go/internal/pkg/apperr"
	"forum_go/internal/pkg/response"
)

// ipChecker admin allow/deny lists
type ipChecker struct {
	allowNets []*net.IPNet
	denyNets  []*net.IPNet
	allowSet  map[string]bool
	denySet   map[string]bool
}

// newIPChecker parse plain IPs and CIDR blocks
func newIPChecker(allow, deny []string) *ipChecker {
	c := &ipChecker{
		allowSet: make(map[string]bool),
		denySet:  make(map[string]bool),
	}
	add := func(entries []string, nets *[]*net.IPNet, set map[string]bool) {
		for _, ip := range entries {
			ip = strings.TrimSpace(ip)
			if ip == "" {
				continue
			}
			if _, n, err := net.ParseCIDR(ip); err == nil {
				*nets = append(*nets, n)
			} else {
				set[ip] = true
			}
		}
	}
	add(allow, &c.allowNets, c.allowSet)
	add(deny, &c.denyNets, c.denySet)
	return c
}

// isLocalIP loopback or RFC1918 private address
func isLocalIP(ipStr string) bool {
	if ipStr == "localhost" {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}

// denied explicit deny list match
func (c *ipChecker) denied(ipStr string) bool {
	if c.denySet[ipStr] {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range c.denyNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// isAllowed deny list wins, local addresses pass, everything else must be listed
func (c *ipChecker) isAllowed(ipStr string) bool {
	if c.denied(ipStr) {
		return false
	}
	if isLocalIP(ipStr) || c.allowSet[ipStr] {
		return true
	}
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range c.allowNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// AdminWhitelistMW Admin API IP whitelist
// - localhost and private networks allowed
// - configured allow list allowed
// - everything else rejected
func AdminWhitelistMW(cfg *config.SecurityConfig) gin.HandlerFunc {
	checker := newIPChecker(cfg.AllowIPs, cfg.DenyIPs)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if checker.isAllowed(clientIP) {
			c.Next()
			return
		}

		logger.Warn("admin access denied: IP not in whitelist",
			logger.String("ip", clientIP),
			logger.String("path", c.Request.URL.Path))
		response.FailWithCode(c, apperr.CodeForbidden, "access denied: IP not in whitelist")
	}
}

// IPLimiter per-IP token buckets
type IPLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipEntry
	limit    rate.Limit
	burst    int
	idle     time.Duration
	sweepAt  time.Time
}

type ipEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewIPLimiter allow perMinute requests per IP, with the same burst
func NewIPLimiter(perMinute int) *IPLimiter {
	return &IPLimiter{
		limiters: make(map[string]*ipEntry),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    perMinute,
		idle:     10 * time.Minute,
	}
}

// Allow take a token for ip
func (l *IPLimiter) Allow(ip string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, e := range l.limiters {
			if now.Sub(e.seen) > l.idle {
				delete(l.limiters, k)
			}
		}
		l.sweepAt = now.Add(l.idle)
	}

	e, ok := l.limiters[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[ip] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}

// RateLimitMW reject clients over their budget; a nil limiter disables it
func RateLimitMW(limiter *IPLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		ip := c.ClientIP()
		if !limiter.Allow(ip) {
			logger.Warn("rate limit exceeded",
				logger.String("ip", ip),
				logger.String("path", c.Request.URL.Path))
			response.FailWithCode(c, apperr.CodeTooManyRequests, "too many requests")
			return
		}
		c.Next()
	}
}
