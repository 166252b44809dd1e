package middlewares

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RoleLimits is requests per window by caller tier. Anonymous callers get Guest.
type RoleLimits struct {
	Admin int
	User  int
	Guest int
}

// DefaultRoleLimits are per minute.
var DefaultRoleLimits = RoleLimits{Admin: 20, User: 10, Guest: 5}

// RateLimiter is a fixed window counter keyed by user id (or client IP for anonymous
// callers). Counters live in process memory, so limits are per instance.
type RateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	limits  RoleLimits
	clients map[string]*clientBucket
	now     func() time.Time
}

type clientBucket struct {
	count     int
	windowEnd time.Time
}

func NewRateLimiter(limits RoleLimits, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		window:  window,
		clients: make(map[string]*clientBucket),
		now:     time.Now,
	}
}

// Middleware reads the identity left by RequireAuth when it ran earlier in the chain.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key, limit := rl.keyAndLimit(c)

		now := rl.now()

		rl.mu.Lock()

		b, ok := rl.clients[key]

		if !ok || now.After(b.windowEnd) {
			rl.clients[key] = &clientBucket{
				count:     1,
				windowEnd: now.Add(rl.window),
			}
			rl.sweepLocked(now)

			rl.mu.Unlock()
			c.Next()
			return
		}

		if b.count >= limit {
			retryAfter := int(b.windowEnd.Sub(now).Seconds())

			if retryAfter < 0 {
				retryAfter = 0
			}

			rl.mu.Unlock()

			c.Header("Retry-After", strconv.Itoa(retryAfter))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "Too many requests",
				"message": "Request limit exceeded. Please try again shortly.",
			})

			return
		}

		b.count++
		rl.mu.Unlock()
		c.Next()
	}
}

func (rl *RateLimiter) keyAndLimit(c *gin.Context) (string, int) {
	identity, ok := IdentityFromContext(c)
	if !ok {
		return "ip:" + clientIP(c), rl.limits.Guest
	}

	key := "user:" + strconv.FormatInt(identity.ID, 10)

	switch identity.Role {
	case user.RoleAdmin:
		return key, rl.limits.Admin
	case user.RoleUser:
		return key, rl.limits.User
	default:
		return key, rl.limits.Guest
	}
}

// sweepLocked drops expired buckets once the map grows, so idle clients do not pile up.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	if len(rl.clients) < 1024 {
		return
	}
	for k, b := range rl.clients {
		if now.After(b.windowEnd) {
			delete(rl.clients, k)
		}
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
