package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/preventive-care-server/internal/domain"
)

// maxTrackedClients bounds the number of per-client limiters kept in memory.
const maxTrackedClients = 10000

// ClientRateLimiter keeps one token bucket per client IP.
type ClientRateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

// NewClientRateLimiter creates a per-client limiter
func NewClientRateLimiter(requestsPerSecond float64, burst int) *ClientRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	// lru.New only fails on a non-positive size
	limiters, _ := lru.New[string, *rate.Limiter](maxTrackedClients)
	return &ClientRateLimiter{
		limiters: limiters,
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Limiter returns the token bucket for a client, creating it on first use.
func (l *ClientRateLimiter) Limiter(client string) *rate.Limiter {
	if limiter, ok := l.limiters.Get(client); ok {
		return limiter
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	if existing, ok, _ := l.limiters.PeekOrAdd(client, limiter); ok {
		return existing
	}
	return limiter
}

// Middleware rejects requests over the client's budget with 429 and the standard error envelope.
func (l *ClientRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Limiter(c.ClientIP()).Allow() {
			c.Next()
			return
		}

		retryAfter := time.Second
		if l.rate > 0 {
			retryAfter = time.Duration(float64(time.Second) / float64(l.rate))
		}
		c.Header("Retry-After", strconv.Itoa(max(1, int(retryAfter.Seconds()))))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.NewAPIError(
			domain.ErrCodeRateLimit,
			"Too many requests",
			"",
			c.GetString(CorrelationIDKey),
		))
	}
}
