package httpserver

import (
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
	"github.com/PratikDhanave/website-analytics-api/internal/auth"
	"github.com/PratikDhanave/website-analytics-api/internal/metrics"
)

// RateLimiter keeps one token bucket per application.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewRateLimiter allows perSecond events per application with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow consumes one token from appID's bucket.
func (l *RateLimiter) Allow(appID string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[appID]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[appID] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// Middleware rejects requests over the caller's budget with 429. It must run
// after authentication.
func (l *RateLimiter) Middleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(auth.AppID(c)) {
			m.EventsIngested.WithLabelValues("rate_limited").Inc()
			err := apperr.TooManyRequests("Rate limit exceeded")
			c.AbortWithStatusJSON(apperr.Status(err), apperr.Body(err))
			return
		}
		c.Next()
	}
}
