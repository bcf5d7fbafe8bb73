package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/website-analytics-api/internal/analytics"
	"github.com/PratikDhanave/website-analytics-api/internal/auth"
	"github.com/PratikDhanave/website-analytics-api/internal/config"
	"github.com/PratikDhanave/website-analytics-api/internal/handlers"
	"github.com/PratikDhanave/website-analytics-api/internal/metrics"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

// Dependencies are the collaborators NewRouter wires together.
type Dependencies struct {
	Store    store.Backend
	Registry store.KeyRegistry // key lookups; defaults to Store
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer // served on /metrics; defaults to the global registry
	Logger   *logrus.Logger
}

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready, /metrics
// Authenticated: /analytics/collect, /analytics/event-summary, /analytics/user-stats
func NewRouter(cfg config.Config, deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if deps.Registry == nil {
		deps.Registry = deps.Store
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.NewNop()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(Recovery(deps.Logger), RequestLogger(deps.Logger, deps.Metrics))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms the store dependency is reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	svc := analytics.NewService(deps.Store, deps.Registry, deps.Metrics, deps.Logger, cfg.StoreTimeout)
	gate := auth.NewGate(deps.Registry, deps.Metrics, deps.Logger)

	// Auth group enforces application context via X-API-Key.
	authGroup := r.Group("/")
	authGroup.Use(auth.APIKeyMiddleware(gate))

	var ingestLimits []gin.HandlerFunc
	if cfg.IngestRateLimit > 0 {
		limiter := NewRateLimiter(cfg.IngestRateLimit, cfg.IngestBurst)
		ingestLimits = append(ingestLimits, limiter.Middleware(deps.Metrics))
	}

	handlers.RegisterEventRoutes(authGroup, svc, ingestLimits...)
	handlers.RegisterSummaryRoutes(authGroup, svc)

	return r
}
