package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
	"github.com/PratikDhanave/website-analytics-api/internal/metrics"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

// Gate resolves API keys to applications.
type Gate struct {
	registry store.KeyRegistry
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	now      func() time.Time
}

// NewGate builds a Gate over registry.
func NewGate(registry store.KeyRegistry, m *metrics.Metrics, logger *logrus.Logger) *Gate {
	return &Gate{registry: registry, metrics: m, logger: logger, now: time.Now}
}

// Authenticate returns the application owning apiKey. Every rejection is an
// apperr: Unauthorized for missing, unknown or expired keys, Internal when the
// registry cannot be read.
func (g *Gate) Authenticate(ctx context.Context, apiKey string) (models.Application, error) {
	if apiKey == "" {
		g.reject("missing")
		return models.Application{}, apperr.Unauthorized("API key is required")
	}

	app, err := g.registry.FindByKey(ctx, apiKey)
	if errors.Is(err, store.ErrNotFound) {
		g.reject("invalid")
		return models.Application{}, apperr.Unauthorized("Invalid API key")
	}
	if err != nil {
		g.reject("error")
		g.logger.WithError(err).Error("error verifying API key")
		return models.Application{}, apperr.Internal(err)
	}

	if app.Expired(g.now()) {
		g.reject("expired")
		return models.Application{}, apperr.Unauthorized("API key has expired")
	}
	return app, nil
}

func (g *Gate) reject(reason string) {
	if g.metrics != nil {
		g.metrics.AuthFailures.WithLabelValues(reason).Inc()
	}
}
