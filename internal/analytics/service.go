// Package analytics holds the event ingestion path and the aggregation
// queries. Every operation is scoped to an authenticated application.
package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/website-analytics-api/internal/metrics"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

// Service implements ingestion and aggregation over an EventStore.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	events   store.EventStore
	registry store.KeyRegistry
	metrics  *metrics.Metrics
	logger   *logrus.Logger
	timeout  time.Duration

	now   func() time.Time
	newID func() string
}

// NewService wires a Service. timeout bounds each store call; zero means no
// extra bound beyond the caller's context.
func NewService(events store.EventStore, registry store.KeyRegistry, m *metrics.Metrics, logger *logrus.Logger, timeout time.Duration) *Service {
	if m == nil {
		m = metrics.NewNop()
	}
	return &Service{
		events:   events,
		registry: registry,
		metrics:  m,
		logger:   logger,
		timeout:  timeout,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
