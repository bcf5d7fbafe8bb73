package analytics

import (
	"context"
	"time"

	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// Collect validates req, stamps it with appID and an ingestion-time default
// timestamp, and writes exactly one event. Duplicate payloads are stored as
// separate events.
func (s *Service) Collect(ctx context.Context, appID string, req models.CollectRequest) (models.Event, error) {
	if req.Event == "" || req.URL == "" || req.Device == "" || req.IPAddress == "" {
		s.metrics.EventsIngested.WithLabelValues("invalid").Inc()
		return models.Event{}, apperr.BadRequest("Missing required fields")
	}

	ts, err := DecodeTimestamp(req.Timestamp)
	if err != nil {
		s.metrics.EventsIngested.WithLabelValues("invalid").Inc()
		return models.Event{}, apperr.BadRequest("Invalid timestamp format")
	}
	if ts.IsZero() {
		ts = s.now().UTC()
	}
	// Stores keep at most millisecond precision; the response must match
	// what a later read returns.
	ts = ts.Truncate(time.Millisecond)

	e := models.Event{
		ID:        s.newID(),
		EventType: req.Event,
		URL:       req.URL,
		Referrer:  req.Referrer,
		Device:    req.Device,
		IPAddress: req.IPAddress,
		Timestamp: ts,
		UserID:    req.UserID,
		AppID:     appID,
	}
	if req.Metadata != nil && *req.Metadata != (models.Metadata{}) {
		md := *req.Metadata
		e.Metadata = &md
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.events.InsertEvent(sctx, e); err != nil {
		s.metrics.EventsIngested.WithLabelValues("error").Inc()
		s.logger.WithError(err).WithField("app_id", appID).Error("error saving event")
		return models.Event{}, apperr.Internal(err)
	}

	s.metrics.EventsIngested.WithLabelValues("stored").Inc()
	return e, nil
}
