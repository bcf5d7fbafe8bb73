package analytics

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

const unknown = "Unknown"

// SummaryQuery is the raw input of an event summary. Dates are unparsed so
// that validation happens here, before any store access.
type SummaryQuery struct {
	Event     string
	StartDate string
	EndDate   string
	AppID     string // optional override of the caller's application
}

// EventSummary counts events of one type for an application, optionally
// bounded by an inclusive time range. Either bound may be given alone.
func (s *Service) EventSummary(ctx context.Context, caller models.Application, q SummaryQuery) (models.EventSummary, error) {
	summary, err := s.eventSummary(ctx, caller, q)
	s.metrics.Queries.WithLabelValues("event_summary", outcome(err)).Inc()
	return summary, err
}

func (s *Service) eventSummary(ctx context.Context, caller models.Application, q SummaryQuery) (models.EventSummary, error) {
	if q.Event == "" {
		return models.EventSummary{}, apperr.BadRequest("Event parameter is required")
	}

	f := store.EventFilter{AppID: caller.AppID, EventType: q.Event}
	var err error
	if f.From, err = parseBound(q.StartDate); err != nil {
		return models.EventSummary{}, err
	}
	if f.To, err = parseBound(q.EndDate); err != nil {
		return models.EventSummary{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if q.AppID != "" && q.AppID != caller.AppID {
		if err := s.authorizeCrossApp(sctx, caller, q.AppID); err != nil {
			return models.EventSummary{}, err
		}
		f.AppID = q.AppID
	}

	events, err := s.events.FindEvents(sctx, f)
	if err != nil {
		s.logger.WithError(err).WithField("app_id", f.AppID).Error("error fetching event summary")
		return models.EventSummary{}, apperr.Internal(err)
	}
	if len(events) == 0 {
		return models.EventSummary{}, apperr.NotFound("No events found for the given criteria")
	}

	return Summarize(q.Event, events), nil
}

// authorizeCrossApp allows querying another application only when it belongs
// to the caller's owner.
func (s *Service) authorizeCrossApp(ctx context.Context, caller models.Application, appID string) error {
	target, err := s.registry.FindByAppID(ctx, appID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Forbidden("Not allowed to query this application")
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if caller.OwnerID == "" || target.OwnerID != caller.OwnerID {
		s.logger.WithFields(logrus.Fields{
			"app_id":        caller.AppID,
			"target_app_id": appID,
		}).Warn("cross-application query denied")
		return apperr.Forbidden("Not allowed to query this application")
	}
	return nil
}

// Summarize aggregates events that already share one type. Anonymous events
// count together as a single user.
func Summarize(event string, events []models.Event) models.EventSummary {
	users := make(map[string]struct{}, len(events))
	devices := make(map[string]int)
	for _, e := range events {
		users[e.UserID] = struct{}{}
		devices[e.Device]++
	}
	return models.EventSummary{
		Event:       event,
		Count:       len(events),
		UniqueUsers: len(users),
		DeviceData:  devices,
	}
}

// UserStats reports activity of one user within the caller's application.
func (s *Service) UserStats(ctx context.Context, appID, userID string) (models.UserStats, error) {
	stats, err := s.userStats(ctx, appID, userID)
	s.metrics.Queries.WithLabelValues("user_stats", outcome(err)).Inc()
	return stats, err
}

func (s *Service) userStats(ctx context.Context, appID, userID string) (models.UserStats, error) {
	if userID == "" {
		return models.UserStats{}, apperr.BadRequest("userId parameter is required")
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	events, err := s.events.FindEvents(sctx, store.EventFilter{AppID: appID, UserID: userID})
	if err != nil {
		s.logger.WithError(err).WithField("app_id", appID).Error("error fetching user stats")
		return models.UserStats{}, apperr.Internal(err)
	}
	if len(events) == 0 {
		return models.UserStats{}, apperr.NotFound("No events found for the given user")
	}

	recent := MostRecent(events)
	stats := models.UserStats{
		UserID:        userID,
		TotalEvents:   len(events),
		DeviceDetails: models.DeviceDetails{Browser: unknown, OS: unknown},
		IPAddress:     orUnknown(recent.IPAddress),
	}
	if md := recent.Metadata; md != nil {
		stats.DeviceDetails.Browser = orUnknown(md.Browser)
		stats.DeviceDetails.OS = orUnknown(md.OS)
	}
	return stats, nil
}

// MostRecent returns the event with the latest timestamp. Ties go to the one
// later in store order. events must be non-empty.
func MostRecent(events []models.Event) models.Event {
	best := events[0]
	for _, e := range events[1:] {
		if !e.Timestamp.Before(best.Timestamp) {
			best = e
		}
	}
	return best
}

func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := ParseDateTime(s)
	if err != nil {
		return nil, apperr.BadRequest("Invalid date format")
	}
	return &t, nil
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	switch apperr.KindOf(err) {
	case apperr.KindBadRequest:
		return "invalid"
	case apperr.KindNotFound:
		return "empty"
	case apperr.KindForbidden:
		return "forbidden"
	default:
		return "error"
	}
}
