package store

import (
	"context"
	"errors"
	"time"

	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

var (
	// ErrNotFound is returned by KeyRegistry lookups that match nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateKey is returned when an API key already belongs to another
	// application.
	ErrDuplicateKey = errors.New("api key already registered to another application")
)

// EventFilter selects events for one application. Empty fields do not filter.
// From and To are inclusive.
type EventFilter struct {
	AppID     string
	EventType string
	UserID    string
	From      *time.Time
	To        *time.Time
}

// Match reports whether e satisfies the filter.
func (f EventFilter) Match(e models.Event) bool {
	if e.AppID != f.AppID {
		return false
	}
	if f.EventType != "" && e.EventType != f.EventType {
		return false
	}
	if f.UserID != "" && e.UserID != f.UserID {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// EventStore is the append-only event log.
//
// FindEvents returns matches in insertion order.
type EventStore interface {
	InsertEvent(ctx context.Context, e models.Event) error
	FindEvents(ctx context.Context, f EventFilter) ([]models.Event, error)
}

// KeyRegistry resolves API keys to applications. An API key belongs to at most
// one application; UpsertApplication fails with ErrDuplicateKey otherwise.
type KeyRegistry interface {
	FindByKey(ctx context.Context, apiKey string) (models.Application, error)
	FindByAppID(ctx context.Context, appID string) (models.Application, error)
	UpsertApplication(ctx context.Context, app models.Application) error
}

// Backend is a full storage backend as wired by cmd/api.
type Backend interface {
	EventStore
	KeyRegistry
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

var (
	_ Backend = (*PostgresStore)(nil)
	_ Backend = (*MongoStore)(nil)
	_ Backend = (*MemoryStore)(nil)
)
