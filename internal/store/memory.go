package store

import (
	"context"
	"sync"

	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// MemoryStore keeps events and applications in process memory. It backs the
// "memory" driver for local runs and the unit tests.
type MemoryStore struct {
	mu     sync.RWMutex
	events []models.Event
	apps   map[string]models.Application // appID -> app
	keys   map[string]string             // apiKey -> appID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		apps: map[string]models.Application{},
		keys: map[string]string{},
	}
}

func (m *MemoryStore) EnsureSchema(context.Context) error { return nil }
func (m *MemoryStore) Ping(context.Context) error         { return nil }
func (m *MemoryStore) Close()                             {}

func (m *MemoryStore) InsertEvent(ctx context.Context, e models.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if e.Metadata != nil {
		md := *e.Metadata
		e.Metadata = &md
	}
	m.mu.Lock()
	m.events = append(m.events, e)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) FindEvents(ctx context.Context, f EventFilter) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Event
	for _, e := range m.events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) FindByKey(ctx context.Context, apiKey string) (models.Application, error) {
	if err := ctx.Err(); err != nil {
		return models.Application{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	appID, ok := m.keys[apiKey]
	if !ok {
		return models.Application{}, ErrNotFound
	}
	return m.apps[appID], nil
}

func (m *MemoryStore) FindByAppID(ctx context.Context, appID string) (models.Application, error) {
	if err := ctx.Err(); err != nil {
		return models.Application{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	app, ok := m.apps[appID]
	if !ok {
		return models.Application{}, ErrNotFound
	}
	return app, nil
}

func (m *MemoryStore) UpsertApplication(ctx context.Context, app models.Application) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, ok := m.keys[app.APIKey]; ok && owner != app.AppID {
		return ErrDuplicateKey
	}
	if prev, ok := m.apps[app.AppID]; ok {
		delete(m.keys, prev.APIKey)
	}
	m.apps[app.AppID] = app
	m.keys[app.APIKey] = app.AppID
	return nil
}
