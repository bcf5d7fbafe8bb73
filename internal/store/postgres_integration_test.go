//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// setupPostgresStore starts a throwaway Postgres and applies schema.sql.
func setupPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("analytics_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := NewPostgresStore(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	require.NoError(t, st.EnsureSchema(ctx))
	// Schema bootstrap must be repeatable.
	require.NoError(t, st.EnsureSchema(ctx))
	return st
}

func TestPostgresStore_EventsRoundTrip(t *testing.T) {
	st := setupPostgresStore(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []models.Event{
		{ID: uuid.NewString(), AppID: "app1", EventType: "click", URL: "/a", Device: "desktop", IPAddress: "10.0.0.1",
			Timestamp: base, UserID: "u1", Metadata: &models.Metadata{Browser: "Chrome", OS: "Windows"}},
		{ID: uuid.NewString(), AppID: "app1", EventType: "click", URL: "/b", Device: "mobile", IPAddress: "10.0.0.2",
			Timestamp: base.Add(-time.Hour), Referrer: "https://ref.example"},
		{ID: uuid.NewString(), AppID: "app2", EventType: "click", URL: "/c", Device: "mobile", IPAddress: "10.0.0.3",
			Timestamp: base},
	}
	for _, e := range events {
		require.NoError(t, st.InsertEvent(ctx, e))
	}

	got, err := st.FindEvents(ctx, EventFilter{AppID: "app1", EventType: "click"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Insertion order, not timestamp order.
	assert.Equal(t, events[0], got[0])
	assert.Equal(t, events[1], got[1])

	from := base
	got, err = st.FindEvents(ctx, EventFilter{AppID: "app1", EventType: "click", From: &from})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, events[0].ID, got[0].ID)

	got, err = st.FindEvents(ctx, EventFilter{AppID: "app1", UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Chrome", got[0].Metadata.Browser)
}

func TestPostgresStore_Registry(t *testing.T) {
	st := setupPostgresStore(t)
	ctx := context.Background()

	_, err := st.FindByKey(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	app := models.Application{
		AppID: "app1", OwnerID: "owner1", AppName: "Site", AppURL: "https://site.example",
		APIKey: "apikey_1", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, st.UpsertApplication(ctx, app))

	got, err := st.FindByKey(ctx, "apikey_1")
	require.NoError(t, err)
	assert.Equal(t, app, got)

	app.APIKey = "apikey_2"
	require.NoError(t, st.UpsertApplication(ctx, app))

	got, err = st.FindByAppID(ctx, "app1")
	require.NoError(t, err)
	assert.Equal(t, "apikey_2", got.APIKey)

	_, err = st.FindByKey(ctx, "apikey_1")
	assert.ErrorIs(t, err, ErrNotFound)

	err = st.UpsertApplication(ctx, models.Application{
		AppID: "app2", OwnerID: "owner2", APIKey: "apikey_2", ExpiresAt: app.ExpiresAt,
	})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}
