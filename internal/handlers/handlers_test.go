package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/website-analytics-api/internal/analytics"
	"github.com/PratikDhanave/website-analytics-api/internal/auth"
	"github.com/PratikDhanave/website-analytics-api/internal/logging"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
	"github.com/PratikDhanave/website-analytics-api/internal/store"
)

const testKey = "apikey_test"

func init() {
	gin.SetMode(gin.TestMode)
}

// downStore fails every event call.
type downStore struct{}

func (downStore) InsertEvent(context.Context, models.Event) error {
	return errors.New("store unavailable")
}

func (downStore) FindEvents(context.Context, store.EventFilter) ([]models.Event, error) {
	return nil, errors.New("store unavailable")
}

func newRouter(t *testing.T, events store.EventStore) (*gin.Engine, *store.MemoryStore) {
	t.Helper()
	mem := store.NewMemoryStore()
	require.NoError(t, mem.UpsertApplication(context.Background(), models.Application{
		AppID: "app1", OwnerID: "o1", APIKey: testKey, ExpiresAt: time.Now().Add(time.Hour),
	}))
	if events == nil {
		events = mem
	}

	logger := logging.Discard()
	svc := analytics.NewService(events, mem, nil, logger, time.Second)

	r := gin.New()
	g := r.Group("/")
	g.Use(auth.APIKeyMiddleware(auth.NewGate(mem, nil, logger)))
	RegisterEventRoutes(g, svc)
	RegisterSummaryRoutes(g, svc)
	return r, mem
}

func do(t *testing.T, r http.Handler, method, target, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testKey)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return rr.Code, out
}

func TestCollect_Created(t *testing.T) {
	r, mem := newRouter(t, nil)

	code, body := do(t, r, http.MethodPost, "/analytics/collect", `{
		"event": "click",
		"url": "https://example.com",
		"device": "desktop",
		"ipAddress": "127.0.0.1",
		"appId": "spoofed",
		"metadata": {"browser": "Chrome", "plugin": "ignored"}
	}`)

	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "Event recorded successfully", body["message"])

	event := body["event"].(map[string]any)
	assert.Equal(t, "app1", event["appId"], "appId comes from the key, never the payload")
	assert.Equal(t, map[string]any{"browser": "Chrome"}, event["metadata"])
	assert.NotEmpty(t, event["id"])
	assert.NotEmpty(t, event["timestamp"])

	stored, err := mem.FindEvents(context.Background(), store.EventFilter{AppID: "app1"})
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	spoofed, err := mem.FindEvents(context.Background(), store.EventFilter{AppID: "spoofed"})
	require.NoError(t, err)
	assert.Empty(t, spoofed)
}

func TestCollect_BadRequests(t *testing.T) {
	r, mem := newRouter(t, nil)

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"missing url", `{"event":"click","device":"desktop","ipAddress":"1.1.1.1"}`, "Missing required fields"},
		{"empty body", ``, "Missing required fields"},
		{"malformed json", `{"event":`, "Invalid JSON payload"},
		{"wrong type", `{"event":42}`, "Invalid JSON payload"},
		{"bad timestamp", `{"event":"click","url":"/","device":"d","ipAddress":"1.1.1.1","timestamp":"soon"}`, "Invalid timestamp format"},
		{"boolean timestamp", `{"event":"click","url":"/","device":"d","ipAddress":"1.1.1.1","timestamp":true}`, "Invalid timestamp format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, r, http.MethodPost, "/analytics/collect", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, tt.msg, body["message"])
		})
	}

	stored, _ := mem.FindEvents(context.Background(), store.EventFilter{AppID: "app1"})
	assert.Empty(t, stored)
}

func TestCollect_AcceptsEpochMillisAndDateTimeStrings(t *testing.T) {
	r, _ := newRouter(t, nil)

	for raw, want := range map[string]string{
		`1717243200000`:               "2024-06-01T12:00:00Z",
		`"2024-06-01 12:00:00"`:       "2024-06-01T12:00:00Z",
		`"2024-06-01T14:00:00+02:00"`: "2024-06-01T12:00:00Z",
	} {
		code, body := do(t, r, http.MethodPost, "/analytics/collect",
			`{"event":"click","url":"/","device":"d","ipAddress":"1.1.1.1","timestamp":`+raw+`}`)
		require.Equal(t, http.StatusCreated, code, raw)
		assert.Equal(t, want, body["event"].(map[string]any)["timestamp"], raw)
	}
}

func TestCollect_StoreFailure(t *testing.T) {
	r, _ := newRouter(t, downStore{})

	code, body := do(t, r, http.MethodPost, "/analytics/collect",
		`{"event":"click","url":"/","device":"d","ipAddress":"1.1.1.1"}`)

	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body["message"])
	assert.Equal(t, "store unavailable", body["error"])
}

func TestEventSummary(t *testing.T) {
	r, _ := newRouter(t, nil)
	for _, payload := range []string{
		`{"event":"click","url":"/","device":"desktop","ipAddress":"1.1.1.1","userId":"u1","timestamp":"2024-01-10T00:00:00Z"}`,
		`{"event":"click","url":"/","device":"mobile","ipAddress":"1.1.1.2","userId":"u2","timestamp":"2024-01-20T00:00:00Z"}`,
	} {
		code, _ := do(t, r, http.MethodPost, "/analytics/collect", payload)
		require.Equal(t, http.StatusCreated, code)
	}

	code, body := do(t, r, http.MethodGet, "/analytics/event-summary?event=click", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"event":       "click",
		"count":       2.0,
		"uniqueUsers": 2.0,
		"deviceData":  map[string]any{"desktop": 1.0, "mobile": 1.0},
	}, body)

	q := url.Values{"event": {"click"}, "startDate": {"2024-01-15"}}
	code, body = do(t, r, http.MethodGet, "/analytics/event-summary?"+q.Encode(), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1.0, body["count"])

	cases := []struct {
		query string
		code  int
		msg   string
	}{
		{"", http.StatusBadRequest, "Event parameter is required"},
		{"event=click&startDate=2024-01-01&endDate=nope", http.StatusBadRequest, "Invalid date format"},
		{"event=purchase", http.StatusNotFound, "No events found for the given criteria"},
		{"event=click&app_id=someone-else", http.StatusForbidden, "Not allowed to query this application"},
	}
	for _, c := range cases {
		code, body := do(t, r, http.MethodGet, "/analytics/event-summary?"+c.query, "")
		assert.Equal(t, c.code, code, c.query)
		assert.Equal(t, c.msg, body["message"], c.query)
	}
}

func TestUserStats(t *testing.T) {
	r, _ := newRouter(t, nil)
	code, _ := do(t, r, http.MethodPost, "/analytics/collect",
		`{"event":"view","url":"/","device":"desktop","ipAddress":"127.0.0.1","userId":"u1","metadata":{"browser":"Chrome","os":"Windows"}}`)
	require.Equal(t, http.StatusCreated, code)

	code, body := do(t, r, http.MethodGet, "/analytics/user-stats?userId=u1", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{
		"userId":        "u1",
		"totalEvents":   1.0,
		"deviceDetails": map[string]any{"browser": "Chrome", "os": "Windows"},
		"ipAddress":     "127.0.0.1",
	}, body)

	code, body = do(t, r, http.MethodGet, "/analytics/user-stats", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "userId parameter is required", body["message"])

	code, body = do(t, r, http.MethodGet, "/analytics/user-stats?userId=ghost", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "No events found for the given user", body["message"])
}

func TestRoutesRequireApplication(t *testing.T) {
	// Mounted without the middleware, handlers still refuse to run.
	mem := store.NewMemoryStore()
	svc := analytics.NewService(mem, mem, nil, logging.Discard(), 0)
	r := gin.New()
	RegisterEventRoutes(r, svc)
	RegisterSummaryRoutes(r, svc)

	for _, target := range []string{"/analytics/event-summary?event=click", "/analytics/user-stats?userId=u1"} {
		code, _ := do(t, r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusUnauthorized, code, target)
	}
	code, _ := do(t, r, http.MethodPost, "/analytics/collect", `{}`)
	assert.Equal(t, http.StatusUnauthorized, code)
}
