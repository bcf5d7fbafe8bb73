package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikDhanave/website-analytics-api/internal/logging"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthedRouter(g *Gate, reached *bool) *gin.Engine {
	r := gin.New()
	r.Use(APIKeyMiddleware(g))
	r.GET("/whoami", func(c *gin.Context) {
		*reached = true
		c.JSON(http.StatusOK, gin.H{"appId": AppID(c)})
	})
	return r
}

func doGet(r http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if key != "" {
		req.Header.Set("x-api-key", key)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestAPIKeyMiddleware_AttachesApplication(t *testing.T) {
	g, _ := newTestGate(t, models.Application{AppID: "app1", OwnerID: "o1", APIKey: "good", ExpiresAt: now.Add(time.Hour)})
	var reached bool

	rr := doGet(newAuthedRouter(g, &reached), "good")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, reached)
	assert.Equal(t, "app1", decode(t, rr)["appId"])
}

func TestAPIKeyMiddleware_RejectsBeforeHandler(t *testing.T) {
	g, _ := newTestGate(t, models.Application{AppID: "app1", OwnerID: "o1", APIKey: "old", ExpiresAt: now})

	for key, msg := range map[string]string{
		"":     "API key is required",
		"nope": "Invalid API key",
		"old":  "API key has expired",
	} {
		var reached bool
		rr := doGet(newAuthedRouter(g, &reached), key)

		assert.Equal(t, http.StatusUnauthorized, rr.Code, key)
		assert.False(t, reached, key)
		assert.Equal(t, msg, decode(t, rr)["message"], key)
	}
}

func TestAPIKeyMiddleware_RegistryErrorHidesCause(t *testing.T) {
	g := NewGate(&failingRegistry{err: errors.New("dial tcp: secret-host:5432")}, nil, logging.Discard())
	var reached bool

	rr := doGet(newAuthedRouter(g, &reached), "any")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.False(t, reached)
	body := decode(t, rr)
	assert.Equal(t, "Internal server error", body["message"])
	assert.NotContains(t, body, "error")
}
