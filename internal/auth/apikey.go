package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// APIKeyHeader carries the caller's key.
const APIKeyHeader = "X-API-Key"

// appCtxKey is the Gin context key used to store the authenticated application.
const appCtxKey = "application"

// APIKeyMiddleware resolves X-API-Key → application and aborts the request
// before any handler runs when the key is rejected.
func APIKeyMiddleware(gate *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := strings.TrimSpace(c.GetHeader(APIKeyHeader))

		app, err := gate.Authenticate(c.Request.Context(), apiKey)
		if err != nil {
			// Credential failures never leak the registry error.
			body := gin.H{"message": "Internal server error"}
			if apperr.KindOf(err) == apperr.KindUnauthorized {
				body = apperr.Body(err)
			}
			c.AbortWithStatusJSON(apperr.Status(err), body)
			return
		}
		c.Set(appCtxKey, app)
		c.Next()
	}
}

// Application returns the authenticated application from the request context.
func Application(c *gin.Context) (models.Application, bool) {
	v, ok := c.Get(appCtxKey)
	if !ok {
		return models.Application{}, false
	}
	app, ok := v.(models.Application)
	return app, ok
}

// AppID returns the authenticated application ID, or "" when unauthenticated.
func AppID(c *gin.Context) string {
	app, _ := Application(c)
	return app.AppID
}

// RequireApplication is a helper for handlers mounted without the middleware.
func RequireApplication(c *gin.Context) (models.Application, bool) {
	app, ok := Application(c)
	if !ok || app.AppID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "API key is required"})
		return models.Application{}, false
	}
	return app, true
}
