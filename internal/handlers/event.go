package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/website-analytics-api/internal/analytics"
	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
	"github.com/PratikDhanave/website-analytics-api/internal/auth"
	"github.com/PratikDhanave/website-analytics-api/internal/models"
)

// RegisterEventRoutes registers the ingestion-path endpoint.
//
// POST /analytics/collect
// - Requires X-API-Key (application context)
// - Durable: returns 201 only after the store write completes
// - Not idempotent: every accepted call stores a new event
//
// extra runs between authentication and the handler (e.g. rate limiting).
func RegisterEventRoutes(r gin.IRoutes, svc *analytics.Service, extra ...gin.HandlerFunc) {
	h := func(c *gin.Context) {
		app, ok := auth.RequireApplication(c)
		if !ok {
			return
		}

		var req models.CollectRequest
		// An empty body falls through to the required-field check.
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(c, apperr.BadRequest("Invalid JSON payload"))
			return
		}

		event, err := svc.Collect(c.Request.Context(), app.AppID, req)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, models.CollectResponse{
			Message: "Event recorded successfully",
			Event:   event,
		})
	}

	r.POST("/analytics/collect", append(extra, h)...)
}
