package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/website-analytics-api/internal/analytics"
	"github.com/PratikDhanave/website-analytics-api/internal/auth"
)

// RegisterSummaryRoutes registers the serving-path endpoints.
//
// GET /analytics/event-summary?event=...&startDate=...&endDate=...&app_id=...
// GET /analytics/user-stats?userId=...
// - Require X-API-Key (application context)
// - Scan every matching event; no pagination
func RegisterSummaryRoutes(r gin.IRoutes, svc *analytics.Service) {
	r.GET("/analytics/event-summary", func(c *gin.Context) {
		app, ok := auth.RequireApplication(c)
		if !ok {
			return
		}

		summary, err := svc.EventSummary(c.Request.Context(), app, analytics.SummaryQuery{
			Event:     c.Query("event"),
			StartDate: c.Query("startDate"),
			EndDate:   c.Query("endDate"),
			AppID:     c.Query("app_id"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	r.GET("/analytics/user-stats", func(c *gin.Context) {
		app, ok := auth.RequireApplication(c)
		if !ok {
			return
		}

		stats, err := svc.UserStats(c.Request.Context(), app.AppID, c.Query("userId"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}
