package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/PratikDhanave/website-analytics-api/internal/apperr"
)

// respondError writes err using the shared status/body mapping.
func respondError(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), apperr.Body(err))
}
