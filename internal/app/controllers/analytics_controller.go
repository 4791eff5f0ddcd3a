package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
)

// AnalyticsService is the part of services.AnalyticsService the controller needs
type AnalyticsService interface {
	Summary(ctx context.Context, from, to *time.Time) (*models.Analytics, error)
}

// AnalyticsController serves the admin dashboard numbers
type AnalyticsController struct {
	analytics AnalyticsService
}

// NewAnalyticsController creates a new AnalyticsController
func NewAnalyticsController(analytics AnalyticsService) *AnalyticsController {
	return &AnalyticsController{analytics: analytics}
}

// GetAnalytics summarises students, lessons, revenue and intake for a period
// @Summary Dashboard analytics
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param from query string false "Period start (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Period end, exclusive"
// @Success 200 {object} dto.APIResponse{data=models.Analytics}
// @Failure 400 {object} dto.ErrorResponse "Invalid period"
// @Router /admin/analytics [get]
func (c *AnalyticsController) GetAnalytics(ctx *gin.Context) {
	from, err := middleware.ParseOptionalTimeQuery(ctx, "from")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	to, err := middleware.ParseOptionalTimeQuery(ctx, "to")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	summary, err := c.analytics.Summary(ctx.Request.Context(), from, to)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(summary, ""))
}
