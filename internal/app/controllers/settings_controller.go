package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/lessonsettings"
)

// SettingsService is the part of services.SettingsService the controller needs
type SettingsService interface {
	LessonDurations(ctx context.Context) ([]lessonsettings.DurationBuffer, error)
	MergeLessonDurations(ctx context.Context, updates []lessonsettings.DurationBuffer, updatedBy int64) ([]lessonsettings.DurationBuffer, error)
	RemoveLessonDuration(ctx context.Context, duration int, updatedBy int64) ([]lessonsettings.DurationBuffer, error)
}

// SettingsController exposes the lesson duration settings
type SettingsController struct {
	settings SettingsService
}

// NewSettingsController creates a new SettingsController
func NewSettingsController(settings SettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

// GetLessonDurations lists the bookable lesson lengths with their buffers
// @Summary Lesson durations
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.LessonDurationsResponse}
// @Router /settings/lesson-durations [get]
func (c *SettingsController) GetLessonDurations(ctx *gin.Context) {
	durations, err := c.settings.LessonDurations(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.LessonDurationsResponse{Durations: durations}, ""))
}

// UpdateLessonDurations merges durations into the configured set
// @Summary Merge lesson durations
// @Description Entries are matched by duration; existing buffers are overwritten and new durations added.
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdateLessonDurationsRequest true "Durations to add or change"
// @Success 200 {object} dto.APIResponse{data=dto.LessonDurationsResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Router /settings/lesson-durations [put]
func (c *SettingsController) UpdateLessonDurations(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req dto.UpdateLessonDurationsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	durations, err := c.settings.MergeLessonDurations(ctx.Request.Context(), req.Durations, actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.LessonDurationsResponse{Durations: durations}, "Lesson durations updated"))
}

// DeleteLessonDuration removes one duration
// @Summary Remove lesson duration
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param duration path int true "Duration in minutes"
// @Success 200 {object} dto.APIResponse{data=dto.LessonDurationsResponse}
// @Failure 404 {object} dto.ErrorResponse "Duration not configured"
// @Router /settings/lesson-durations/{duration} [delete]
func (c *SettingsController) DeleteLessonDuration(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	duration, err := strconv.Atoi(ctx.Param("duration"))
	if err != nil || duration <= 0 {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("duration must be a positive number of minutes"))
		return
	}

	durations, err := c.settings.RemoveLessonDuration(ctx.Request.Context(), duration, actor.UserID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.LessonDurationsResponse{Durations: durations}, "Lesson duration removed"))
}
