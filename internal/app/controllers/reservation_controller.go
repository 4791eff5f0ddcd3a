package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
)

// ReservationService is the part of services.ReservationService the controller needs
type ReservationService interface {
	Create(ctx context.Context, actor appauth.Actor, req *dto.CreateReservationRequest) (*models.Reservation, error)
	Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Reservation, error)
	List(ctx context.Context, actor appauth.Actor, filter dto.ReservationFilter, page, size int) (*dto.PaginatedResponse, error)
	UpdateStatus(ctx context.Context, actor appauth.Actor, id int64, status models.ReservationStatus) (*models.Reservation, error)
	Reschedule(ctx context.Context, actor appauth.Actor, id int64, req *dto.RescheduleRequest) (*models.Reservation, error)
	Delete(ctx context.Context, id int64) error
}

// ReservationController handles lesson scheduling
type ReservationController struct {
	reservations ReservationService
}

// NewReservationController creates a new ReservationController
func NewReservationController(reservations ReservationService) *ReservationController {
	return &ReservationController{reservations: reservations}
}

// CreateReservation books a lesson
// @Summary Book lesson
// @Description Books a lesson for a student with a teacher. The slot plus the duration's buffer must not overlap the teacher's other scheduled lessons.
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateReservationRequest true "Lesson"
// @Success 201 {object} dto.APIResponse{data=models.Reservation}
// @Failure 400 {object} dto.ErrorResponse "Validation error or duration not configured"
// @Failure 409 {object} dto.ErrorResponse "Teacher already booked"
// @Router /reservations [post]
func (c *ReservationController) CreateReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req dto.CreateReservationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	res, err := c.reservations.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(res, "Lesson booked"))
}

// ListReservations lists lessons visible to the caller
// @Summary List lessons
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Student record ID"
// @Param teacherId query int false "Teacher ID"
// @Param from query string false "Start at or after (RFC 3339 or YYYY-MM-DD)"
// @Param to query string false "Start before (RFC 3339 or YYYY-MM-DD)"
// @Param status query string false "SCHEDULED, COMPLETED, CANCELLED or NO_SHOW"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Reservation}}
// @Router /reservations [get]
func (c *ReservationController) ListReservations(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	filter, err := parseReservationFilter(ctx)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	pg := helpers.PageFromQuery(ctx)
	result, err := c.reservations.List(ctx.Request.Context(), actor, filter, pg.Number, pg.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}

func parseReservationFilter(ctx *gin.Context) (dto.ReservationFilter, error) {
	var filter dto.ReservationFilter
	studentID, err := middleware.ParseOptionalInt64Query(ctx, "studentId")
	if err != nil {
		return filter, err
	}
	if studentID != nil {
		filter.StudentIDs = []int64{*studentID}
	}
	if filter.TeacherID, err = middleware.ParseOptionalInt64Query(ctx, "teacherId"); err != nil {
		return filter, err
	}
	if filter.From, err = middleware.ParseOptionalTimeQuery(ctx, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = middleware.ParseOptionalTimeQuery(ctx, "to"); err != nil {
		return filter, err
	}
	filter.Status = models.ReservationStatus(strings.ToUpper(ctx.Query("status")))
	if filter.Status != "" && !filter.Status.IsValid() {
		return filter, apperrors.NewValidationError("unknown status " + string(filter.Status))
	}
	return filter, nil
}

// GetReservation returns one lesson
// @Summary Get lesson
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} dto.APIResponse{data=models.Reservation}
// @Failure 403 {object} dto.ErrorResponse "Not your lesson"
// @Failure 404 {object} dto.ErrorResponse "Reservation not found"
// @Router /reservations/{id} [get]
func (c *ReservationController) GetReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	res, err := c.reservations.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, ""))
}

// UpdateReservationStatus completes, cancels or marks a lesson as no-show
// @Summary Change lesson status
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Param request body dto.UpdateReservationStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Reservation}
// @Failure 400 {object} dto.ErrorResponse "Transition not allowed"
// @Failure 404 {object} dto.ErrorResponse "Reservation not found"
// @Router /reservations/{id}/status [patch]
func (c *ReservationController) UpdateReservationStatus(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateReservationStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	res, err := c.reservations.UpdateStatus(ctx.Request.Context(), actor, id, req.Status)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, "Lesson status updated"))
}

// RescheduleReservation moves a scheduled lesson
// @Summary Reschedule lesson
// @Tags reservations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Param request body dto.RescheduleRequest true "New slot"
// @Success 200 {object} dto.APIResponse{data=models.Reservation}
// @Failure 400 {object} dto.ErrorResponse "Lesson is not scheduled"
// @Failure 409 {object} dto.ErrorResponse "Teacher already booked"
// @Router /reservations/{id} [put]
func (c *ReservationController) RescheduleReservation(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.RescheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	res, err := c.reservations.Reschedule(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(res, "Lesson rescheduled"))
}

// DeleteReservation removes a lesson
// @Summary Delete lesson
// @Tags reservations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Reservation ID"
// @Success 200 {object} dto.APIResponse "Lesson deleted"
// @Failure 404 {object} dto.ErrorResponse "Reservation not found"
// @Router /reservations/{id} [delete]
func (c *ReservationController) DeleteReservation(ctx *gin.Context) {
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.reservations.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Lesson deleted"))
}
