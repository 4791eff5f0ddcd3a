package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
)

// IntakeService is the part of services.IntakeService the controller needs
type IntakeService interface {
	SubmitContact(ctx context.Context, req *dto.ContactRequest) (*models.ContactInquiry, error)
	SubmitTrial(ctx context.Context, req *dto.TrialRequest) (*models.TrialLessonRequest, error)
	ListContacts(ctx context.Context, status models.InquiryStatus, page, size int) (*dto.PaginatedResponse, error)
	ListTrials(ctx context.Context, status models.TrialStatus, page, size int) (*dto.PaginatedResponse, error)
	UpdateContactStatus(ctx context.Context, id int64, status models.InquiryStatus) error
	UpdateTrialStatus(ctx context.Context, id int64, status models.TrialStatus) error
}

// IntakeController serves the public contact and trial lesson forms
type IntakeController struct {
	intake IntakeService
	logger zerolog.Logger
}

// NewIntakeController creates a new IntakeController
func NewIntakeController(intake IntakeService, logger zerolog.Logger) *IntakeController {
	return &IntakeController{intake: intake, logger: logger}
}

// SubmitContact stores a contact form message
// @Summary Contact form
// @Tags public
// @Accept json
// @Produce json
// @Param request body dto.ContactRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=models.ContactInquiry}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Router /public/contact [post]
func (c *IntakeController) SubmitContact(ctx *gin.Context) {
	var req dto.ContactRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	inquiry, err := c.intake.SubmitContact(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Int64("inquiryId", inquiry.ID).Msg("Contact inquiry received")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(inquiry, "Thank you, we will get back to you soon"))
}

// SubmitTrial stores a trial lesson request
// @Summary Trial lesson request
// @Tags public
// @Accept json
// @Produce json
// @Param request body dto.TrialRequest true "Request"
// @Success 201 {object} dto.APIResponse{data=models.TrialLessonRequest}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Router /public/trial-requests [post]
func (c *IntakeController) SubmitTrial(ctx *gin.Context) {
	var req dto.TrialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	trial, err := c.intake.SubmitTrial(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Int64("trialRequestId", trial.ID).Str("language", trial.Language).Msg("Trial lesson requested")
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(trial, "Trial lesson requested"))
}

// ListContacts lists contact inquiries
// @Summary List contact inquiries
// @Tags intake
// @Produce json
// @Security BearerAuth
// @Param status query string false "NEW, RESPONDED or CLOSED"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.ContactInquiry}}
// @Router /inquiries/contact [get]
func (c *IntakeController) ListContacts(ctx *gin.Context) {
	status := models.InquiryStatus(strings.ToUpper(ctx.Query("status")))
	if status != "" && !status.IsValid() {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("unknown status "+string(status)))
		return
	}

	pg := helpers.PageFromQuery(ctx)
	result, err := c.intake.ListContacts(ctx.Request.Context(), status, pg.Number, pg.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}

// ListTrials lists trial lesson requests
// @Summary List trial requests
// @Tags intake
// @Produce json
// @Security BearerAuth
// @Param status query string false "PENDING, SCHEDULED or DECLINED"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.TrialLessonRequest}}
// @Router /inquiries/trials [get]
func (c *IntakeController) ListTrials(ctx *gin.Context) {
	status := models.TrialStatus(strings.ToUpper(ctx.Query("status")))
	if status != "" && !status.IsValid() {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("unknown status "+string(status)))
		return
	}

	pg := helpers.PageFromQuery(ctx)
	result, err := c.intake.ListTrials(ctx.Request.Context(), status, pg.Number, pg.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}

// UpdateContactStatus changes the handling state of an inquiry
// @Summary Update inquiry status
// @Tags intake
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Inquiry ID"
// @Param request body dto.UpdateInquiryStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Inquiry not found"
// @Router /inquiries/contact/{id}/status [patch]
func (c *IntakeController) UpdateContactStatus(ctx *gin.Context) {
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	var req dto.UpdateInquiryStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	if err := c.intake.UpdateContactStatus(ctx.Request.Context(), id, req.Status); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Status updated"))
}

// UpdateTrialStatus changes the handling state of a trial request
// @Summary Update trial request status
// @Tags intake
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Trial request ID"
// @Param request body dto.UpdateTrialStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse "Trial request not found"
// @Router /inquiries/trials/{id}/status [patch]
func (c *IntakeController) UpdateTrialStatus(ctx *gin.Context) {
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	var req dto.UpdateTrialStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	if err := c.intake.UpdateTrialStatus(ctx.Request.Context(), id, req.Status); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Status updated"))
}
