package controllers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
)

// AgreementService is the part of services.AgreementService the controller needs
type AgreementService interface {
	Sign(ctx context.Context, actor appauth.Actor, req *dto.SignAgreementRequest) (*models.Agreement, error)
	Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Agreement, error)
	ListByStudent(ctx context.Context, actor appauth.Actor, studentID int64) ([]*models.Agreement, error)
	PDF(ctx context.Context, actor appauth.Actor, id int64) ([]byte, string, error)
}

// AgreementController handles enrollment agreements
type AgreementController struct {
	agreements AgreementService
}

// NewAgreementController creates a new AgreementController
func NewAgreementController(agreements AgreementService) *AgreementController {
	return &AgreementController{agreements: agreements}
}

// SignAgreement stores a signed agreement and archives its PDF
// @Summary Sign agreement
// @Tags agreements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.SignAgreementRequest true "Signature"
// @Success 201 {object} dto.APIResponse{data=models.Agreement}
// @Failure 400 {object} dto.ErrorResponse "Signature is not a PNG data URL"
// @Failure 403 {object} dto.ErrorResponse "Not your student"
// @Router /agreements [post]
func (c *AgreementController) SignAgreement(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req dto.SignAgreementRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	agreement, err := c.agreements.Sign(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(agreement, "Agreement signed"))
}

// GetAgreement returns one agreement
// @Summary Get agreement
// @Tags agreements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Agreement ID"
// @Success 200 {object} dto.APIResponse{data=models.Agreement}
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Router /agreements/{id} [get]
func (c *AgreementController) GetAgreement(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	agreement, err := c.agreements.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(agreement, ""))
}

// ListStudentAgreements lists a student's agreements
// @Summary Student agreements
// @Tags agreements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student record ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Agreement}
// @Failure 403 {object} dto.ErrorResponse "Not your student"
// @Router /students/{id}/agreements [get]
func (c *AgreementController) ListStudentAgreements(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	agreements, err := c.agreements.ListByStudent(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(agreements, ""))
}

// DownloadAgreementPDF streams the agreement as a PDF
// @Summary Download agreement PDF
// @Tags agreements
// @Produce application/pdf
// @Security BearerAuth
// @Param id path int true "Agreement ID"
// @Success 200 {file} binary "Agreement PDF"
// @Failure 403 {object} dto.ErrorResponse "Not your student"
// @Failure 404 {object} dto.ErrorResponse "Agreement not found"
// @Router /agreements/{id}/pdf [get]
func (c *AgreementController) DownloadAgreementPDF(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	body, filename, err := c.agreements.PDF(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	ctx.Data(http.StatusOK, "application/pdf", body)
}
