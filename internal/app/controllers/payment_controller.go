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

// PaymentService is the part of services.PaymentService the controller needs
type PaymentService interface {
	Record(ctx context.Context, recordedBy int64, req *dto.RecordPaymentRequest) (*models.Payment, error)
	Refund(ctx context.Context, id int64) (*models.Payment, error)
	Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Payment, error)
	List(ctx context.Context, actor appauth.Actor, filter dto.PaymentFilter, page, size int) (*dto.PaginatedResponse, error)
	Balance(ctx context.Context, actor appauth.Actor, studentID int64) (*models.StudentBalance, error)
}

// PaymentController handles payments and lesson balances
type PaymentController struct {
	payments PaymentService
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(payments PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// RecordPayment records money received for lessons
// @Summary Record payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RecordPaymentRequest true "Payment"
// @Success 201 {object} dto.APIResponse{data=models.Payment}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /payments [post]
func (c *PaymentController) RecordPayment(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req dto.RecordPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	payment, err := c.payments.Record(ctx.Request.Context(), actor.UserID, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(payment, "Payment recorded"))
}

// RefundPayment marks a payment as refunded
// @Summary Refund payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} dto.APIResponse{data=models.Payment}
// @Failure 400 {object} dto.ErrorResponse "Payment already refunded"
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Router /payments/{id}/refund [post]
func (c *PaymentController) RefundPayment(ctx *gin.Context) {
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	payment, err := c.payments.Refund(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(payment, "Payment refunded"))
}

// GetPayment returns one payment
// @Summary Get payment
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Payment ID"
// @Success 200 {object} dto.APIResponse{data=models.Payment}
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Router /payments/{id} [get]
func (c *PaymentController) GetPayment(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	payment, err := c.payments.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(payment, ""))
}

// ListPayments lists payments visible to the caller
// @Summary List payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param studentId query int false "Student record ID"
// @Param from query string false "Paid at or after"
// @Param to query string false "Paid before"
// @Param status query string false "PAID or REFUNDED"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]models.Payment}}
// @Router /payments [get]
func (c *PaymentController) ListPayments(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var filter dto.PaymentFilter
	studentID, err := middleware.ParseOptionalInt64Query(ctx, "studentId")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if studentID != nil {
		filter.StudentIDs = []int64{*studentID}
	}
	if filter.From, err = middleware.ParseOptionalTimeQuery(ctx, "from"); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if filter.To, err = middleware.ParseOptionalTimeQuery(ctx, "to"); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	filter.Status = models.PaymentStatus(strings.ToUpper(ctx.Query("status")))
	if filter.Status != "" && !filter.Status.IsValid() {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("unknown status "+string(filter.Status)))
		return
	}

	pg := helpers.PageFromQuery(ctx)
	result, err := c.payments.List(ctx.Request.Context(), actor, filter, pg.Number, pg.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}

// StudentBalance returns purchased, used and remaining lessons for a student
// @Summary Lesson balance
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student record ID"
// @Success 200 {object} dto.APIResponse{data=models.StudentBalance}
// @Failure 403 {object} dto.ErrorResponse "Not your student"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id}/balance [get]
func (c *PaymentController) StudentBalance(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	balance, err := c.payments.Balance(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(balance, ""))
}
