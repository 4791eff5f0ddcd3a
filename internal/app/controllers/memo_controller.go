package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
)

// MemoService is the part of services.MemoService the controller needs
type MemoService interface {
	Create(ctx context.Context, actor appauth.Actor, req *dto.CreateMemoRequest) (*models.StudentMemo, error)
	ListByStudent(ctx context.Context, actor appauth.Actor, studentID int64) ([]*models.StudentMemo, error)
	Update(ctx context.Context, actor appauth.Actor, id int64, req *dto.UpdateMemoRequest) (*models.StudentMemo, error)
	Delete(ctx context.Context, actor appauth.Actor, id int64) error
}

// MemoController handles lesson notes about students
type MemoController struct {
	memos MemoService
}

// NewMemoController creates a new MemoController
func NewMemoController(memos MemoService) *MemoController {
	return &MemoController{memos: memos}
}

// CreateMemo writes a note about a student
// @Summary Create memo
// @Tags memos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateMemoRequest true "Memo"
// @Success 201 {object} dto.APIResponse{data=models.StudentMemo}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /memos [post]
func (c *MemoController) CreateMemo(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	var req dto.CreateMemoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	memo, err := c.memos.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(memo, "Memo created"))
}

// ListStudentMemos lists memos about a student. Students and parents only see
// the ones shared with them.
// @Summary Student memos
// @Tags memos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student record ID"
// @Success 200 {object} dto.APIResponse{data=[]models.StudentMemo}
// @Failure 403 {object} dto.ErrorResponse "Not your student"
// @Router /students/{id}/memos [get]
func (c *MemoController) ListStudentMemos(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	memos, err := c.memos.ListByStudent(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(memos, ""))
}

// UpdateMemo edits a memo
// @Summary Update memo
// @Tags memos
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memo ID"
// @Param request body dto.UpdateMemoRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.StudentMemo}
// @Failure 403 {object} dto.ErrorResponse "Teachers may only edit their own memos"
// @Failure 404 {object} dto.ErrorResponse "Memo not found"
// @Router /memos/{id} [put]
func (c *MemoController) UpdateMemo(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateMemoRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	memo, err := c.memos.Update(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(memo, "Memo updated"))
}

// DeleteMemo removes a memo
// @Summary Delete memo
// @Tags memos
// @Produce json
// @Security BearerAuth
// @Param id path int true "Memo ID"
// @Success 200 {object} dto.APIResponse "Memo deleted"
// @Failure 403 {object} dto.ErrorResponse "Teachers may only delete their own memos"
// @Failure 404 {object} dto.ErrorResponse "Memo not found"
// @Router /memos/{id} [delete]
func (c *MemoController) DeleteMemo(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.memos.Delete(ctx.Request.Context(), actor, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Memo deleted"))
}
