package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/middleware"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
)

// StudentService is the part of services.StudentService the controller needs
type StudentService interface {
	Register(ctx context.Context, req *dto.RegisterStudentRequest) (*dto.StudentResponse, *dto.OfflineAcceptedResponse, error)
	ListOffline(ctx context.Context) ([]dto.OfflineRegistration, error)
	ImportOffline(ctx context.Context) (*dto.ImportResult, error)
	GetStudent(ctx context.Context, actor appauth.Actor, id int64) (*dto.StudentResponse, error)
	ListStudents(ctx context.Context, actor appauth.Actor, filter dto.StudentFilter, page, size int) (*dto.PaginatedResponse, error)
	MyStudents(ctx context.Context, actor appauth.Actor) ([]dto.StudentResponse, error)
	UpdateStudent(ctx context.Context, id int64, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	DeleteStudent(ctx context.Context, id int64) error
}

// StudentController handles enrollment and the student directory
type StudentController struct {
	students StudentService
	logger   zerolog.Logger
}

// NewStudentController creates a new StudentController
func NewStudentController(students StudentService, logger zerolog.Logger) *StudentController {
	return &StudentController{students: students, logger: logger}
}

// Register enrolls a student
// @Summary Register student
// @Description Creates the student account and issues a student ID. When the database is unreachable the registration is queued and 202 is returned with an offline ID.
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RegisterStudentRequest true "Student data"
// @Success 201 {object} dto.APIResponse{data=dto.StudentResponse} "Student registered"
// @Success 202 {object} dto.APIResponse{data=dto.OfflineAcceptedResponse} "Registration queued offline"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 409 {object} dto.ErrorResponse "Email already exists or daily IDs exhausted"
// @Router /students [post]
func (c *StudentController) Register(ctx *gin.Context) {
	var req dto.RegisterStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	student, queued, err := c.students.Register(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if queued != nil {
		c.logger.Warn().Str("offlineId", queued.OfflineID).Msg("Registration accepted offline")
		ctx.JSON(http.StatusAccepted, dto.NewSuccessResponse(queued, "Registration queued, it will be imported when the database is back"))
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(student, "Student registered successfully"))
}

// ListStudents lists students visible to the caller
// @Summary List students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param search query string false "Name, email or student ID contains"
// @Param status query string false "ACTIVE, PAUSED or WITHDRAWN"
// @Param page query int false "Page number (default: 1)"
// @Param size query int false "Page size (default: 10, max: 100)"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse{items=[]dto.StudentResponse}}
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /students [get]
func (c *StudentController) ListStudents(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	filter := dto.StudentFilter{
		Search: strings.TrimSpace(ctx.Query("search")),
		Status: models.StudentStatus(strings.ToUpper(ctx.Query("status"))),
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		middleware.HandleAPIError(ctx, apperrors.NewValidationError("unknown status "+string(filter.Status)))
		return
	}

	pg := helpers.PageFromQuery(ctx)
	result, err := c.students.ListStudents(ctx.Request.Context(), actor, filter, pg.Number, pg.Size)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}

// GetStudent returns one student
// @Summary Get student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student record ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 403 {object} dto.ErrorResponse "Not your student"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [get]
func (c *StudentController) GetStudent(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	student, err := c.students.GetStudent(ctx.Request.Context(), actor, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, ""))
}

// MyStudents returns the caller's own student record, or a parent's children
// @Summary My students
// @Tags students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.StudentResponse}
// @Failure 403 {object} dto.ErrorResponse "Only students and parents"
// @Router /me/students [get]
func (c *StudentController) MyStudents(ctx *gin.Context) {
	actor, ok := middleware.RequireActor(ctx)
	if !ok {
		return
	}

	students, err := c.students.MyStudents(ctx.Request.Context(), actor)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(students, ""))
}

// UpdateStudent updates phone, level, status or notes
// @Summary Update student
// @Tags students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student record ID" Format(int64) minimum(1)
// @Param request body dto.UpdateStudentRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=dto.StudentResponse}
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [put]
func (c *StudentController) UpdateStudent(ctx *gin.Context) {
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	var req dto.UpdateStudentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		middleware.BindingError(ctx, err)
		return
	}

	student, err := c.students.UpdateStudent(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(student, "Student updated successfully"))
}

// DeleteStudent deletes a student and the owning account
// @Summary Delete student
// @Tags students
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student record ID" Format(int64) minimum(1)
// @Success 200 {object} dto.APIResponse "Student deleted"
// @Failure 404 {object} dto.ErrorResponse "Student not found"
// @Router /students/{id} [delete]
func (c *StudentController) DeleteStudent(ctx *gin.Context) {
	id, err := middleware.ParseIDParam(ctx, "id")
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	if err := c.students.DeleteStudent(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Student deleted successfully"))
}

// ListOffline lists registrations waiting in the offline queue
// @Summary List offline registrations
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]dto.OfflineRegistration}
// @Router /admin/registrations/offline [get]
func (c *StudentController) ListOffline(ctx *gin.Context) {
	entries, err := c.students.ListOffline(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(entries, ""))
}

// ImportOffline replays the offline queue into the database
// @Summary Import offline registrations
// @Description Registers every queued entry with a real student ID. Imported entries leave the queue; failures stay and are reported.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.ImportResult}
// @Router /admin/registrations/offline/import [post]
func (c *StudentController) ImportOffline(ctx *gin.Context) {
	result, err := c.students.ImportOffline(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	c.logger.Info().Int("imported", len(result.Imported)).Int("failed", len(result.Failed)).Msg("Offline registrations imported")
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(result, ""))
}
