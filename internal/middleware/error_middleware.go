package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

type errorMapping struct {
	targets []error
	status  int
	code    dto.ErrorCode
	message string
}

// Checked in order; the first match wins.
var errorMappings = []errorMapping{
	{
		targets: []error{apperrors.ErrUserNotFound, apperrors.ErrStudentNotFound, apperrors.ErrTeacherNotFound,
			apperrors.ErrStaffNotFound, apperrors.ErrReservationNotFound, apperrors.ErrPaymentNotFound,
			apperrors.ErrAgreementNotFound, apperrors.ErrMemoNotFound, apperrors.ErrInquiryNotFound,
			apperrors.ErrTrialRequestNotFound, apperrors.ErrOfflineEntryNotFound, apperrors.ErrResourceNotFound},
		status: http.StatusNotFound, code: dto.ErrorCodeResourceNotFound, message: "Resource not found",
	},
	{
		targets: []error{apperrors.ErrPermissionDenied},
		status:  http.StatusForbidden, code: dto.ErrorCodeForbidden, message: "Permission denied",
	},
	{
		targets: []error{apperrors.ErrAccountDisabled},
		status:  http.StatusForbidden, code: dto.ErrorCodeAccountDisabled, message: "Account disabled",
	},
	{
		targets: []error{apperrors.ErrInvalidCredentials},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeInvalidCredentials, message: "Invalid credentials",
	},
	{
		targets: []error{apperrors.ErrTokenExpired},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeExpiredToken, message: "Token expired",
	},
	{
		targets: []error{apperrors.ErrTokenNotFound},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeTokenNotFound, message: "Token not found",
	},
	{
		targets: []error{apperrors.ErrTokenInvalid, apperrors.ErrTokenRevoked, apperrors.ErrInvalidFormat},
		status:  http.StatusUnauthorized, code: dto.ErrorCodeInvalidToken, message: "Invalid token",
	},
	{
		targets: []error{apperrors.ErrValidationFailed, apperrors.ErrUnsupportedDuration,
			apperrors.ErrInvalidStatusChange, apperrors.ErrInvalidSignatureImage},
		status: http.StatusBadRequest, code: dto.ErrorCodeValidationFailed, message: "Validation failed",
	},
	{
		targets: []error{apperrors.ErrBadRequest},
		status:  http.StatusBadRequest, code: dto.ErrorCodeBadRequest, message: "Bad request",
	},
	{
		targets: []error{apperrors.ErrEmailAlreadyExists, apperrors.ErrStudentIDAlreadyExists, apperrors.ErrResourceAlreadyExists},
		status:  http.StatusConflict, code: dto.ErrorCodeResourceAlreadyExists, message: "Resource already exists",
	},
	{
		targets: []error{apperrors.ErrReservationConflict, apperrors.ErrStudentIDExhausted, apperrors.ErrConflict},
		status:  http.StatusConflict, code: dto.ErrorCodeConflict, message: "Conflict",
	},
	{
		targets: []error{apperrors.ErrServiceUnavailable},
		status:  http.StatusServiceUnavailable, code: dto.ErrorCodeServiceUnavailable, message: "Service temporarily unavailable",
	},
}

// HandleAPIError maps err onto an HTTP status and writes the error envelope.
// Sentinel errors carry their own text as details; CustomError messages
// replace the generic message.
func HandleAPIError(c *gin.Context, err error) {
	status, detail := describeError(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error().Err(err).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}

func describeError(err error) (int, *dto.ErrorDetail) {
	for _, m := range errorMappings {
		for _, target := range m.targets {
			if !errors.Is(err, target) {
				continue
			}
			detail := dto.NewErrorDetail(m.code, m.message)
			var custom *apperrors.CustomError
			if errors.As(err, &custom) && custom.Message != "" {
				detail.Message = custom.Message
				if len(custom.Details) > 0 {
					detail.Details = custom.Details
				}
			} else {
				detail.Details = target.Error()
			}
			if m.status == http.StatusServiceUnavailable {
				detail.Severity = dto.ErrorSeverityCritical
			}
			return m.status, detail
		}
	}
	return http.StatusInternalServerError,
		dto.NewErrorDetail(dto.ErrorCodeInternalServer, "Internal server error").WithSeverity(dto.ErrorSeverityCritical)
}

// BindingError writes a 400 for a request that failed to bind or validate
func BindingError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
}
