package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
)

// MemoService manages lesson notes
type MemoService struct {
	memos        MemoStore
	students     StudentStore
	reservations ReservationStore
	authz        *appauth.AuthorizationService
	logger       zerolog.Logger
}

// NewMemoService creates a new MemoService
func NewMemoService(memos MemoStore, students StudentStore, reservations ReservationStore, authz *appauth.AuthorizationService, logger zerolog.Logger) *MemoService {
	return &MemoService{memos: memos, students: students, reservations: reservations, authz: authz, logger: logger}
}

// Create writes a memo. A linked reservation must belong to the same student.
func (s *MemoService) Create(ctx context.Context, actor appauth.Actor, req *dto.CreateMemoRequest) (*models.StudentMemo, error) {
	if _, err := s.students.GetByID(ctx, req.StudentID); err != nil {
		return nil, err
	}
	if req.ReservationID != nil {
		res, err := s.reservations.GetByID(ctx, *req.ReservationID)
		if err != nil {
			return nil, err
		}
		if res.StudentID != req.StudentID {
			return nil, apperrors.NewValidationError("reservation belongs to another student")
		}
	}

	m := &models.StudentMemo{
		StudentID:        req.StudentID,
		AuthorUserID:     actor.UserID,
		ReservationID:    req.ReservationID,
		Content:          strings.TrimSpace(req.Content),
		VisibleToStudent: req.VisibleToStudent,
	}
	if m.Content == "" {
		return nil, apperrors.NewValidationError("memo content is required")
	}
	if err := s.memos.Create(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("memoId", m.ID).Int64("studentId", m.StudentID).Msg("Memo created")
	return m, nil
}

// ListByStudent returns a student's memos. Students and parents only see
// memos shared with them.
func (s *MemoService) ListByStudent(ctx context.Context, actor appauth.Actor, studentID int64) ([]*models.StudentMemo, error) {
	if err := s.authz.ValidateStudentAccess(ctx, actor, studentID); err != nil {
		return nil, err
	}
	visibleOnly := actor.Role == models.RoleStudent || actor.Role == models.RoleParent
	return s.memos.ListByStudent(ctx, studentID, visibleOnly)
}

// Update edits a memo the actor owns
func (s *MemoService) Update(ctx context.Context, actor appauth.Actor, id int64, req *dto.UpdateMemoRequest) (*models.StudentMemo, error) {
	m, err := s.authz.ValidateMemoOwnership(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Content != nil {
		content := strings.TrimSpace(*req.Content)
		if content == "" {
			return nil, apperrors.NewValidationError("memo content is required")
		}
		m.Content = content
	}
	if req.VisibleToStudent != nil {
		m.VisibleToStudent = *req.VisibleToStudent
	}
	if err := s.memos.Update(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Delete removes a memo the actor owns
func (s *MemoService) Delete(ctx context.Context, actor appauth.Actor, id int64) error {
	if _, err := s.authz.ValidateMemoOwnership(ctx, actor, id); err != nil {
		return err
	}
	if err := s.memos.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("memoId", id).Int64("userID", actor.UserID).Msg("Memo deleted")
	return nil
}
