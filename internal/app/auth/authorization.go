package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID int64
	Role   models.RoleType
}

// IsBackOffice reports admins and staff
func (a Actor) IsBackOffice() bool {
	return a.Role.IsBackOffice()
}

// StudentLookup resolves which students a user may act for
type StudentLookup interface {
	IDsForUser(ctx context.Context, userID int64) ([]int64, error)
}

// TeacherLookup resolves the teacher profile of a user
type TeacherLookup interface {
	GetTeacherByUserID(ctx context.Context, userID int64) (*models.Teacher, error)
}

// MemoLookup loads a memo to check its author
type MemoLookup interface {
	GetByID(ctx context.Context, id int64) (*models.StudentMemo, error)
}

// AuthorizationService answers ownership questions that roles alone cannot
type AuthorizationService struct {
	students StudentLookup
	teachers TeacherLookup
	memos    MemoLookup
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(students StudentLookup, teachers TeacherLookup, memos MemoLookup) *AuthorizationService {
	return &AuthorizationService{students: students, teachers: teachers, memos: memos}
}

// StudentScope returns the students the actor is limited to. A nil slice
// means no limit (back office and teachers).
func (s *AuthorizationService) StudentScope(ctx context.Context, actor Actor) ([]int64, error) {
	switch actor.Role {
	case models.RoleAdmin, models.RoleStaff, models.RoleTeacher:
		return nil, nil
	case models.RoleStudent, models.RoleParent:
		ids, err := s.students.IDsForUser(ctx, actor.UserID)
		if err != nil {
			logger.Error().Err(err).Int64("userID", actor.UserID).Msg("Error resolving student scope")
			return nil, fmt.Errorf("failed to resolve student scope: %w", err)
		}
		if ids == nil {
			ids = []int64{}
		}
		return ids, nil
	}
	return nil, apperrors.ErrPermissionDenied
}

// ValidateStudentAccess fails with ErrPermissionDenied when the actor may not
// see studentID
func (s *AuthorizationService) ValidateStudentAccess(ctx context.Context, actor Actor, studentID int64) error {
	scope, err := s.StudentScope(ctx, actor)
	if err != nil {
		return err
	}
	if scope != nil && !slices.Contains(scope, studentID) {
		return apperrors.NewForbiddenError("you can only access your own student records")
	}
	return nil
}

// TeacherID returns the teacher profile ID when the actor is a teacher
func (s *AuthorizationService) TeacherID(ctx context.Context, actor Actor) (*int64, error) {
	if actor.Role != models.RoleTeacher {
		return nil, nil
	}
	t, err := s.teachers.GetTeacherByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrTeacherNotFound) {
			logger.Warn().Int64("userID", actor.UserID).Msg("Teacher profile missing for TEACHER user")
			return nil, apperrors.NewForbiddenError("teacher profile not found")
		}
		return nil, fmt.Errorf("error getting teacher: %w", err)
	}
	return &t.ID, nil
}

// ValidateMemoOwnership lets admins and staff change any memo and teachers
// only the memos they wrote.
func (s *AuthorizationService) ValidateMemoOwnership(ctx context.Context, actor Actor, memoID int64) (*models.StudentMemo, error) {
	memo, err := s.memos.GetByID(ctx, memoID)
	if err != nil {
		return nil, err
	}
	if actor.IsBackOffice() {
		return memo, nil
	}
	if actor.Role == models.RoleTeacher && memo.AuthorUserID == actor.UserID {
		return memo, nil
	}
	return nil, apperrors.NewForbiddenError("you can only modify your own memos")
}
