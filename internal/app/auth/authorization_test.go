package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
)

type fakeStudents map[int64][]int64

func (f fakeStudents) IDsForUser(_ context.Context, userID int64) ([]int64, error) {
	return f[userID], nil
}

type fakeTeachers map[int64]*models.Teacher

func (f fakeTeachers) GetTeacherByUserID(_ context.Context, userID int64) (*models.Teacher, error) {
	if t, ok := f[userID]; ok {
		return t, nil
	}
	return nil, apperrors.ErrTeacherNotFound
}

type fakeMemos map[int64]*models.StudentMemo

func (f fakeMemos) GetByID(_ context.Context, id int64) (*models.StudentMemo, error) {
	if m, ok := f[id]; ok {
		return m, nil
	}
	return nil, apperrors.ErrMemoNotFound
}

func newService() *AuthorizationService {
	return NewAuthorizationService(
		fakeStudents{10: {1}, 20: {1, 2}},
		fakeTeachers{30: {ID: 7, UserID: 30}},
		fakeMemos{5: {ID: 5, AuthorUserID: 30}},
	)
}

func TestStudentScope(t *testing.T) {
	s := newService()
	ctx := context.Background()

	tests := []struct {
		name  string
		actor Actor
		want  []int64
	}{
		{name: "admin unrestricted", actor: Actor{UserID: 1, Role: models.RoleAdmin}, want: nil},
		{name: "teacher unrestricted", actor: Actor{UserID: 30, Role: models.RoleTeacher}, want: nil},
		{name: "student own record", actor: Actor{UserID: 10, Role: models.RoleStudent}, want: []int64{1}},
		{name: "parent children", actor: Actor{UserID: 20, Role: models.RoleParent}, want: []int64{1, 2}},
		{name: "parent without children", actor: Actor{UserID: 99, Role: models.RoleParent}, want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.StudentScope(ctx, tt.actor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateStudentAccess(t *testing.T) {
	s := newService()
	ctx := context.Background()

	assert.NoError(t, s.ValidateStudentAccess(ctx, Actor{UserID: 10, Role: models.RoleStudent}, 1))
	err := s.ValidateStudentAccess(ctx, Actor{UserID: 10, Role: models.RoleStudent}, 2)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	assert.NoError(t, s.ValidateStudentAccess(ctx, Actor{UserID: 1, Role: models.RoleStaff}, 2))
}

func TestTeacherID(t *testing.T) {
	s := newService()
	ctx := context.Background()

	id, err := s.TeacherID(ctx, Actor{UserID: 30, Role: models.RoleTeacher})
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, int64(7), *id)

	id, err = s.TeacherID(ctx, Actor{UserID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Nil(t, id)

	_, err = s.TeacherID(ctx, Actor{UserID: 31, Role: models.RoleTeacher})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestValidateMemoOwnership(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.ValidateMemoOwnership(ctx, Actor{UserID: 30, Role: models.RoleTeacher}, 5)
	assert.NoError(t, err)

	_, err = s.ValidateMemoOwnership(ctx, Actor{UserID: 31, Role: models.RoleTeacher}, 5)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = s.ValidateMemoOwnership(ctx, Actor{UserID: 2, Role: models.RoleStaff}, 5)
	assert.NoError(t, err)

	_, err = s.ValidateMemoOwnership(ctx, Actor{UserID: 30, Role: models.RoleTeacher}, 404)
	assert.ErrorIs(t, err, apperrors.ErrMemoNotFound)
}
