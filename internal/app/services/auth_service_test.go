package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/auth"
)

type authFixture struct {
	svc      *AuthService
	users    *fakeUsers
	tokens   *fakeTokens
	students *fakeStudents
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	users := newFakeUsers()
	tokens := newFakeTokens()
	students := newFakeStudents(users)
	jwt := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "lingoschool",
	})
	return &authFixture{
		svc:      NewAuthService(users, tokens, students, &fakeTx{}, jwt, zerolog.Nop()),
		users:    users,
		tokens:   tokens,
		students: students,
	}
}

func (f *authFixture) addUser(t *testing.T, email, password string, role models.RoleType, active bool) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Email: email, Password: hash, FirstName: "Test", RoleType: role, IsActive: active}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "admin@lingoschool.app", "changeme123", models.RoleAdmin, true)
	f.addUser(t, "gone@lingoschool.app", "changeme123", models.RoleStaff, false)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "valid", email: " Admin@LingoSchool.app", password: "changeme123"},
		{name: "wrong password", email: "admin@lingoschool.app", password: "nope", wantErr: apperrors.ErrInvalidCredentials},
		{name: "unknown email", email: "who@lingoschool.app", password: "changeme123", wantErr: apperrors.ErrInvalidCredentials},
		{name: "inactive", email: "gone@lingoschool.app", password: "changeme123", wantErr: apperrors.ErrAccountDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := f.svc.Login(context.Background(), &dto.LoginRequest{Email: tt.email, Password: tt.password})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, resp.AccessToken)
			assert.NotEmpty(t, resp.RefreshToken)
			assert.Equal(t, "Bearer", resp.TokenType)
		})
	}
}

func TestRefreshTokenRotates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "staff@lingoschool.app", "changeme123", models.RoleStaff, true)

	first, err := f.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "changeme123"})
	require.NoError(t, err)

	second, err := f.svc.RefreshToken(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)

	_, err = f.svc.RefreshToken(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestRefreshTokenRotatesOnlyOnce(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "staff@lingoschool.app", "changeme123", models.RoleStaff, true)

	first, err := f.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "changeme123"})
	require.NoError(t, err)

	// a parallel refresh revokes the token after this one looked it up
	f.tokens.beforeRevoke = func(token string) {
		f.tokens.revoked[token] = true
	}

	resp, err := f.svc.RefreshToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, apperrors.ErrTokenRevoked)
	assert.Nil(t, resp)
	assert.Equal(t, 0, f.tokens.active(u.ID))

	f.tokens.beforeRevoke = nil
	require.NoError(t, f.svc.Logout(ctx, u.ID, first.RefreshToken))
}

func TestLogoutAndChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "teacher@lingoschool.app", "changeme123", models.RoleTeacher, true)

	a, err := f.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "changeme123"})
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "changeme123"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.tokens.active(u.ID))

	require.NoError(t, f.svc.Logout(ctx, u.ID, a.RefreshToken))
	assert.Equal(t, 1, f.tokens.active(u.ID))

	err = f.svc.ChangePassword(ctx, u.ID, &dto.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpassword1"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	require.NoError(t, f.svc.ChangePassword(ctx, u.ID, &dto.ChangePasswordRequest{CurrentPassword: "changeme123", NewPassword: "newpassword1"}))
	assert.Equal(t, 0, f.tokens.active(u.ID))
	_, err = f.svc.Login(ctx, &dto.LoginRequest{Email: u.Email, Password: "newpassword1"})
	assert.NoError(t, err)
}

func TestMeForParent(t *testing.T) {
	f := newAuthFixture(t)
	parent := f.addUser(t, "parent@example.com", "changeme123", models.RoleParent, true)
	f.students.addStudent("2503140109", "kid@example.com", &parent.ID)

	me, err := f.svc.Me(context.Background(), parent.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, me.RoleType)
	assert.Len(t, me.StudentIDs, 1)
}
