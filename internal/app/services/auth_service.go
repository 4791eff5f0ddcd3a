package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/auth"
)

// AuthService handles authentication operations
type AuthService struct {
	users      UserStore
	tokens     TokenStore
	students   StudentStore
	tx         db.Transactor
	jwtService *auth.JWTService
	logger     zerolog.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserStore,
	tokens TokenStore,
	students StudentStore,
	tx db.Transactor,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		students:   students,
		tx:         tx,
		jwtService: jwtService,
		logger:     logger,
	}
}

// NormalizeEmail trims and lowercases an address before lookup or storage
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to update last login time")
	}

	return s.generateTokenResponse(ctx, user)
}

// RefreshToken rotates a refresh token: the old one is revoked and a new
// pair is issued.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	var resp *dto.TokenResponse
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		userID, err := s.tokens.GetUserIDByToken(ctx, refreshToken)
		if err != nil {
			return err
		}

		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			return fmt.Errorf("user not found: %w", err)
		}

		if err := s.tokens.RevokeToken(ctx, refreshToken); err != nil {
			return fmt.Errorf("failed to revoke old token: %w", err)
		}
		if !user.IsActive {
			return apperrors.ErrAccountDisabled
		}

		resp, err = s.generateTokenResponse(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Logout revokes refreshToken, or every token of the user when none is given
func (s *AuthService) Logout(ctx context.Context, userID int64, refreshToken string) error {
	if refreshToken == "" {
		return s.tokens.RevokeAllUserTokens(ctx, userID)
	}
	if err := s.tokens.RevokeToken(ctx, refreshToken); err != nil && !errors.Is(err, apperrors.ErrTokenRevoked) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the session user with the IDs of the profiles they own
func (s *AuthService) Me(ctx context.Context, userID int64) (*dto.SessionUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	su := &dto.SessionUser{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		RoleType:  user.RoleType,
	}

	switch user.RoleType {
	case models.RoleStudent, models.RoleParent:
		ids, err := s.students.IDsForUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get student information: %w", err)
		}
		su.StudentIDs = ids
	case models.RoleTeacher:
		t, err := s.users.GetTeacherByUserID(ctx, user.ID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not load teacher profile for session")
		} else {
			su.TeacherID = &t.ID
		}
	case models.RoleStaff:
		st, err := s.users.GetStaffByUserID(ctx, user.ID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not load staff profile for session")
		} else {
			su.StaffID = &st.ID
		}
	case models.RoleAdmin:
		a, err := s.users.GetAdminByUserID(ctx, user.ID)
		if err != nil {
			s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Could not load admin profile for session")
		} else {
			su.AdminID = &a.ID
		}
	}

	return su, nil
}

// ChangePassword replaces the password after checking the current one and
// signs the user out everywhere else.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
			return err
		}
		return s.tokens.RevokeAllUserTokens(ctx, userID)
	})
}

// generateTokenResponse issues a token pair and stores the refresh token
func (s *AuthService) generateTokenResponse(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokens.CreateToken(ctx, pair.RefreshToken, user.ID, pair.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:           pair.AccessToken,
		TokenType:             "Bearer",
		ExpiresIn:             int64(pair.ExpiresIn),
		RefreshToken:          pair.RefreshToken,
		RefreshTokenExpiresIn: int64(pair.RefreshExpiresIn),
	}, nil
}
