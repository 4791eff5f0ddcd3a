package dto

import "github.com/yigit/lingoschool/internal/app/models"

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email" example:"admin@lingoschool.app"`
	Password string `json:"password" binding:"required" example:"changeme123"`
}

// TokenResponse represents JWT token information
type TokenResponse struct {
	AccessToken           string `json:"accessToken"`
	TokenType             string `json:"tokenType" example:"Bearer"`
	ExpiresIn             int64  `json:"expiresIn" example:"900"`
	RefreshToken          string `json:"refreshToken,omitempty"`
	RefreshTokenExpiresIn int64  `json:"refreshTokenExpiresIn,omitempty" example:"604800"`
}

// RefreshTokenRequest represents refresh token request
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally names the refresh token to revoke
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SessionUser is the signed-in user with the ids of their profiles
type SessionUser struct {
	ID         int64           `json:"id" example:"1"`
	Email      string          `json:"email" example:"teacher@lingoschool.app"`
	FirstName  string          `json:"firstName" example:"Sora"`
	LastName   string          `json:"lastName" example:"Park"`
	RoleType   models.RoleType `json:"roleType" example:"TEACHER"`
	StudentIDs []int64         `json:"studentIds,omitempty"`
	TeacherID  *int64          `json:"teacherId,omitempty"`
	StaffID    *int64          `json:"staffId,omitempty"`
	AdminID    *int64          `json:"adminId,omitempty"`
}

// ChangePasswordRequest changes the signed-in user's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}
