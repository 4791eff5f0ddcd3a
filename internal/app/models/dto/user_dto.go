package dto

import (
	"time"

	"github.com/yigit/lingoschool/internal/app/models"
)

// CreateUserRequest creates a portal user with the profile row for its role
type CreateUserRequest struct {
	Email     string          `json:"email" binding:"required,email"`
	Password  string          `json:"password" binding:"required,min=8,max=72"`
	FirstName string          `json:"firstName" binding:"required,max=100"`
	LastName  string          `json:"lastName" binding:"max=100"`
	Phone     *string         `json:"phone" binding:"omitempty,max=30"`
	RoleType  models.RoleType `json:"roleType" binding:"required,oneof=ADMIN STAFF TEACHER PARENT"`
	// Teacher profile
	Bio       string   `json:"bio" binding:"max=2000"`
	Languages []string `json:"languages" binding:"omitempty,dive,min=2,max=40"`
	// Staff profile
	Position string `json:"position" binding:"max=100"`
}

// UpdateUserRequest changes names, phone and the active flag
type UpdateUserRequest struct {
	FirstName *string  `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string  `json:"lastName" binding:"omitempty,max=100"`
	Phone     *string  `json:"phone" binding:"omitempty,max=30"`
	IsActive  *bool    `json:"isActive"`
	Bio       *string  `json:"bio" binding:"omitempty,max=2000"`
	Languages []string `json:"languages" binding:"omitempty,dive,min=2,max=40"`
	Position  *string  `json:"position" binding:"omitempty,max=100"`
	// Password is set by an admin, e.g. for students enrolled without one
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
}

// UserFilter narrows the user list
type UserFilter struct {
	RoleType models.RoleType
	Search   string
	Active   *bool
}

// UserResponse is the admin view of a user
type UserResponse struct {
	ID          int64           `json:"id"`
	Email       string          `json:"email"`
	FirstName   string          `json:"firstName"`
	LastName    string          `json:"lastName"`
	Phone       *string         `json:"phone,omitempty"`
	RoleType    models.RoleType `json:"roleType"`
	IsActive    bool            `json:"isActive"`
	LastLoginAt *time.Time      `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	Teacher     *models.Teacher `json:"teacher,omitempty"`
	Staff       *models.Staff   `json:"staff,omitempty"`
}

// NewUserResponse converts a user model
func NewUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		RoleType:    u.RoleType,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// TeacherSummary is the public listing of a teacher
type TeacherSummary struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"userId"`
	Name      string   `json:"name"`
	Bio       string   `json:"bio"`
	Languages []string `json:"languages"`
}
