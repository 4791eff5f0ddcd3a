package models

import (
	"time"
)

// User defines the user model based on the 'users' table
type User struct {
	ID          int64      `json:"id" db:"id" example:"1"`
	Email       string     `json:"email" db:"email" example:"student@lingoschool.app"`
	Password    string     `json:"-" db:"password"`
	FirstName   string     `json:"firstName" db:"first_name" example:"Mina"`
	LastName    string     `json:"lastName" db:"last_name" example:"Kim"`
	Phone       *string    `json:"phone,omitempty" db:"phone" example:"+82-10-1234-5678"`
	RoleType    RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// Teacher defines the teacher profile based on the 'teachers' table
type Teacher struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Bio       string    `json:"bio" db:"bio"`
	Languages []string  `json:"languages" db:"languages"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	User      *User     `json:"user,omitempty"`
}

// Staff defines the staff profile based on the 'staff' table
type Staff struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Position  string    `json:"position" db:"position"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	User      *User     `json:"user,omitempty"`
}

// Admin defines the admin profile based on the 'admins' table
type Admin struct {
	ID           int64     `json:"id" db:"id"`
	UserID       int64     `json:"userId" db:"user_id"`
	IsSuperAdmin bool      `json:"isSuperAdmin" db:"is_super_admin"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	User         *User     `json:"user,omitempty"`
}
