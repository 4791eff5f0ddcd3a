package models

import "time"

// StudentStatus is the enrollment state of a student
type StudentStatus string

const (
	StudentActive    StudentStatus = "ACTIVE"
	StudentPaused    StudentStatus = "PAUSED"
	StudentWithdrawn StudentStatus = "WITHDRAWN"
)

// IsValid reports a known status
func (s StudentStatus) IsValid() bool {
	switch s {
	case StudentActive, StudentPaused, StudentWithdrawn:
		return true
	}
	return false
}

// Student defines the student model based on the 'students' table
type Student struct {
	ID           int64         `json:"id" db:"id"`
	UserID       int64         `json:"userId" db:"user_id"`
	StudentID    string        `json:"studentId" db:"student_id" example:"2503140109"`
	ParentUserID *int64        `json:"parentUserId,omitempty" db:"parent_user_id"`
	BirthDate    *time.Time    `json:"birthDate,omitempty" db:"birth_date"`
	Level        string        `json:"level" db:"level" example:"B1"`
	Status       StudentStatus `json:"status" db:"status" example:"ACTIVE"`
	Notes        string        `json:"notes" db:"notes"`
	EnrolledAt   time.Time     `json:"enrolledAt" db:"enrolled_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`

	// Relations (populated when needed)
	User   *User `json:"user,omitempty"`
	Parent *User `json:"parent,omitempty"`
}
