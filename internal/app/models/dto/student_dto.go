package dto

import (
	"time"

	"github.com/yigit/lingoschool/internal/app/models"
)

// RegisterStudentRequest enrolls a new student
type RegisterStudentRequest struct {
	Email      string     `json:"email" binding:"required,email" example:"mina.kim@example.com"`
	Password   string     `json:"password" binding:"omitempty,min=8,max=72"`
	FirstName  string     `json:"firstName" binding:"required,max=100" example:"Mina"`
	LastName   string     `json:"lastName" binding:"max=100" example:"Kim"`
	Phone      *string    `json:"phone" binding:"omitempty,max=30"`
	BirthDate  *time.Time `json:"birthDate"`
	Level      string     `json:"level" binding:"max=20" example:"A2"`
	Notes      string     `json:"notes" binding:"max=2000"`
	ParentName string     `json:"parentName" binding:"max=200"`
	// ParentEmail links the student to a PARENT account, created when missing
	ParentEmail string `json:"parentEmail" binding:"omitempty,email"`
}

// UpdateStudentRequest changes mutable enrollment fields
type UpdateStudentRequest struct {
	Phone  *string               `json:"phone" binding:"omitempty,max=30"`
	Level  *string               `json:"level" binding:"omitempty,max=20"`
	Status *models.StudentStatus `json:"status" binding:"omitempty,oneof=ACTIVE PAUSED WITHDRAWN"`
	Notes  *string               `json:"notes" binding:"omitempty,max=2000"`
}

// StudentFilter narrows the student list
type StudentFilter struct {
	Search       string
	Status       models.StudentStatus
	ParentUserID *int64
	UserID       *int64
}

// StudentResponse is a student with the owning user's contact data
type StudentResponse struct {
	ID           int64                `json:"id"`
	StudentID    string               `json:"studentId" example:"2503140109"`
	UserID       int64                `json:"userId"`
	Email        string               `json:"email"`
	FirstName    string               `json:"firstName"`
	LastName     string               `json:"lastName"`
	Phone        *string              `json:"phone,omitempty"`
	BirthDate    *time.Time           `json:"birthDate,omitempty"`
	Level        string               `json:"level"`
	Status       models.StudentStatus `json:"status"`
	Notes        string               `json:"notes,omitempty"`
	ParentUserID *int64               `json:"parentUserId,omitempty"`
	ParentEmail  string               `json:"parentEmail,omitempty"`
	EnrolledAt   time.Time            `json:"enrolledAt"`
}

// NewStudentResponse flattens a student and its user
func NewStudentResponse(s *models.Student) StudentResponse {
	r := StudentResponse{
		ID:           s.ID,
		StudentID:    s.StudentID,
		UserID:       s.UserID,
		BirthDate:    s.BirthDate,
		Level:        s.Level,
		Status:       s.Status,
		Notes:        s.Notes,
		ParentUserID: s.ParentUserID,
		EnrolledAt:   s.EnrolledAt,
	}
	if s.User != nil {
		r.Email = s.User.Email
		r.FirstName = s.User.FirstName
		r.LastName = s.User.LastName
		r.Phone = s.User.Phone
	}
	if s.Parent != nil {
		r.ParentEmail = s.Parent.Email
	}
	return r
}

// OfflineRegistration is a queued registration shown to admins
type OfflineRegistration struct {
	OfflineID string                 `json:"offlineId"`
	QueuedAt  time.Time              `json:"queuedAt"`
	Request   RegisterStudentRequest `json:"request"`
}

// ImportResult reports the outcome of replaying the offline queue
type ImportResult struct {
	Imported []ImportedRegistration `json:"imported"`
	Failed   []FailedRegistration   `json:"failed"`
}

// ImportedRegistration maps an offline ID to the student number it received
type ImportedRegistration struct {
	OfflineID string `json:"offlineId"`
	StudentID string `json:"studentId"`
}

// FailedRegistration is an entry that stayed in the queue
type FailedRegistration struct {
	OfflineID string `json:"offlineId"`
	Reason    string `json:"reason"`
}
