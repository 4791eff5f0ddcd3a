package models

import "time"

// InquiryStatus is the handling state of a contact inquiry
type InquiryStatus string

const (
	InquiryNew       InquiryStatus = "NEW"
	InquiryResponded InquiryStatus = "RESPONDED"
	InquiryClosed    InquiryStatus = "CLOSED"
)

// IsValid reports a known status
func (s InquiryStatus) IsValid() bool {
	switch s {
	case InquiryNew, InquiryResponded, InquiryClosed:
		return true
	}
	return false
}

// ContactInquiry is a message left through the public contact form
type ContactInquiry struct {
	ID        int64         `json:"id" db:"id"`
	Name      string        `json:"name" db:"name"`
	Email     string        `json:"email" db:"email"`
	Phone     string        `json:"phone" db:"phone"`
	Message   string        `json:"message" db:"message"`
	Status    InquiryStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
}

// TrialStatus is the handling state of a trial lesson request
type TrialStatus string

const (
	TrialPending   TrialStatus = "PENDING"
	TrialScheduled TrialStatus = "SCHEDULED"
	TrialDeclined  TrialStatus = "DECLINED"
)

// IsValid reports a known status
func (s TrialStatus) IsValid() bool {
	switch s {
	case TrialPending, TrialScheduled, TrialDeclined:
		return true
	}
	return false
}

// TrialLessonRequest is a prospective student's request for a free first lesson
type TrialLessonRequest struct {
	ID            int64       `json:"id" db:"id"`
	Name          string      `json:"name" db:"name"`
	Email         string      `json:"email" db:"email"`
	Phone         string      `json:"phone" db:"phone"`
	Language      string      `json:"language" db:"language"`
	Level         string      `json:"level" db:"level"`
	PreferredTime string      `json:"preferredTime" db:"preferred_time"`
	Status        TrialStatus `json:"status" db:"status"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time   `json:"updatedAt" db:"updated_at"`
}
