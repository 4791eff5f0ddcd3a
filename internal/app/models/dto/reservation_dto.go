package dto

import (
	"time"

	"github.com/yigit/lingoschool/internal/app/models"
)

// CreateReservationRequest books a lesson
type CreateReservationRequest struct {
	StudentID       int64     `json:"studentId" binding:"required,gt=0"`
	TeacherID       int64     `json:"teacherId" binding:"required,gt=0"`
	StartTime       time.Time `json:"startTime" binding:"required" example:"2025-03-14T15:00:00+09:00"`
	DurationMinutes int       `json:"durationMinutes" binding:"required,gt=0,lte=480" example:"60"`
	Notes           string    `json:"notes" binding:"max=1000"`
}

// RescheduleRequest moves a scheduled lesson
type RescheduleRequest struct {
	StartTime       time.Time `json:"startTime" binding:"required"`
	DurationMinutes *int      `json:"durationMinutes" binding:"omitempty,gt=0,lte=480"`
	TeacherID       *int64    `json:"teacherId" binding:"omitempty,gt=0"`
}

// UpdateReservationStatusRequest completes, cancels or marks a no-show
type UpdateReservationStatusRequest struct {
	Status models.ReservationStatus `json:"status" binding:"required,oneof=COMPLETED CANCELLED NO_SHOW"`
}

// ReservationFilter narrows the reservation list
type ReservationFilter struct {
	StudentIDs []int64
	TeacherID  *int64
	From       *time.Time
	To         *time.Time
	Status     models.ReservationStatus
}
