package models

import "time"

// ReservationStatus is the lifecycle state of a booked lesson
type ReservationStatus string

const (
	ReservationScheduled ReservationStatus = "SCHEDULED"
	ReservationCompleted ReservationStatus = "COMPLETED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationNoShow    ReservationStatus = "NO_SHOW"
)

// IsValid reports a known status
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationScheduled, ReservationCompleted, ReservationCancelled, ReservationNoShow:
		return true
	}
	return false
}

// CanTransitionTo reports whether a reservation may move from s to next.
// Only scheduled lessons change state; every other state is final.
func (s ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	if s != ReservationScheduled {
		return false
	}
	switch next {
	case ReservationCompleted, ReservationCancelled, ReservationNoShow:
		return true
	}
	return false
}

// Reservation is a booked lesson slot linking a student and a teacher
type Reservation struct {
	ID              int64             `json:"id" db:"id"`
	StudentID       int64             `json:"studentId" db:"student_id"`
	TeacherID       int64             `json:"teacherId" db:"teacher_id"`
	StartTime       time.Time         `json:"startTime" db:"start_time"`
	EndTime         time.Time         `json:"endTime" db:"end_time"`
	DurationMinutes int               `json:"durationMinutes" db:"duration_minutes"`
	BufferMinutes   int               `json:"bufferMinutes" db:"buffer_minutes"`
	Status          ReservationStatus `json:"status" db:"status"`
	Notes           string            `json:"notes" db:"notes"`
	CreatedBy       int64             `json:"createdBy" db:"created_by"`
	CreatedAt       time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time         `json:"updatedAt" db:"updated_at"`
}

// BlockedUntil is the end of the lesson plus the teacher's buffer time
func (r *Reservation) BlockedUntil() time.Time {
	return r.EndTime.Add(time.Duration(r.BufferMinutes) * time.Minute)
}

// Overlaps reports whether two reservations block the same teacher time,
// counting each one's buffer after the lesson.
func (r *Reservation) Overlaps(other *Reservation) bool {
	return r.StartTime.Before(other.BlockedUntil()) && other.StartTime.Before(r.BlockedUntil())
}
