package models

import "time"

// StudentMemo is a lesson note written about a student
type StudentMemo struct {
	ID               int64     `json:"id" db:"id"`
	StudentID        int64     `json:"studentId" db:"student_id"`
	AuthorUserID     int64     `json:"authorUserId" db:"author_user_id"`
	ReservationID    *int64    `json:"reservationId,omitempty" db:"reservation_id"`
	Content          string    `json:"content" db:"content"`
	VisibleToStudent bool      `json:"visibleToStudent" db:"visible_to_student"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}
