package dto

// CreateMemoRequest writes a lesson note
type CreateMemoRequest struct {
	StudentID        int64  `json:"studentId" binding:"required,gt=0"`
	ReservationID    *int64 `json:"reservationId" binding:"omitempty,gt=0"`
	Content          string `json:"content" binding:"required,max=10000"`
	VisibleToStudent bool   `json:"visibleToStudent"`
}

// UpdateMemoRequest edits a lesson note
type UpdateMemoRequest struct {
	Content          *string `json:"content" binding:"omitempty,min=1,max=10000"`
	VisibleToStudent *bool   `json:"visibleToStudent"`
}
