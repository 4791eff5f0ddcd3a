package models

import "time"

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentStatus is the state of a recorded payment
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// IsValid reports a known status
func (s PaymentStatus) IsValid() bool {
	return s == PaymentPaid || s == PaymentRefunded
}

// Payment records money received for a package of lessons.
// Amount is stored in minor currency units.
type Payment struct {
	ID               int64         `json:"id" db:"id"`
	StudentID        int64         `json:"studentId" db:"student_id"`
	Amount           int64         `json:"amount" db:"amount" example:"150000"`
	Currency         string        `json:"currency" db:"currency" example:"KRW"`
	Method           PaymentMethod `json:"method" db:"method" example:"CARD"`
	Status           PaymentStatus `json:"status" db:"status" example:"PAID"`
	LessonsPurchased int           `json:"lessonsPurchased" db:"lessons_purchased" example:"8"`
	Memo             string        `json:"memo" db:"memo"`
	RecordedBy       int64         `json:"recordedBy" db:"recorded_by"`
	PaidAt           time.Time     `json:"paidAt" db:"paid_at"`
	RefundedAt       *time.Time    `json:"refundedAt,omitempty" db:"refunded_at"`
	CreatedAt        time.Time     `json:"createdAt" db:"created_at"`
}

// StudentBalance summarises purchased versus consumed lessons
type StudentBalance struct {
	StudentID        int64 `json:"studentId"`
	LessonsPurchased int   `json:"lessonsPurchased"`
	LessonsConsumed  int   `json:"lessonsConsumed"`
	LessonsRemaining int   `json:"lessonsRemaining"`
}
