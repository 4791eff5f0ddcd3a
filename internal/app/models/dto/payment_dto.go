package dto

import (
	"time"

	"github.com/yigit/lingoschool/internal/app/models"
)

// RecordPaymentRequest records money received
type RecordPaymentRequest struct {
	StudentID        int64                `json:"studentId" binding:"required,gt=0"`
	Amount           int64                `json:"amount" binding:"required,gt=0" example:"150000"`
	Currency         string               `json:"currency" binding:"omitempty,len=3" example:"KRW"`
	Method           models.PaymentMethod `json:"method" binding:"required,oneof=CASH CARD BANK_TRANSFER"`
	LessonsPurchased int                  `json:"lessonsPurchased" binding:"gte=0,lte=500" example:"8"`
	Memo             string               `json:"memo" binding:"max=1000"`
	PaidAt           *time.Time           `json:"paidAt"`
}

// PaymentFilter narrows the payment list
type PaymentFilter struct {
	StudentIDs []int64
	From       *time.Time
	To         *time.Time
	Status     models.PaymentStatus
}
