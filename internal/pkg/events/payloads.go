package events

import "time"

// StudentRegisteredPayload is published after enrollment
type StudentRegisteredPayload struct {
	StudentID     int64  `json:"studentId"`
	StudentNumber string `json:"studentNumber"`
	Email         string `json:"email"`
	Name          string `json:"name"`
}

// ReservationPayload is published when a lesson is booked or cancelled
type ReservationPayload struct {
	ReservationID   int64     `json:"reservationId"`
	StudentID       int64     `json:"studentId"`
	TeacherID       int64     `json:"teacherId"`
	StudentEmail    string    `json:"studentEmail"`
	StudentName     string    `json:"studentName"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

// PaymentPayload is published when a payment is recorded or refunded
type PaymentPayload struct {
	PaymentID        int64  `json:"paymentId"`
	StudentID        int64  `json:"studentId"`
	StudentEmail     string `json:"studentEmail"`
	StudentName      string `json:"studentName"`
	Amount           int64  `json:"amount"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	LessonsPurchased int    `json:"lessonsPurchased"`
}

// AgreementPayload is published when an agreement is signed
type AgreementPayload struct {
	AgreementID int64  `json:"agreementId"`
	StudentID   int64  `json:"studentId"`
	SignerName  string `json:"signerName"`
}

// ContactPayload is published for new contact inquiries
type ContactPayload struct {
	InquiryID int64  `json:"inquiryId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// TrialPayload is published for new trial lesson requests
type TrialPayload struct {
	RequestID int64  `json:"requestId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Language  string `json:"language"`
}
