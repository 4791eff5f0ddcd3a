package models

// ReservationCounts groups reservations by status
type ReservationCounts struct {
	Scheduled int64 `json:"scheduled"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
	NoShow    int64 `json:"noShow"`
}

// RevenueSummary totals PAID payments
type RevenueSummary struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Payments int64  `json:"payments"`
}

// TeacherLessons is the number of completed lessons per teacher
type TeacherLessons struct {
	TeacherID int64  `json:"teacherId"`
	Name      string `json:"name"`
	Completed int64  `json:"completed"`
}

// Analytics is the admin dashboard summary. Every field has a zero value
// and lists are never nil.
type Analytics struct {
	TotalStudents    int64             `json:"totalStudents"`
	ActiveStudents   int64             `json:"activeStudents"`
	NewStudents      int64             `json:"newStudents"`
	Reservations     ReservationCounts `json:"reservations"`
	Revenue          RevenueSummary    `json:"revenue"`
	TrialRequests    int64             `json:"trialRequests"`
	ContactInquiries int64             `json:"contactInquiries"`
	LessonsByTeacher []TeacherLessons  `json:"lessonsByTeacher"`
}
