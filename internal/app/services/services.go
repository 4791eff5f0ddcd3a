package services

import (
	"context"
	"time"

	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
)

// Services defined in this package:
// - AuthService: login, token refresh, logout and the session user
// - UserService: admin directory of staff, teachers, parents and admins
// - StudentService: enrollment, student numbers and the offline registration queue
// - SettingsService: lesson durations and buffers
// - ReservationService: lesson booking with teacher conflict checks
// - PaymentService, AgreementService, MemoService, IntakeService, AnalyticsService

// UserStore is the persistence needed for users and their profiles
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, userID int64, hash string) error
	UpdateLastLogin(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter dto.UserFilter, offset uint64, limit int) ([]*models.User, int64, error)

	CreateTeacher(ctx context.Context, teacher *models.Teacher) error
	GetTeacherByID(ctx context.Context, id int64) (*models.Teacher, error)
	GetTeacherByUserID(ctx context.Context, userID int64) (*models.Teacher, error)
	UpdateTeacher(ctx context.Context, teacher *models.Teacher) error
	ListTeachers(ctx context.Context, activeOnly bool) ([]*models.Teacher, error)
	LockTeacher(ctx context.Context, teacherID int64) (*models.Teacher, error)

	CreateStaff(ctx context.Context, staff *models.Staff) error
	GetStaffByUserID(ctx context.Context, userID int64) (*models.Staff, error)
	UpdateStaff(ctx context.Context, staff *models.Staff) error

	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdminByUserID(ctx context.Context, userID int64) (*models.Admin, error)
}

// TokenStore persists refresh tokens
type TokenStore interface {
	CreateToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	GetUserIDByToken(ctx context.Context, token string) (int64, error)
	RevokeToken(ctx context.Context, token string) error
	RevokeAllUserTokens(ctx context.Context, userID int64) error
}

// StudentIDGenerator issues online and offline student IDs
type StudentIDGenerator interface {
	Generate(ctx context.Context, now time.Time) (id string, offline bool, err error)
	Offline(now time.Time) (string, error)
}

// StudentStore persists students
type StudentStore interface {
	Create(ctx context.Context, student *models.Student) error
	LastWithPrefix(ctx context.Context, prefix string) (string, error)
	GetByID(ctx context.Context, id int64) (*models.Student, error)
	GetByUserID(ctx context.Context, userID int64) (*models.Student, error)
	IDsForUser(ctx context.Context, userID int64) ([]int64, error)
	List(ctx context.Context, filter dto.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error)
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id int64) error
}

// SettingsStore is the system_settings key/value store
type SettingsStore interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	GetForUpdate(ctx context.Context, key string) (*models.SystemSetting, error)
	Upsert(ctx context.Context, key string, value []byte, updatedBy *int64) error
	InsertIfAbsent(ctx context.Context, key string, value []byte) (bool, error)
}

// ReservationStore persists lessons
type ReservationStore interface {
	Create(ctx context.Context, res *models.Reservation) error
	GetByID(ctx context.Context, id int64) (*models.Reservation, error)
	ScheduledNear(ctx context.Context, teacherID int64, start, blockedUntil time.Time, excludeID int64) ([]*models.Reservation, error)
	List(ctx context.Context, filter dto.ReservationFilter, offset uint64, limit int) ([]*models.Reservation, int64, error)
	UpdateStatus(ctx context.Context, id int64, status models.ReservationStatus) (bool, error)
	UpdateSchedule(ctx context.Context, res *models.Reservation) error
	Delete(ctx context.Context, id int64) error
}

// PaymentStore persists payments
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	List(ctx context.Context, filter dto.PaymentFilter, offset uint64, limit int) ([]*models.Payment, int64, error)
	MarkRefunded(ctx context.Context, id int64, at time.Time) (bool, error)
	Balance(ctx context.Context, studentID int64) (*models.StudentBalance, error)
}

// AgreementStore persists signed agreements
type AgreementStore interface {
	Create(ctx context.Context, a *models.Agreement) error
	GetByID(ctx context.Context, id int64) (*models.Agreement, error)
	ListByStudent(ctx context.Context, studentID int64) ([]*models.Agreement, error)
	SetPDFPath(ctx context.Context, id int64, path string) error
}

// MemoStore persists lesson notes
type MemoStore interface {
	Create(ctx context.Context, m *models.StudentMemo) error
	GetByID(ctx context.Context, id int64) (*models.StudentMemo, error)
	ListByStudent(ctx context.Context, studentID int64, visibleOnly bool) ([]*models.StudentMemo, error)
	Update(ctx context.Context, m *models.StudentMemo) error
	Delete(ctx context.Context, id int64) error
}

// InquiryStore persists public contact and trial requests
type InquiryStore interface {
	CreateContact(ctx context.Context, in *models.ContactInquiry) error
	ListContacts(ctx context.Context, status models.InquiryStatus, offset uint64, limit int) ([]*models.ContactInquiry, int64, error)
	UpdateContactStatus(ctx context.Context, id int64, status models.InquiryStatus) error
	CreateTrial(ctx context.Context, t *models.TrialLessonRequest) error
	ListTrials(ctx context.Context, status models.TrialStatus, offset uint64, limit int) ([]*models.TrialLessonRequest, int64, error)
	UpdateTrialStatus(ctx context.Context, id int64, status models.TrialStatus) error
}

// AnalyticsStore runs dashboard aggregates
type AnalyticsStore interface {
	StudentCounts(ctx context.Context, from, to *time.Time) (total, active, enrolled int64, err error)
	ReservationCounts(ctx context.Context, from, to *time.Time) (models.ReservationCounts, error)
	Revenue(ctx context.Context, currency string, from, to *time.Time) (models.RevenueSummary, error)
	IntakeCounts(ctx context.Context, from, to *time.Time) (trials, contacts int64, err error)
	LessonsByTeacher(ctx context.Context, from, to *time.Time) ([]models.TeacherLessons, error)
}
