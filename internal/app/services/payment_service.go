package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
)

// PaymentService records payments and lesson balances
type PaymentService struct {
	payments        PaymentStore
	students        StudentStore
	authz           *appauth.AuthorizationService
	publisher       events.Publisher
	defaultCurrency string
	logger          zerolog.Logger
	now             func() time.Time
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	payments PaymentStore,
	students StudentStore,
	authz *appauth.AuthorizationService,
	publisher events.Publisher,
	defaultCurrency string,
	logger zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		payments:        payments,
		students:        students,
		authz:           authz,
		publisher:       publisher,
		defaultCurrency: strings.ToUpper(defaultCurrency),
		logger:          logger,
		now:             time.Now,
	}
}

// Record stores a PAID payment
func (s *PaymentService) Record(ctx context.Context, recordedBy int64, req *dto.RecordPaymentRequest) (*models.Payment, error) {
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	paidAt := s.now().UTC()
	if req.PaidAt != nil {
		paidAt = req.PaidAt.UTC()
	}

	p := &models.Payment{
		StudentID:        req.StudentID,
		Amount:           req.Amount,
		Currency:         currency,
		Method:           req.Method,
		Status:           models.PaymentPaid,
		LessonsPurchased: req.LessonsPurchased,
		Memo:             req.Memo,
		RecordedBy:       recordedBy,
		PaidAt:           paidAt,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("paymentId", p.ID).
		Int64("studentId", p.StudentID).
		Int64("amount", p.Amount).
		Str("currency", p.Currency).
		Msg("Payment recorded")
	events.Emit(ctx, s.publisher, events.PaymentRecorded, paymentPayload(p, student))
	return p, nil
}

// Refund marks a PAID payment as REFUNDED
func (s *PaymentService) Refund(ctx context.Context, id int64) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentPaid {
		return nil, fmt.Errorf("%w: payment is already %s", apperrors.ErrInvalidStatusChange, p.Status)
	}

	at := s.now().UTC()
	ok, err := s.payments.MarkRefunded(ctx, id, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment was refunded concurrently", apperrors.ErrInvalidStatusChange)
	}
	p.Status = models.PaymentRefunded
	p.RefundedAt = &at

	s.logger.Info().Int64("paymentId", id).Msg("Payment refunded")
	student, err := s.students.GetByID(ctx, p.StudentID)
	if err != nil && !errors.Is(err, apperrors.ErrStudentNotFound) {
		s.logger.Warn().Err(err).Int64("studentId", p.StudentID).Msg("Could not load student for refund event")
	}
	events.Emit(ctx, s.publisher, events.PaymentRefunded, paymentPayload(p, student))
	return p, nil
}

// Get returns one payment the actor may see
func (s *PaymentService) Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateStudentAccess(ctx, actor, p.StudentID); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns a page of payments visible to the actor
func (s *PaymentService) List(ctx context.Context, actor appauth.Actor, filter dto.PaymentFilter, page, size int) (*dto.PaginatedResponse, error) {
	scope, err := s.authz.StudentScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		filter.StudentIDs = intersect(filter.StudentIDs, scope)
	}

	pg := helpers.NewPage(page, size)
	items, total, err := s.payments.List(ctx, filter, pg.Offset(), pg.Size)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: pg.Info(total),
	}, nil
}

// Balance returns purchased, consumed and remaining lessons for a student
func (s *PaymentService) Balance(ctx context.Context, actor appauth.Actor, studentID int64) (*models.StudentBalance, error) {
	if err := s.authz.ValidateStudentAccess(ctx, actor, studentID); err != nil {
		return nil, err
	}
	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.payments.Balance(ctx, studentID)
}

func paymentPayload(p *models.Payment, student *models.Student) events.PaymentPayload {
	out := events.PaymentPayload{
		PaymentID:        p.ID,
		StudentID:        p.StudentID,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           string(p.Status),
		LessonsPurchased: p.LessonsPurchased,
	}
	if student != nil && student.User != nil {
		out.StudentEmail = student.User.Email
		out.StudentName = student.User.FullName()
	}
	return out
}
