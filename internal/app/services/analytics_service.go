package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
)

// AnalyticsService builds the admin dashboard summary
type AnalyticsService struct {
	analytics AnalyticsStore
	currency  string
	logger    zerolog.Logger
}

// NewAnalyticsService creates a new AnalyticsService. Revenue is reported in
// currency only.
func NewAnalyticsService(analytics AnalyticsStore, currency string, logger zerolog.Logger) *AnalyticsService {
	return &AnalyticsService{analytics: analytics, currency: currency, logger: logger}
}

// Summary aggregates the dashboard for [from, to). Either bound may be nil.
// With no data every number is zero and every list empty.
func (s *AnalyticsService) Summary(ctx context.Context, from, to *time.Time) (*models.Analytics, error) {
	if from != nil && to != nil && !from.Before(*to) {
		return nil, apperrors.NewValidationError("from must be before to")
	}

	out := &models.Analytics{
		Revenue:          models.RevenueSummary{Currency: s.currency},
		LessonsByTeacher: []models.TeacherLessons{},
	}

	var err error
	if out.TotalStudents, out.ActiveStudents, out.NewStudents, err = s.analytics.StudentCounts(ctx, from, to); err != nil {
		return nil, err
	}
	if out.Reservations, err = s.analytics.ReservationCounts(ctx, from, to); err != nil {
		return nil, err
	}
	revenue, err := s.analytics.Revenue(ctx, s.currency, from, to)
	if err != nil {
		return nil, err
	}
	out.Revenue.Amount = revenue.Amount
	out.Revenue.Payments = revenue.Payments
	if out.TrialRequests, out.ContactInquiries, err = s.analytics.IntakeCounts(ctx, from, to); err != nil {
		return nil, err
	}
	lessons, err := s.analytics.LessonsByTeacher(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if lessons != nil {
		out.LessonsByTeacher = lessons
	}

	s.logger.Debug().Int64("students", out.TotalStudents).Msg("Analytics summary computed")
	return out, nil
}
