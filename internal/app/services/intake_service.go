package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
)

// IntakeService handles the public contact and trial lesson forms
type IntakeService struct {
	inquiries InquiryStore
	publisher events.Publisher
	logger    zerolog.Logger
}

// NewIntakeService creates a new IntakeService
func NewIntakeService(inquiries InquiryStore, publisher events.Publisher, logger zerolog.Logger) *IntakeService {
	return &IntakeService{inquiries: inquiries, publisher: publisher, logger: logger}
}

// SubmitContact stores a contact inquiry
func (s *IntakeService) SubmitContact(ctx context.Context, req *dto.ContactRequest) (*models.ContactInquiry, error) {
	in := &models.ContactInquiry{
		Name:    strings.TrimSpace(req.Name),
		Email:   NormalizeEmail(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Message: strings.TrimSpace(req.Message),
		Status:  models.InquiryNew,
	}
	if err := s.inquiries.CreateContact(ctx, in); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("inquiryId", in.ID).Msg("Contact inquiry received")
	events.Emit(ctx, s.publisher, events.ContactReceived, events.ContactPayload{
		InquiryID: in.ID,
		Name:      in.Name,
		Email:     in.Email,
	})
	return in, nil
}

// SubmitTrial stores a trial lesson request
func (s *IntakeService) SubmitTrial(ctx context.Context, req *dto.TrialRequest) (*models.TrialLessonRequest, error) {
	t := &models.TrialLessonRequest{
		Name:          strings.TrimSpace(req.Name),
		Email:         NormalizeEmail(req.Email),
		Phone:         strings.TrimSpace(req.Phone),
		Language:      strings.TrimSpace(req.Language),
		Level:         strings.TrimSpace(req.Level),
		PreferredTime: strings.TrimSpace(req.PreferredTime),
		Status:        models.TrialPending,
	}
	if err := s.inquiries.CreateTrial(ctx, t); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("requestId", t.ID).Str("language", t.Language).Msg("Trial lesson requested")
	events.Emit(ctx, s.publisher, events.TrialRequested, events.TrialPayload{
		RequestID: t.ID,
		Name:      t.Name,
		Email:     t.Email,
		Language:  t.Language,
	})
	return t, nil
}

// ListContacts returns a page of contact inquiries
func (s *IntakeService) ListContacts(ctx context.Context, status models.InquiryStatus, page, size int) (*dto.PaginatedResponse, error) {
	pg := helpers.NewPage(page, size)
	items, total, err := s.inquiries.ListContacts(ctx, status, pg.Offset(), pg.Size)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: items, Pagination: pg.Info(total)}, nil
}

// ListTrials returns a page of trial requests
func (s *IntakeService) ListTrials(ctx context.Context, status models.TrialStatus, page, size int) (*dto.PaginatedResponse, error) {
	pg := helpers.NewPage(page, size)
	items, total, err := s.inquiries.ListTrials(ctx, status, pg.Offset(), pg.Size)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{Items: items, Pagination: pg.Info(total)}, nil
}

// UpdateContactStatus moves an inquiry to status
func (s *IntakeService) UpdateContactStatus(ctx context.Context, id int64, status models.InquiryStatus) error {
	return s.inquiries.UpdateContactStatus(ctx, id, status)
}

// UpdateTrialStatus moves a trial request to status
func (s *IntakeService) UpdateTrialStatus(ctx context.Context, id int64, status models.TrialStatus) error {
	return s.inquiries.UpdateTrialStatus(ctx, id, status)
}
