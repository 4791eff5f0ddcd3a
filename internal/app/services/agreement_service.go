package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/filestorage"
	"github.com/yigit/lingoschool/internal/pkg/metrics"
	"github.com/yigit/lingoschool/internal/pkg/pdf"
)

const agreementsDir = "agreements"

// AgreementOptions are school-wide values printed on agreements
type AgreementOptions struct {
	SchoolName   string
	TermsVersion string
	Terms        []string
}

// AgreementService stores signed agreements and renders them as PDF
type AgreementService struct {
	agreements AgreementStore
	students   StudentStore
	storage    filestorage.FileStorage
	authz      *appauth.AuthorizationService
	publisher  events.Publisher
	metrics    *metrics.Metrics
	opts       AgreementOptions
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAgreementService creates a new AgreementService
func NewAgreementService(
	agreements AgreementStore,
	students StudentStore,
	storage filestorage.FileStorage,
	authz *appauth.AuthorizationService,
	publisher events.Publisher,
	m *metrics.Metrics,
	opts AgreementOptions,
	logger zerolog.Logger,
) *AgreementService {
	return &AgreementService{
		agreements: agreements,
		students:   students,
		storage:    storage,
		authz:      authz,
		publisher:  publisher,
		metrics:    m,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// Sign stores an agreement and archives its PDF. A failure to archive is
// logged only; the PDF can always be rendered again from the stored record.
func (s *AgreementService) Sign(ctx context.Context, actor appauth.Actor, req *dto.SignAgreementRequest) (*models.Agreement, error) {
	if err := s.authz.ValidateStudentAccess(ctx, actor, req.StudentID); err != nil {
		return nil, err
	}
	if _, err := pdf.DecodeSignature(req.SignatureData); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidSignatureImage, err)
	}
	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	version := strings.TrimSpace(req.TermsVersion)
	if version == "" {
		version = s.opts.TermsVersion
	}
	a := &models.Agreement{
		StudentID:     req.StudentID,
		SignerName:    strings.TrimSpace(req.SignerName),
		SignatureData: req.SignatureData,
		TermsVersion:  version,
		SignedAt:      s.now().UTC(),
		CreatedBy:     actor.UserID,
	}
	if err := s.agreements.Create(ctx, a); err != nil {
		return nil, err
	}

	if err := s.archive(ctx, a, student); err != nil {
		s.logger.Warn().Err(err).Int64("agreementId", a.ID).Msg("Agreement PDF could not be archived")
	}

	s.logger.Info().Int64("agreementId", a.ID).Int64("studentId", a.StudentID).Msg("Agreement signed")
	events.Emit(ctx, s.publisher, events.AgreementSigned, events.AgreementPayload{
		AgreementID: a.ID,
		StudentID:   a.StudentID,
		SignerName:  a.SignerName,
	})
	return a, nil
}

func (s *AgreementService) archive(ctx context.Context, a *models.Agreement, student *models.Student) error {
	if s.storage == nil {
		return nil
	}
	body, err := s.render(a, student)
	if err != nil {
		return err
	}
	path, err := s.storage.SaveBytes(agreementsDir, ".pdf", body)
	if err != nil {
		return err
	}
	if err := s.agreements.SetPDFPath(ctx, a.ID, path); err != nil {
		_ = s.storage.DeleteFile(path)
		return err
	}
	a.PDFPath = &path
	return nil
}

func (s *AgreementService) render(a *models.Agreement, student *models.Student) ([]byte, error) {
	signature, err := pdf.DecodeSignature(a.SignatureData)
	if err != nil {
		// stored data predates validation; render without the image
		signature = nil
	}
	doc := pdf.AgreementDoc{
		School:       s.opts.SchoolName,
		AgreementID:  a.ID,
		SignerName:   a.SignerName,
		TermsVersion: a.TermsVersion,
		Terms:        s.opts.Terms,
		SignedAt:     a.SignedAt,
		SignaturePNG: signature,
	}
	if student != nil {
		doc.StudentNumber = student.StudentID
		if student.User != nil {
			doc.StudentName = student.User.FullName()
		}
	}
	body, err := pdf.RenderAgreement(doc)
	if err != nil {
		return nil, err
	}
	s.metrics.PDFRendered()
	return body, nil
}

// Get returns one agreement the actor may see
func (s *AgreementService) Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Agreement, error) {
	a, err := s.agreements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.ValidateStudentAccess(ctx, actor, a.StudentID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByStudent returns a student's agreements, newest first
func (s *AgreementService) ListByStudent(ctx context.Context, actor appauth.Actor, studentID int64) ([]*models.Agreement, error) {
	if err := s.authz.ValidateStudentAccess(ctx, actor, studentID); err != nil {
		return nil, err
	}
	return s.agreements.ListByStudent(ctx, studentID)
}

// PDF returns the agreement as a PDF and a download file name. The archived
// copy is served when present, otherwise the document is rendered again.
func (s *AgreementService) PDF(ctx context.Context, actor appauth.Actor, id int64) ([]byte, string, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("agreement-%d.pdf", a.ID)

	if a.PDFPath != nil && s.storage != nil {
		body, err := s.storage.ReadFile(*a.PDFPath)
		if err == nil {
			return body, filename, nil
		}
		s.logger.Warn().Err(err).Int64("agreementId", a.ID).Msg("Archived agreement PDF unreadable, rendering again")
	}

	student, err := s.students.GetByID(ctx, a.StudentID)
	if err != nil {
		return nil, "", err
	}
	body, err := s.render(a, student)
	if err != nil {
		return nil, "", err
	}
	return body, filename, nil
}
