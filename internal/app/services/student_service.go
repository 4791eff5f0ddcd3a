package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/auth"
	"github.com/yigit/lingoschool/internal/pkg/dberrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
	"github.com/yigit/lingoschool/internal/pkg/metrics"
	"github.com/yigit/lingoschool/internal/pkg/offline"
	"github.com/yigit/lingoschool/internal/pkg/studentid"
)

// maxStudentIDAttempts bounds retries when two registrations race for the
// same student ID
const maxStudentIDAttempts = 3

// queuedRegistration is what the offline queue stores. The plain-text
// password never touches disk.
type queuedRegistration struct {
	Request      dto.RegisterStudentRequest `json:"request"`
	PasswordHash string                     `json:"passwordHash"`
}

// registration is a normalized request ready to be written
type registration struct {
	req          dto.RegisterStudentRequest
	passwordHash string
}

// StudentService enrolls and manages students
type StudentService struct {
	users     UserStore
	students  StudentStore
	tx        db.Transactor
	ids       StudentIDGenerator
	queue     *offline.Queue
	authz     *appauth.AuthorizationService
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStudentService creates a new StudentService. queue may be nil, in which
// case registrations fail with ErrServiceUnavailable while the database is down.
func NewStudentService(
	users UserStore,
	students StudentStore,
	tx db.Transactor,
	ids StudentIDGenerator,
	queue *offline.Queue,
	authz *appauth.AuthorizationService,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *StudentService {
	return &StudentService{
		users:     users,
		students:  students,
		tx:        tx,
		ids:       ids,
		queue:     queue,
		authz:     authz,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// InLocation makes student IDs follow the calendar of loc instead of the host clock
func (s *StudentService) InLocation(loc *time.Location) *StudentService {
	s.now = func() time.Time { return time.Now().In(loc) }
	return s
}

// Register enrolls a student. When the database cannot be reached the
// registration is queued and the second return value carries the offline ID.
func (s *StudentService) Register(ctx context.Context, req *dto.RegisterStudentRequest) (*dto.StudentResponse, *dto.OfflineAcceptedResponse, error) {
	reg, err := newRegistration(req)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	student, err := s.registerOnline(ctx, reg, now)
	if err == nil {
		return student, nil, nil
	}
	if !isUnavailable(err) {
		return nil, nil, err
	}

	accepted, qErr := s.enqueue(reg, now)
	if qErr != nil {
		s.logger.Error().Err(qErr).Msg("Failed to queue registration while database is unavailable")
		return nil, nil, fmt.Errorf("%w: %v", apperrors.ErrServiceUnavailable, err)
	}
	return nil, accepted, nil
}

func newRegistration(req *dto.RegisterStudentRequest) (*registration, error) {
	r := *req
	r.Email = NormalizeEmail(r.Email)
	r.ParentEmail = NormalizeEmail(r.ParentEmail)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	if r.FirstName == "" {
		return nil, apperrors.NewValidationError("first name is required")
	}
	if r.ParentEmail != "" && r.ParentEmail == r.Email {
		return nil, apperrors.NewValidationError("parent email must differ from the student email")
	}

	password := r.Password
	if password == "" {
		// the account stays unusable until an admin sets a password
		password = uuid.NewString()
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	r.Password = ""
	return &registration{req: r, passwordHash: hash}, nil
}

// isUnavailable reports errors meaning the database is down
func isUnavailable(err error) bool {
	return errors.Is(err, apperrors.ErrServiceUnavailable) || dberrors.IsUnavailable(err)
}

func (s *StudentService) registerOnline(ctx context.Context, reg *registration, now time.Time) (*dto.StudentResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= maxStudentIDAttempts; attempt++ {
		resp, err := s.createInTx(ctx, reg, now)
		if err == nil {
			s.metrics.StudentIDIssued(false)
			s.logger.Info().
				Int64("studentId", resp.ID).
				Str("studentNumber", resp.StudentID).
				Int("attempt", attempt).
				Msg("Student registered")
			events.Emit(ctx, s.publisher, events.StudentRegistered, events.StudentRegisteredPayload{
				StudentID:     resp.ID,
				StudentNumber: resp.StudentID,
				Email:         resp.Email,
				Name:          strings.TrimSpace(resp.FirstName + " " + resp.LastName),
			})
			return resp, nil
		}
		if !errors.Is(err, apperrors.ErrStudentIDAlreadyExists) {
			return nil, err
		}
		lastErr = err
		s.logger.Warn().Int("attempt", attempt).Msg("Student ID taken by a concurrent registration, retrying")
	}
	return nil, fmt.Errorf("could not issue a unique student ID: %w", lastErr)
}

func (s *StudentService) createInTx(ctx context.Context, reg *registration, now time.Time) (*dto.StudentResponse, error) {
	var resp dto.StudentResponse
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		number, isOffline, err := s.ids.Generate(ctx, now)
		if err != nil {
			switch {
			case errors.Is(err, studentid.ErrSequenceExhausted):
				return fmt.Errorf("%w: %v", apperrors.ErrStudentIDExhausted, err)
			case dberrors.IsUnavailable(err):
				return fmt.Errorf("%w: %v", apperrors.ErrServiceUnavailable, err)
			}
			return err
		}
		if isOffline {
			return fmt.Errorf("%w: student ID lookup failed", apperrors.ErrServiceUnavailable)
		}

		user := &models.User{
			Email:     reg.req.Email,
			Password:  reg.passwordHash,
			FirstName: reg.req.FirstName,
			LastName:  reg.req.LastName,
			Phone:     reg.req.Phone,
			RoleType:  models.RoleStudent,
			IsActive:  true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}

		student := &models.Student{
			UserID:    user.ID,
			StudentID: number,
			BirthDate: reg.req.BirthDate,
			Level:     reg.req.Level,
			Status:    models.StudentActive,
			Notes:     reg.req.Notes,
			User:      user,
		}
		if reg.req.ParentEmail != "" {
			parent, err := s.linkParent(ctx, reg.req.ParentEmail, reg.req.ParentName)
			if err != nil {
				return err
			}
			student.ParentUserID = &parent.ID
			student.Parent = parent
		}

		if err := s.students.Create(ctx, student); err != nil {
			return err
		}
		resp = dto.NewStudentResponse(student)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// linkParent returns the PARENT account for email, creating it when missing
func (s *StudentService) linkParent(ctx context.Context, email, name string) (*models.User, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.RoleType != models.RoleParent {
			return nil, apperrors.NewValidationError("parent email belongs to a non-parent account")
		}
		return existing, nil
	case !errors.Is(err, apperrors.ErrUserNotFound):
		return nil, err
	}

	hash, err := auth.HashPassword(uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	first, last := splitName(name)
	if first == "" {
		first = email[:strings.IndexByte(email, '@')]
	}
	parent := &models.User{
		Email:     email,
		Password:  hash,
		FirstName: first,
		LastName:  last,
		RoleType:  models.RoleParent,
		IsActive:  true,
	}
	if err := s.users.Create(ctx, parent); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("userID", parent.ID).Msg("Parent account created during registration")
	return parent, nil
}

func splitName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// offline IDs carry four random digits, so a collision within a day is rare
const maxOfflineIDAttempts = 5

func (s *StudentService) enqueue(reg *registration, now time.Time) (*dto.OfflineAcceptedResponse, error) {
	if s.queue == nil {
		return nil, errors.New("offline queue is not configured")
	}
	queued := queuedRegistration{Request: reg.req, PasswordHash: reg.passwordHash}
	var entry *offline.Entry
	for attempt := 1; ; attempt++ {
		id, err := s.ids.Offline(now)
		if err != nil {
			return nil, err
		}
		entry, err = s.queue.Append(id, queued, now)
		if err == nil {
			break
		}
		if !errors.Is(err, offline.ErrDuplicateID) || attempt == maxOfflineIDAttempts {
			return nil, err
		}
		s.logger.Warn().Str("offlineId", id).Int("attempt", attempt).Msg("Offline ID already queued, drawing a new one")
	}
	s.metrics.StudentIDIssued(true)
	s.metrics.OfflineRegistrationQueued()
	return &dto.OfflineAcceptedResponse{OfflineID: entry.OfflineID, Queued: true}, nil
}

// ListOffline returns the queued registrations
func (s *StudentService) ListOffline(ctx context.Context) ([]dto.OfflineRegistration, error) {
	if s.queue == nil {
		return []dto.OfflineRegistration{}, nil
	}
	entries, err := s.queue.List()
	if err != nil {
		return nil, err
	}
	out := make([]dto.OfflineRegistration, 0, len(entries))
	for _, e := range entries {
		var q queuedRegistration
		if err := json.Unmarshal(e.Payload, &q); err != nil {
			s.logger.Warn().Err(err).Str("offlineId", e.OfflineID).Msg("Skipping undecodable offline registration")
			continue
		}
		out = append(out, dto.OfflineRegistration{OfflineID: e.OfflineID, QueuedAt: e.QueuedAt, Request: q.Request})
	}
	return out, nil
}

// ImportOffline replays the queue. Imported entries are removed one by one so
// a failure halfway keeps the rest queued. Registrations get the student ID of
// the import time.
func (s *StudentService) ImportOffline(ctx context.Context) (*dto.ImportResult, error) {
	result := &dto.ImportResult{
		Imported: []dto.ImportedRegistration{},
		Failed:   []dto.FailedRegistration{},
	}
	if s.queue == nil {
		return result, nil
	}
	entries, err := s.queue.List()
	if err != nil {
		return nil, err
	}

	for i, e := range entries {
		var q queuedRegistration
		if err := json.Unmarshal(e.Payload, &q); err != nil {
			result.Failed = append(result.Failed, dto.FailedRegistration{OfflineID: e.OfflineID, Reason: "undecodable entry"})
			continue
		}

		resp, err := s.registerOnline(ctx, &registration{req: q.Request, passwordHash: q.PasswordHash}, s.now())
		if err != nil {
			if isUnavailable(err) {
				for _, rest := range entries[i:] {
					result.Failed = append(result.Failed, dto.FailedRegistration{OfflineID: rest.OfflineID, Reason: "database unavailable"})
				}
				break
			}
			result.Failed = append(result.Failed, dto.FailedRegistration{OfflineID: e.OfflineID, Reason: err.Error()})
			continue
		}

		if err := s.queue.Remove(e.OfflineID); err != nil {
			s.logger.Error().Err(err).Str("offlineId", e.OfflineID).Msg("Imported registration could not be removed from the queue")
		}
		result.Imported = append(result.Imported, dto.ImportedRegistration{OfflineID: e.OfflineID, StudentID: resp.StudentID})
	}

	s.logger.Info().
		Int("imported", len(result.Imported)).
		Int("failed", len(result.Failed)).
		Msg("Offline registrations imported")
	return result, nil
}

// GetStudent returns one student the actor may see
func (s *StudentService) GetStudent(ctx context.Context, actor appauth.Actor, id int64) (*dto.StudentResponse, error) {
	if err := s.authz.ValidateStudentAccess(ctx, actor, id); err != nil {
		return nil, err
	}
	st, err := s.students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewStudentResponse(st)
	return &resp, nil
}

// ListStudents returns a page of students. Students and parents only see
// their own records.
func (s *StudentService) ListStudents(ctx context.Context, actor appauth.Actor, filter dto.StudentFilter, page, size int) (*dto.PaginatedResponse, error) {
	switch actor.Role {
	case models.RoleStudent:
		filter.UserID = &actor.UserID
	case models.RoleParent:
		filter.ParentUserID = &actor.UserID
	}

	pg := helpers.NewPage(page, size)
	students, total, err := s.students.List(ctx, filter, pg.Offset(), pg.Size)
	if err != nil {
		return nil, err
	}
	items := make([]dto.StudentResponse, 0, len(students))
	for _, st := range students {
		items = append(items, dto.NewStudentResponse(st))
	}
	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: pg.Info(total),
	}, nil
}

// MyStudents returns the student record of a student or the children of a parent
func (s *StudentService) MyStudents(ctx context.Context, actor appauth.Actor) ([]dto.StudentResponse, error) {
	ids, err := s.authz.StudentScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		return nil, apperrors.NewForbiddenError("only students and parents have own student records")
	}
	out := make([]dto.StudentResponse, 0, len(ids))
	for _, id := range ids {
		st, err := s.students.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.NewStudentResponse(st))
	}
	return out, nil
}

// UpdateStudent changes enrollment fields and the student's phone
func (s *StudentService) UpdateStudent(ctx context.Context, id int64, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	var resp dto.StudentResponse
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		st, err := s.students.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if req.Level != nil {
			st.Level = strings.TrimSpace(*req.Level)
		}
		if req.Status != nil {
			st.Status = *req.Status
		}
		if req.Notes != nil {
			st.Notes = *req.Notes
		}
		if err := s.students.Update(ctx, st); err != nil {
			return err
		}

		if req.Phone != nil && st.User != nil {
			st.User.Phone = req.Phone
			if err := s.users.Update(ctx, st.User); err != nil {
				return err
			}
		}
		resp = dto.NewStudentResponse(st)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteStudent removes the student and its login
func (s *StudentService) DeleteStudent(ctx context.Context, id int64) error {
	if err := s.students.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("studentId", id).Msg("Student deleted")
	return nil
}
