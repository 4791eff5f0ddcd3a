package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/helpers"
	"github.com/yigit/lingoschool/internal/pkg/lessonsettings"
)

// ReservationService books lessons and keeps teacher schedules free of overlaps
type ReservationService struct {
	reservations ReservationStore
	users        UserStore
	students     StudentStore
	settings     *SettingsService
	tx           db.Transactor
	authz        *appauth.AuthorizationService
	publisher    events.Publisher
	logger       zerolog.Logger
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	reservations ReservationStore,
	users UserStore,
	students StudentStore,
	settings *SettingsService,
	tx db.Transactor,
	authz *appauth.AuthorizationService,
	publisher events.Publisher,
	logger zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		users:        users,
		students:     students,
		settings:     settings,
		tx:           tx,
		authz:        authz,
		publisher:    publisher,
		logger:       logger,
	}
}

// Create books a lesson. Teachers may only book their own time.
func (s *ReservationService) Create(ctx context.Context, actor appauth.Actor, req *dto.CreateReservationRequest) (*models.Reservation, error) {
	if err := s.checkTeacherActor(ctx, actor, req.TeacherID); err != nil {
		return nil, err
	}

	buffer, err := s.bufferFor(ctx, req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	start := req.StartTime.UTC()
	res := &models.Reservation{
		StudentID:       req.StudentID,
		TeacherID:       req.TeacherID,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(req.DurationMinutes) * time.Minute),
		DurationMinutes: req.DurationMinutes,
		BufferMinutes:   buffer,
		Status:          models.ReservationScheduled,
		Notes:           req.Notes,
		CreatedBy:       actor.UserID,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.checkConflicts(ctx, res); err != nil {
			return err
		}
		return s.reservations.Create(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("reservationId", res.ID).
		Int64("teacherId", res.TeacherID).
		Int64("studentId", res.StudentID).
		Time("start", res.StartTime).
		Msg("Lesson booked")
	events.Emit(ctx, s.publisher, events.ReservationCreated, reservationPayload(res, student))
	return res, nil
}

// checkConflicts locks the teacher and rejects res when it overlaps a
// scheduled lesson. It must run inside a transaction.
func (s *ReservationService) checkConflicts(ctx context.Context, res *models.Reservation) error {
	teacher, err := s.users.LockTeacher(ctx, res.TeacherID)
	if err != nil {
		return err
	}
	if !teacher.IsActive {
		return apperrors.NewValidationError("teacher is not active")
	}

	nearby, err := s.reservations.ScheduledNear(ctx, res.TeacherID, res.StartTime, res.BlockedUntil(), res.ID)
	if err != nil {
		return err
	}
	for _, other := range nearby {
		if res.Overlaps(other) {
			s.logger.Info().
				Int64("teacherId", res.TeacherID).
				Int64("conflictsWith", other.ID).
				Msg("Reservation rejected: teacher time already booked")
			return fmt.Errorf("%w: overlaps reservation %d", apperrors.ErrReservationConflict, other.ID)
		}
	}
	return nil
}

func (s *ReservationService) bufferFor(ctx context.Context, duration int) (int, error) {
	durations, err := s.settings.LessonDurations(ctx)
	if err != nil {
		return 0, err
	}
	if !lessonsettings.IsAllowed(durations, duration) {
		return 0, fmt.Errorf("%w: %d minutes", apperrors.ErrUnsupportedDuration, duration)
	}
	return lessonsettings.BufferFor(durations, duration), nil
}

func (s *ReservationService) checkTeacherActor(ctx context.Context, actor appauth.Actor, teacherID int64) error {
	own, err := s.authz.TeacherID(ctx, actor)
	if err != nil {
		return err
	}
	if own != nil && *own != teacherID {
		return apperrors.NewForbiddenError("teachers can only manage their own lessons")
	}
	return nil
}

// Get returns one reservation the actor may see
func (s *ReservationService) Get(ctx context.Context, actor appauth.Actor, id int64) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkReadAccess(ctx, actor, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ReservationService) checkReadAccess(ctx context.Context, actor appauth.Actor, res *models.Reservation) error {
	if actor.Role == models.RoleTeacher {
		return s.checkTeacherActor(ctx, actor, res.TeacherID)
	}
	return s.authz.ValidateStudentAccess(ctx, actor, res.StudentID)
}

// List returns a page of reservations visible to the actor
func (s *ReservationService) List(ctx context.Context, actor appauth.Actor, filter dto.ReservationFilter, page, size int) (*dto.PaginatedResponse, error) {
	scope, err := s.authz.StudentScope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if scope != nil {
		filter.StudentIDs = intersect(filter.StudentIDs, scope)
	}
	teacherID, err := s.authz.TeacherID(ctx, actor)
	if err != nil {
		return nil, err
	}
	if teacherID != nil {
		filter.TeacherID = teacherID
	}

	pg := helpers.NewPage(page, size)
	items, total, err := s.reservations.List(ctx, filter, pg.Offset(), pg.Size)
	if err != nil {
		return nil, err
	}
	return &dto.PaginatedResponse{
		Items:      items,
		Pagination: pg.Info(total),
	}, nil
}

// intersect narrows requested to allowed. An empty requested list means all
// allowed IDs. The result is never nil so the filter always applies.
func intersect(requested, allowed []int64) []int64 {
	if len(requested) == 0 {
		return allowed
	}
	out := make([]int64, 0, len(requested))
	for _, id := range requested {
		for _, a := range allowed {
			if id == a {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// UpdateStatus completes, cancels or marks a lesson as a no-show
func (s *ReservationService) UpdateStatus(ctx context.Context, actor appauth.Actor, id int64, status models.ReservationStatus) (*models.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTeacherActor(ctx, actor, res.TeacherID); err != nil {
		return nil, err
	}
	if !res.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", apperrors.ErrInvalidStatusChange, res.Status, status)
	}

	ok, err := s.reservations.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	if !ok {
		// changed by another request since it was read
		return nil, fmt.Errorf("%w: reservation %d is no longer %s", apperrors.ErrInvalidStatusChange, id, models.ReservationScheduled)
	}
	res.Status = status

	s.logger.Info().Int64("reservationId", id).Str("status", string(status)).Msg("Reservation status changed")
	if status == models.ReservationCancelled {
		s.emitWithStudent(ctx, events.ReservationCancelled, res)
	}
	return res, nil
}

// Reschedule moves a scheduled lesson, optionally to another teacher or
// length, and re-runs the conflict check.
func (s *ReservationService) Reschedule(ctx context.Context, actor appauth.Actor, id int64, req *dto.RescheduleRequest) (*models.Reservation, error) {
	var res *models.Reservation
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.reservations.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.checkTeacherActor(ctx, actor, res.TeacherID); err != nil {
			return err
		}
		if res.Status != models.ReservationScheduled {
			return fmt.Errorf("%w: only scheduled lessons can be moved", apperrors.ErrInvalidStatusChange)
		}

		if req.TeacherID != nil {
			if err := s.checkTeacherActor(ctx, actor, *req.TeacherID); err != nil {
				return err
			}
			res.TeacherID = *req.TeacherID
		}
		if req.DurationMinutes != nil {
			res.DurationMinutes = *req.DurationMinutes
		}
		buffer, err := s.bufferFor(ctx, res.DurationMinutes)
		if err != nil {
			return err
		}
		res.BufferMinutes = buffer
		res.StartTime = req.StartTime.UTC()
		res.EndTime = res.StartTime.Add(time.Duration(res.DurationMinutes) * time.Minute)

		if err := s.checkConflicts(ctx, res); err != nil {
			return err
		}
		return s.reservations.UpdateSchedule(ctx, res)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("reservationId", id).Time("start", res.StartTime).Msg("Lesson rescheduled")
	return res, nil
}

// Delete removes a reservation
func (s *ReservationService) Delete(ctx context.Context, id int64) error {
	if err := s.reservations.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("reservationId", id).Msg("Reservation deleted")
	return nil
}

func (s *ReservationService) emitWithStudent(ctx context.Context, eventType string, res *models.Reservation) {
	student, err := s.students.GetByID(ctx, res.StudentID)
	if err != nil && !errors.Is(err, apperrors.ErrStudentNotFound) {
		s.logger.Warn().Err(err).Int64("studentId", res.StudentID).Msg("Could not load student for reservation event")
	}
	events.Emit(ctx, s.publisher, eventType, reservationPayload(res, student))
}

func reservationPayload(res *models.Reservation, student *models.Student) events.ReservationPayload {
	p := events.ReservationPayload{
		ReservationID:   res.ID,
		StudentID:       res.StudentID,
		TeacherID:       res.TeacherID,
		StartTime:       res.StartTime,
		DurationMinutes: res.DurationMinutes,
	}
	if student != nil && student.User != nil {
		p.StudentEmail = student.User.Email
		p.StudentName = student.User.FullName()
	}
	return p
}
