package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// maxBlockedSpan bounds how far back a lesson can start and still block a
// later slot (longest lesson plus longest buffer).
const maxBlockedSpan = 12 * time.Hour

var reservationColumns = []string{
	"id", "student_id", "teacher_id", "start_time", "end_time", "duration_minutes",
	"buffer_minutes", "status", "notes", "COALESCE(created_by, 0)", "created_at", "updated_at",
}

func scanReservation(row scanner) (*models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(&r.ID, &r.StudentID, &r.TeacherID, &r.StartTime, &r.EndTime, &r.DurationMinutes,
		&r.BufferMinutes, &r.Status, &r.Notes, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt)
	return &r, err
}

// ReservationRepository handles booked lessons
type ReservationRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewReservationRepository creates a new ReservationRepository
func NewReservationRepository(pg *db.PostgresDB) *ReservationRepository {
	return &ReservationRepository{db: pg, sb: statementBuilder()}
}

// Create inserts a reservation
func (r *ReservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	var createdBy *int64
	if res.CreatedBy != 0 {
		createdBy = &res.CreatedBy
	}
	sql, args, err := r.sb.Insert("reservations").
		Columns("student_id", "teacher_id", "start_time", "end_time", "duration_minutes", "buffer_minutes", "status", "notes", "created_by").
		Values(res.StudentID, res.TeacherID, res.StartTime, res.EndTime, res.DurationMinutes, res.BufferMinutes, res.Status, res.Notes, createdBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create reservation SQL")
		return fmt.Errorf("failed to build create reservation query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("teacherID", res.TeacherID).Int64("studentID", res.StudentID).Msg("Error creating reservation")
		return fmt.Errorf("error creating reservation: %w", err)
	}
	return nil
}

// GetByID retrieves a reservation
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*models.Reservation, error) {
	sql, args, err := r.sb.Select(reservationColumns...).
		From("reservations").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get reservation query: %w", err)
	}
	res, err := scanReservation(r.db.Conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReservationNotFound
		}
		return nil, fmt.Errorf("error retrieving reservation: %w", err)
	}
	return res, nil
}

// ScheduledNear locks and returns the teacher's scheduled lessons that could
// block [start, blockedUntil). The caller decides the exact overlap.
func (r *ReservationRepository) ScheduledNear(ctx context.Context, teacherID int64, start, blockedUntil time.Time, excludeID int64) ([]*models.Reservation, error) {
	q := r.sb.Select(reservationColumns...).
		From("reservations").
		Where(squirrel.Eq{"teacher_id": teacherID, "status": models.ReservationScheduled}).
		Where(squirrel.Lt{"start_time": blockedUntil}).
		Where(squirrel.Gt{"start_time": start.Add(-maxBlockedSpan)}).
		OrderBy("start_time").
		Suffix("FOR UPDATE")
	if excludeID != 0 {
		q = q.Where(squirrel.NotEq{"id": excludeID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build teacher schedule query: %w", err)
	}
	return r.query(ctx, sql, args)
}

// List returns a page of reservations and the total count
func (r *ReservationRepository) List(ctx context.Context, filter dto.ReservationFilter, offset uint64, limit int) ([]*models.Reservation, int64, error) {
	where := squirrel.And{timeRange("start_time", filter.From, filter.To)}
	if filter.StudentIDs != nil {
		where = append(where, squirrel.Eq{"student_id": filter.StudentIDs})
	}
	if filter.TeacherID != nil {
		where = append(where, squirrel.Eq{"teacher_id": *filter.TeacherID})
	}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"status": filter.Status})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("reservations").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count reservations query: %w", err)
	}
	var total int64
	if err := r.db.Conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting reservations")
		return nil, 0, fmt.Errorf("error counting reservations: %w", err)
	}

	sql, args, err := r.sb.Select(reservationColumns...).
		From("reservations").
		Where(where).
		OrderBy("start_time", "id").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list reservations query: %w", err)
	}
	items, err := r.query(ctx, sql, args)
	return items, total, err
}

func (r *ReservationRepository) query(ctx context.Context, sql string, args []interface{}) ([]*models.Reservation, error) {
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error querying reservations")
		return nil, fmt.Errorf("error querying reservations: %w", err)
	}
	defer rows.Close()

	items := make([]*models.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning reservation: %w", err)
		}
		items = append(items, res)
	}
	return items, rows.Err()
}

// UpdateStatus moves a SCHEDULED reservation to status. It returns false when
// the reservation is no longer SCHEDULED.
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id int64, status models.ReservationStatus) (bool, error) {
	sql, args, err := r.sb.Update("reservations").
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id, "status": models.ReservationScheduled}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build update reservation status query: %w", err)
	}
	tag, err := r.db.Conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error updating reservation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateSchedule writes teacher, times, duration and buffer
func (r *ReservationRepository) UpdateSchedule(ctx context.Context, res *models.Reservation) error {
	res.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("reservations").
		Set("teacher_id", res.TeacherID).
		Set("start_time", res.StartTime).
		Set("end_time", res.EndTime).
		Set("duration_minutes", res.DurationMinutes).
		Set("buffer_minutes", res.BufferMinutes).
		Set("updated_at", res.UpdatedAt).
		Where(squirrel.Eq{"id": res.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build reschedule query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrReservationNotFound)
}

// Delete removes a reservation
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("reservations").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete reservation query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrReservationNotFound)
}
