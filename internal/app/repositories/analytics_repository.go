package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// AnalyticsRepository runs the aggregate queries behind the admin dashboard
type AnalyticsRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(pg *db.PostgresDB) *AnalyticsRepository {
	return &AnalyticsRepository{db: pg, sb: statementBuilder()}
}

func (r *AnalyticsRepository) scalar(ctx context.Context, q squirrel.SelectBuilder, dest ...any) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build analytics query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		logger.Error().Err(err).Str("sql", sql).Msg("Error running analytics query")
		return fmt.Errorf("error running analytics query: %w", err)
	}
	return nil
}

// StudentCounts returns all students, active students and students enrolled in [from, to)
func (r *AnalyticsRepository) StudentCounts(ctx context.Context, from, to *time.Time) (total, active, enrolled int64, err error) {
	err = r.scalar(ctx, r.sb.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE status = 'ACTIVE')",
	).From("students"), &total, &active)
	if err != nil {
		return 0, 0, 0, err
	}
	err = r.scalar(ctx, r.sb.Select("COUNT(*)").
		From("students").
		Where(timeRange("enrolled_at", from, to)), &enrolled)
	return total, active, enrolled, err
}

// ReservationCounts groups lessons starting in [from, to) by status
func (r *AnalyticsRepository) ReservationCounts(ctx context.Context, from, to *time.Time) (models.ReservationCounts, error) {
	var c models.ReservationCounts
	err := r.scalar(ctx, r.sb.Select(
		"COUNT(*) FILTER (WHERE status = 'SCHEDULED')",
		"COUNT(*) FILTER (WHERE status = 'COMPLETED')",
		"COUNT(*) FILTER (WHERE status = 'CANCELLED')",
		"COUNT(*) FILTER (WHERE status = 'NO_SHOW')",
	).From("reservations").Where(timeRange("start_time", from, to)),
		&c.Scheduled, &c.Completed, &c.Cancelled, &c.NoShow)
	return c, err
}

// Revenue totals PAID payments in currency made in [from, to)
func (r *AnalyticsRepository) Revenue(ctx context.Context, currency string, from, to *time.Time) (models.RevenueSummary, error) {
	rev := models.RevenueSummary{Currency: currency}
	err := r.scalar(ctx, r.sb.Select("COALESCE(SUM(amount), 0)", "COUNT(*)").
		From("payments").
		Where(squirrel.Eq{"status": models.PaymentPaid, "currency": currency}).
		Where(timeRange("paid_at", from, to)),
		&rev.Amount, &rev.Payments)
	return rev, err
}

// IntakeCounts counts trial requests and contact inquiries received in [from, to)
func (r *AnalyticsRepository) IntakeCounts(ctx context.Context, from, to *time.Time) (trials, contacts int64, err error) {
	if err = r.scalar(ctx, r.sb.Select("COUNT(*)").From("trial_lesson_requests").Where(timeRange("created_at", from, to)), &trials); err != nil {
		return 0, 0, err
	}
	err = r.scalar(ctx, r.sb.Select("COUNT(*)").From("contact_inquiries").Where(timeRange("created_at", from, to)), &contacts)
	return trials, contacts, err
}

// LessonsByTeacher counts completed lessons per teacher in [from, to).
// Teachers without completed lessons are left out.
func (r *AnalyticsRepository) LessonsByTeacher(ctx context.Context, from, to *time.Time) ([]models.TeacherLessons, error) {
	sql, args, err := r.sb.Select("t.id", "TRIM(u.first_name || ' ' || u.last_name)", "COUNT(*)").
		From("reservations r").
		Join("teachers t ON t.id = r.teacher_id").
		Join("users u ON u.id = t.user_id").
		Where(squirrel.Eq{"r.status": models.ReservationCompleted}).
		Where(timeRange("r.start_time", from, to)).
		GroupBy("t.id", "u.first_name", "u.last_name").
		OrderBy("COUNT(*) DESC", "t.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lessons by teacher query: %w", err)
	}

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error counting lessons by teacher: %w", err)
	}
	defer rows.Close()

	out := make([]models.TeacherLessons, 0)
	for rows.Next() {
		var tl models.TeacherLessons
		if err := rows.Scan(&tl.TeacherID, &tl.Name, &tl.Completed); err != nil {
			return nil, fmt.Errorf("error scanning lessons by teacher: %w", err)
		}
		out = append(out, tl)
	}
	return out, rows.Err()
}
