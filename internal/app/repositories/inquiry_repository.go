package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// InquiryRepository stores contact inquiries and trial lesson requests
type InquiryRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewInquiryRepository creates a new InquiryRepository
func NewInquiryRepository(pg *db.PostgresDB) *InquiryRepository {
	return &InquiryRepository{db: pg, sb: statementBuilder()}
}

// CreateContact inserts a contact inquiry
func (r *InquiryRepository) CreateContact(ctx context.Context, in *models.ContactInquiry) error {
	sql, args, err := r.sb.Insert("contact_inquiries").
		Columns("name", "email", "phone", "message", "status").
		Values(in.Name, in.Email, in.Phone, in.Message, in.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create inquiry query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&in.ID, &in.CreatedAt, &in.UpdatedAt); err != nil {
		logger.Error().Err(err).Msg("Error creating contact inquiry")
		return fmt.Errorf("error creating inquiry: %w", err)
	}
	return nil
}

// ListContacts returns a page of inquiries, newest first
func (r *InquiryRepository) ListContacts(ctx context.Context, status models.InquiryStatus, offset uint64, limit int) ([]*models.ContactInquiry, int64, error) {
	where := squirrel.And{}
	if status != "" {
		where = append(where, squirrel.Eq{"status": status})
	}
	total, err := r.count(ctx, "contact_inquiries", where)
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := r.sb.Select("id", "name", "email", "phone", "message", "status", "created_at", "updated_at").
		From("contact_inquiries").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list inquiries query: %w", err)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing inquiries: %w", err)
	}
	defer rows.Close()

	items := make([]*models.ContactInquiry, 0)
	for rows.Next() {
		var in models.ContactInquiry
		if err := rows.Scan(&in.ID, &in.Name, &in.Email, &in.Phone, &in.Message, &in.Status, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning inquiry: %w", err)
		}
		items = append(items, &in)
	}
	return items, total, rows.Err()
}

// UpdateContactStatus sets an inquiry's status
func (r *InquiryRepository) UpdateContactStatus(ctx context.Context, id int64, status models.InquiryStatus) error {
	return r.updateStatus(ctx, "contact_inquiries", id, status, apperrors.ErrInquiryNotFound)
}

// CreateTrial inserts a trial lesson request
func (r *InquiryRepository) CreateTrial(ctx context.Context, t *models.TrialLessonRequest) error {
	sql, args, err := r.sb.Insert("trial_lesson_requests").
		Columns("name", "email", "phone", "language", "level", "preferred_time", "status").
		Values(t.Name, t.Email, t.Phone, t.Language, t.Level, t.PreferredTime, t.Status).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create trial request query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt); err != nil {
		logger.Error().Err(err).Msg("Error creating trial lesson request")
		return fmt.Errorf("error creating trial request: %w", err)
	}
	return nil
}

// ListTrials returns a page of trial requests, newest first
func (r *InquiryRepository) ListTrials(ctx context.Context, status models.TrialStatus, offset uint64, limit int) ([]*models.TrialLessonRequest, int64, error) {
	where := squirrel.And{}
	if status != "" {
		where = append(where, squirrel.Eq{"status": status})
	}
	total, err := r.count(ctx, "trial_lesson_requests", where)
	if err != nil {
		return nil, 0, err
	}

	sql, args, err := r.sb.Select("id", "name", "email", "phone", "language", "level", "preferred_time", "status", "created_at", "updated_at").
		From("trial_lesson_requests").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list trial requests query: %w", err)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing trial requests: %w", err)
	}
	defer rows.Close()

	items := make([]*models.TrialLessonRequest, 0)
	for rows.Next() {
		var t models.TrialLessonRequest
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Phone, &t.Language, &t.Level, &t.PreferredTime, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning trial request: %w", err)
		}
		items = append(items, &t)
	}
	return items, total, rows.Err()
}

// UpdateTrialStatus sets a trial request's status
func (r *InquiryRepository) UpdateTrialStatus(ctx context.Context, id int64, status models.TrialStatus) error {
	return r.updateStatus(ctx, "trial_lesson_requests", id, status, apperrors.ErrTrialRequestNotFound)
}

func (r *InquiryRepository) updateStatus(ctx context.Context, table string, id int64, status interface{}, notFound error) error {
	sql, args, err := r.sb.Update(table).
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update %s status query: %w", table, err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, notFound)
}

func (r *InquiryRepository) count(ctx context.Context, table string, where squirrel.Sqlizer) (int64, error) {
	sql, args, err := r.sb.Select("COUNT(*)").From(table).Where(where).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count %s query: %w", table, err)
	}
	var total int64
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("error counting %s: %w", table, err)
	}
	return total, nil
}
