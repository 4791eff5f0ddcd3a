package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
)

var memoColumns = []string{
	"id", "student_id", "author_user_id", "reservation_id", "content", "visible_to_student", "created_at", "updated_at",
}

func scanMemo(row scanner) (*models.StudentMemo, error) {
	var m models.StudentMemo
	err := row.Scan(&m.ID, &m.StudentID, &m.AuthorUserID, &m.ReservationID, &m.Content, &m.VisibleToStudent, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

// MemoRepository handles lesson notes
type MemoRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewMemoRepository creates a new MemoRepository
func NewMemoRepository(pg *db.PostgresDB) *MemoRepository {
	return &MemoRepository{db: pg, sb: statementBuilder()}
}

// Create inserts a memo
func (r *MemoRepository) Create(ctx context.Context, m *models.StudentMemo) error {
	sql, args, err := r.sb.Insert("student_memos").
		Columns("student_id", "author_user_id", "reservation_id", "content", "visible_to_student").
		Values(m.StudentID, m.AuthorUserID, m.ReservationID, m.Content, m.VisibleToStudent).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create memo query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return fmt.Errorf("error creating memo: %w", err)
	}
	return nil
}

// GetByID retrieves a memo
func (r *MemoRepository) GetByID(ctx context.Context, id int64) (*models.StudentMemo, error) {
	sql, args, err := r.sb.Select(memoColumns...).From("student_memos").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get memo query: %w", err)
	}
	m, err := scanMemo(r.db.Conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMemoNotFound
		}
		return nil, fmt.Errorf("error retrieving memo: %w", err)
	}
	return m, nil
}

// ListByStudent returns a student's memos, newest first. visibleOnly limits
// the result to memos shared with the student.
func (r *MemoRepository) ListByStudent(ctx context.Context, studentID int64, visibleOnly bool) ([]*models.StudentMemo, error) {
	q := r.sb.Select(memoColumns...).
		From("student_memos").
		Where(squirrel.Eq{"student_id": studentID}).
		OrderBy("created_at DESC", "id DESC")
	if visibleOnly {
		q = q.Where(squirrel.Eq{"visible_to_student": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list memos query: %w", err)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing memos: %w", err)
	}
	defer rows.Close()

	items := make([]*models.StudentMemo, 0)
	for rows.Next() {
		m, err := scanMemo(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning memo: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// Update writes content and visibility
func (r *MemoRepository) Update(ctx context.Context, m *models.StudentMemo) error {
	m.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("student_memos").
		Set("content", m.Content).
		Set("visible_to_student", m.VisibleToStudent).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update memo query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrMemoNotFound)
}

// Delete removes a memo
func (r *MemoRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("student_memos").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete memo query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrMemoNotFound)
}
