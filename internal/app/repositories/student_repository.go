package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/dberrors"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// StudentIDConstraint is the unique constraint on issued student numbers
const StudentIDConstraint = "students_student_id_key"

// studentIDLength is YYMMDD + sequence + hour
const studentIDLength = 10

var studentColumns = []string{
	"s.id", "s.user_id", "s.student_id", "s.parent_user_id", "s.birth_date", "s.level",
	"s.status", "s.notes", "s.enrolled_at", "s.updated_at",
	"u.id", "u.email", "u.first_name", "u.last_name", "u.phone", "u.role_type", "u.is_active", "u.created_at",
	"p.id", "p.email", "p.first_name", "p.last_name",
}

// StudentRepository handles student database operations
type StudentRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(pg *db.PostgresDB) *StudentRepository {
	return &StudentRepository{db: pg, sb: statementBuilder()}
}

func scanStudent(row scanner) (*models.Student, error) {
	s := &models.Student{User: &models.User{}}
	u := s.User
	var (
		parentID                    *int64
		parentEmail                 *string
		parentFirstName, parentLast *string
	)
	err := row.Scan(&s.ID, &s.UserID, &s.StudentID, &s.ParentUserID, &s.BirthDate, &s.Level,
		&s.Status, &s.Notes, &s.EnrolledAt, &s.UpdatedAt,
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.RoleType, &u.IsActive, &u.CreatedAt,
		&parentID, &parentEmail, &parentFirstName, &parentLast)
	if err != nil {
		return nil, err
	}
	if parentID != nil {
		s.Parent = &models.User{ID: *parentID, Email: deref(parentEmail), FirstName: deref(parentFirstName), LastName: deref(parentLast), RoleType: models.RoleParent}
	}
	return s, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *StudentRepository) selectStudents() squirrel.SelectBuilder {
	return r.sb.Select(studentColumns...).
		From("students s").
		Join("users u ON u.id = s.user_id").
		LeftJoin("users p ON p.id = s.parent_user_id")
}

// Create inserts a student row. A clash on the student number returns
// ErrStudentIDAlreadyExists so the caller can issue a new one.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.Status == "" {
		student.Status = models.StudentActive
	}
	sql, args, err := r.sb.Insert("students").
		Columns("user_id", "student_id", "parent_user_id", "birth_date", "level", "status", "notes").
		Values(student.UserID, student.StudentID, student.ParentUserID, student.BirthDate, student.Level, student.Status, student.Notes).
		Suffix("RETURNING id, enrolled_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create student SQL")
		return fmt.Errorf("failed to build create student query: %w", err)
	}

	err = r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&student.ID, &student.EnrolledAt, &student.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, StudentIDConstraint) {
			logger.Warn().Str("studentID", student.StudentID).Msg("Attempted to create student with duplicate student ID")
			return apperrors.ErrStudentIDAlreadyExists
		}
		logger.Error().Err(err).Int64("userID", student.UserID).Str("studentID", student.StudentID).Msg("Error executing create student query")
		return fmt.Errorf("error creating student: %w", err)
	}

	logger.Info().Int64("userID", student.UserID).Str("studentID", student.StudentID).Msg("Student created successfully")
	return nil
}

// LastWithPrefix returns the highest student number starting with prefix,
// or "" when none was issued yet.
func (r *StudentRepository) LastWithPrefix(ctx context.Context, prefix string) (string, error) {
	sql, args, err := r.sb.Select("student_id").
		From("students").
		Where(squirrel.Like{"student_id": prefix + "%"}).
		Where(squirrel.Expr("char_length(student_id) = ?", studentIDLength)).
		OrderBy("student_id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build last student ID query: %w", err)
	}

	var last string
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&last); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("error reading last student ID: %w", err)
	}
	return last, nil
}

// GetByID retrieves a student with its user and parent
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"s.id": id})
}

// GetByUserID retrieves the student record owned by a user
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	return r.getOne(ctx, squirrel.Eq{"s.user_id": userID})
}

func (r *StudentRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Student, error) {
	sql, args, err := r.selectStudents().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get student query: %w", err)
	}
	s, err := scanStudent(r.db.Conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		logger.Error().Err(err).Msg("Error retrieving student")
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// IDsForUser returns the students a user may see as themselves or as a parent
func (r *StudentRepository) IDsForUser(ctx context.Context, userID int64) ([]int64, error) {
	sql, args, err := r.sb.Select("id").
		From("students").
		Where(squirrel.Or{squirrel.Eq{"user_id": userID}, squirrel.Eq{"parent_user_id": userID}}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student ids query: %w", err)
	}
	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing student ids: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning student id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// List returns a page of students and the total count
func (r *StudentRepository) List(ctx context.Context, filter dto.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error) {
	where := squirrel.And{}
	if filter.Status != "" {
		where = append(where, squirrel.Eq{"s.status": filter.Status})
	}
	if filter.ParentUserID != nil {
		where = append(where, squirrel.Eq{"s.parent_user_id": *filter.ParentUserID})
	}
	if filter.UserID != nil {
		where = append(where, squirrel.Eq{"s.user_id": *filter.UserID})
	}
	if q := strings.TrimSpace(filter.Search); q != "" {
		pattern := "%" + q + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
			squirrel.ILike{"u.email": pattern},
			squirrel.Like{"s.student_id": q + "%"},
		})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").
		From("students s").
		Join("users u ON u.id = s.user_id").
		Where(where).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count students query: %w", err)
	}
	var total int64
	if err := r.db.Conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting students")
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	sql, args, err := r.selectStudents().
		Where(where).
		OrderBy("s.enrolled_at DESC", "s.id DESC").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list students query: %w", err)
	}

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing students")
		return nil, 0, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := make([]*models.Student, 0)
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, s)
	}
	return students, total, rows.Err()
}

// Update writes level, status, notes and the parent link
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("students").
		Set("level", student.Level).
		Set("status", student.Status).
		Set("notes", student.Notes).
		Set("parent_user_id", student.ParentUserID).
		Set("updated_at", student.UpdatedAt).
		Where(squirrel.Eq{"id": student.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrStudentNotFound)
}

// Delete removes the student's user account, which cascades to the student
// and its lessons, payments and agreements.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("users").
		Where("id = (SELECT user_id FROM students WHERE id = ?)", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete student query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrStudentNotFound)
}
