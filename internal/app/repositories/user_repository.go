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

const usersEmailKey = "users_email_key"

var userColumns = []string{
	"u.id", "u.email", "u.password", "u.first_name", "u.last_name", "u.phone",
	"u.role_type", "u.is_active", "u.last_login_at", "u.created_at", "u.updated_at",
}

func scanUser(row scanner, u *models.User) error {
	return row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.Phone,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
}

// UserRepository handles users and the teacher, staff and admin profiles
type UserRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(pg *db.PostgresDB) *UserRepository {
	return &UserRepository{db: pg, sb: statementBuilder()}
}

// Create inserts a user and fills in its ID and timestamps
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	sql, args, err := r.sb.Insert("users").
		Columns("email", "password", "first_name", "last_name", "phone", "role_type", "is_active").
		Values(user.Email, user.Password, user.FirstName, user.LastName, user.Phone, user.RoleType, user.IsActive).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return fmt.Errorf("failed to build create user query: %w", err)
	}

	err = r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, usersEmailKey) {
			return apperrors.ErrEmailAlreadyExists
		}
		logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
		return fmt.Errorf("error creating user: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := r.sb.Select(userColumns...).
		From("users u").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	var user models.User
	if err := scanUser(r.db.Conn(ctx).QueryRow(ctx, sql, args...), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": id})
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Expr("lower(u.email) = ?", strings.ToLower(email)))
}

// Update writes names, phone and the active flag
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	sql, args, err := r.sb.Update("users").
		Set("first_name", user.FirstName).
		Set("last_name", user.LastName).
		Set("phone", user.Phone).
		Set("is_active", user.IsActive).
		Set("updated_at", user.UpdatedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update user SQL")
		return fmt.Errorf("failed to build update user query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrUserNotFound)
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	sql, args, err := r.sb.Update("users").
		Set("password", hash).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update password query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrUserNotFound)
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	sql, args, err := r.sb.Update("users").
		Set("last_login_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update last login query: %w", err)
	}
	if _, err := r.db.Conn(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to update last login time: %w", err)
	}
	return nil
}

// Delete removes a user. Users still referenced by lessons are kept.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete user query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrUserNotFound)
}

// List returns a page of users and the total count
func (r *UserRepository) List(ctx context.Context, filter dto.UserFilter, offset uint64, limit int) ([]*models.User, int64, error) {
	where := squirrel.And{}
	if filter.RoleType != "" {
		where = append(where, squirrel.Eq{"u.role_type": filter.RoleType})
	}
	if filter.Active != nil {
		where = append(where, squirrel.Eq{"u.is_active": *filter.Active})
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := "%" + s + "%"
		where = append(where, squirrel.Or{
			squirrel.ILike{"u.email": pattern},
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
		})
	}

	var total int64
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("users u").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count users query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting users")
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	sql, args, err := r.sb.Select(userColumns...).
		From("users u").
		Where(where).
		OrderBy("u.created_at DESC", "u.id DESC").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing users")
		return nil, 0, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, &u)
	}
	return users, total, rows.Err()
}

// CreateTeacher inserts a teacher profile
func (r *UserRepository) CreateTeacher(ctx context.Context, teacher *models.Teacher) error {
	if teacher.Languages == nil {
		teacher.Languages = []string{}
	}
	sql, args, err := r.sb.Insert("teachers").
		Columns("user_id", "bio", "languages", "is_active").
		Values(teacher.UserID, teacher.Bio, teacher.Languages, teacher.IsActive).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create teacher query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&teacher.ID, &teacher.CreatedAt); err != nil {
		logger.Error().Err(err).Int64("userID", teacher.UserID).Msg("Error creating teacher profile")
		return fmt.Errorf("error creating teacher: %w", err)
	}
	return nil
}

var teacherColumns = append([]string{"t.id", "t.user_id", "t.bio", "t.languages", "t.is_active", "t.created_at"}, userColumns...)

func scanTeacher(row scanner) (*models.Teacher, error) {
	t := &models.Teacher{User: &models.User{}}
	u := t.User
	err := row.Scan(&t.ID, &t.UserID, &t.Bio, &t.Languages, &t.IsActive, &t.CreatedAt,
		&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &u.Phone,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	return t, err
}

func (r *UserRepository) getTeacher(ctx context.Context, where squirrel.Sqlizer) (*models.Teacher, error) {
	sql, args, err := r.sb.Select(teacherColumns...).
		From("teachers t").
		Join("users u ON u.id = t.user_id").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get teacher query: %w", err)
	}
	t, err := scanTeacher(r.db.Conn(ctx).QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeacherNotFound
		}
		return nil, fmt.Errorf("error retrieving teacher: %w", err)
	}
	return t, nil
}

// GetTeacherByID retrieves a teacher profile with its user
func (r *UserRepository) GetTeacherByID(ctx context.Context, id int64) (*models.Teacher, error) {
	return r.getTeacher(ctx, squirrel.Eq{"t.id": id})
}

// GetTeacherByUserID retrieves the teacher profile of a user
func (r *UserRepository) GetTeacherByUserID(ctx context.Context, userID int64) (*models.Teacher, error) {
	return r.getTeacher(ctx, squirrel.Eq{"t.user_id": userID})
}

// UpdateTeacher writes bio, languages and the active flag
func (r *UserRepository) UpdateTeacher(ctx context.Context, teacher *models.Teacher) error {
	sql, args, err := r.sb.Update("teachers").
		Set("bio", teacher.Bio).
		Set("languages", teacher.Languages).
		Set("is_active", teacher.IsActive).
		Where(squirrel.Eq{"id": teacher.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update teacher query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrTeacherNotFound)
}

// ListTeachers returns teachers ordered by name. activeOnly also requires an
// active user account.
func (r *UserRepository) ListTeachers(ctx context.Context, activeOnly bool) ([]*models.Teacher, error) {
	q := r.sb.Select(teacherColumns...).
		From("teachers t").
		Join("users u ON u.id = t.user_id").
		OrderBy("u.first_name", "u.last_name", "t.id")
	if activeOnly {
		q = q.Where(squirrel.Eq{"t.is_active": true, "u.is_active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list teachers query: %w", err)
	}

	rows, err := r.db.Conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing teachers")
		return nil, fmt.Errorf("error listing teachers: %w", err)
	}
	defer rows.Close()

	teachers := make([]*models.Teacher, 0)
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning teacher: %w", err)
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}

// LockTeacher takes a row lock on the teacher so bookings for the same
// teacher run one at a time. It must be called inside a transaction.
func (r *UserRepository) LockTeacher(ctx context.Context, teacherID int64) (*models.Teacher, error) {
	sql, args, err := r.sb.Select("id", "user_id", "is_active").
		From("teachers").
		Where(squirrel.Eq{"id": teacherID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock teacher query: %w", err)
	}
	var t models.Teacher
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&t.ID, &t.UserID, &t.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeacherNotFound
		}
		return nil, fmt.Errorf("error locking teacher: %w", err)
	}
	return &t, nil
}

// CreateStaff inserts a staff profile
func (r *UserRepository) CreateStaff(ctx context.Context, staff *models.Staff) error {
	sql, args, err := r.sb.Insert("staff").
		Columns("user_id", "position").
		Values(staff.UserID, staff.Position).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create staff query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&staff.ID, &staff.CreatedAt); err != nil {
		return fmt.Errorf("error creating staff: %w", err)
	}
	return nil
}

// GetStaffByUserID retrieves the staff profile of a user
func (r *UserRepository) GetStaffByUserID(ctx context.Context, userID int64) (*models.Staff, error) {
	sql, args, err := r.sb.Select("id", "user_id", "position", "created_at").
		From("staff").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get staff query: %w", err)
	}
	var s models.Staff
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&s.ID, &s.UserID, &s.Position, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStaffNotFound
		}
		return nil, fmt.Errorf("error retrieving staff: %w", err)
	}
	return &s, nil
}

// UpdateStaff writes the staff position
func (r *UserRepository) UpdateStaff(ctx context.Context, staff *models.Staff) error {
	sql, args, err := r.sb.Update("staff").
		Set("position", staff.Position).
		Where(squirrel.Eq{"id": staff.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update staff query: %w", err)
	}
	return execOne(ctx, r.db.Conn(ctx), sql, args, apperrors.ErrStaffNotFound)
}

// CreateAdmin inserts an admin profile
func (r *UserRepository) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	sql, args, err := r.sb.Insert("admins").
		Columns("user_id", "is_super_admin").
		Values(admin.UserID, admin.IsSuperAdmin).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create admin query: %w", err)
	}
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&admin.ID, &admin.CreatedAt); err != nil {
		return fmt.Errorf("error creating admin: %w", err)
	}
	return nil
}

// GetAdminByUserID retrieves the admin profile of a user
func (r *UserRepository) GetAdminByUserID(ctx context.Context, userID int64) (*models.Admin, error) {
	sql, args, err := r.sb.Select("id", "user_id", "is_super_admin", "created_at").
		From("admins").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get admin query: %w", err)
	}
	var a models.Admin
	if err := r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&a.ID, &a.UserID, &a.IsSuperAdmin, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrResourceNotFound
		}
		return nil, fmt.Errorf("error retrieving admin: %w", err)
	}
	return &a, nil
}
