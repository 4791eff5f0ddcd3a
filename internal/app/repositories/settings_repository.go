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
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// SettingsRepository is the key/value store behind system_settings
type SettingsRepository struct {
	db *db.PostgresDB
	sb squirrel.StatementBuilderType
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(pg *db.PostgresDB) *SettingsRepository {
	return &SettingsRepository{db: pg, sb: statementBuilder()}
}

func (r *SettingsRepository) get(ctx context.Context, key string, lock bool) (*models.SystemSetting, error) {
	q := r.sb.Select("key", "value", "updated_by", "updated_at").
		From("system_settings").
		Where(squirrel.Eq{"key": key})
	if lock {
		q = q.Suffix("FOR UPDATE")
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get setting query: %w", err)
	}

	var (
		s   models.SystemSetting
		raw []byte
	)
	err = r.db.Conn(ctx).QueryRow(ctx, sql, args...).Scan(&s.Key, &raw, &s.UpdatedBy, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrResourceNotFound
		}
		logger.Error().Err(err).Str("key", key).Msg("Error reading system setting")
		return nil, fmt.Errorf("error reading setting %q: %w", key, err)
	}
	s.Value = raw
	return &s, nil
}

// Get returns a setting or ErrResourceNotFound
func (r *SettingsRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	return r.get(ctx, key, false)
}

// GetForUpdate is Get with a row lock, for read-modify-write inside a transaction
func (r *SettingsRepository) GetForUpdate(ctx context.Context, key string) (*models.SystemSetting, error) {
	return r.get(ctx, key, true)
}

// Upsert stores value under key
func (r *SettingsRepository) Upsert(ctx context.Context, key string, value []byte, updatedBy *int64) error {
	sql, args, err := r.sb.Insert("system_settings").
		Columns("key", "value", "updated_by", "updated_at").
		Values(key, string(value), updatedBy, time.Now()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert setting query: %w", err)
	}
	if _, err := r.db.Conn(ctx).Exec(ctx, sql, args...); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Error writing system setting")
		return fmt.Errorf("error writing setting %q: %w", key, err)
	}
	return nil
}

// InsertIfAbsent stores value only when key has no value yet
func (r *SettingsRepository) InsertIfAbsent(ctx context.Context, key string, value []byte) (bool, error) {
	sql, args, err := r.sb.Insert("system_settings").
		Columns("key", "value").
		Values(key, string(value)).
		Suffix("ON CONFLICT (key) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build insert setting query: %w", err)
	}
	tag, err := r.db.Conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("error inserting setting %q: %w", key, err)
	}
	return tag.RowsAffected() == 1, nil
}
