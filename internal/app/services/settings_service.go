package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/db"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/lessonsettings"
)

// SettingsService reads and edits system settings
type SettingsService struct {
	settings SettingsStore
	tx       db.Transactor
	logger   zerolog.Logger
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(settings SettingsStore, tx db.Transactor, logger zerolog.Logger) *SettingsService {
	return &SettingsService{settings: settings, tx: tx, logger: logger}
}

// LessonDurations returns the configured durations, empty when none are set
func (s *SettingsService) LessonDurations(ctx context.Context) ([]lessonsettings.DurationBuffer, error) {
	setting, err := s.settings.Get(ctx, models.SettingLessonDurations)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return []lessonsettings.DurationBuffer{}, nil
		}
		return nil, err
	}
	list, err := lessonsettings.Parse(setting.Value)
	if err != nil {
		s.logger.Error().Err(err).Msg("Stored lesson durations are malformed")
		return nil, err
	}
	return list, nil
}

// MergeLessonDurations upserts entries by duration. The row is locked so
// concurrent edits do not lose each other's entries.
func (s *SettingsService) MergeLessonDurations(ctx context.Context, updates []lessonsettings.DurationBuffer, updatedBy int64) ([]lessonsettings.DurationBuffer, error) {
	var merged []byte
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.currentForUpdate(ctx)
		if err != nil {
			return err
		}
		merged, err = lessonsettings.Merge(existing, updates)
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}
		return s.settings.Upsert(ctx, models.SettingLessonDurations, merged, &updatedBy)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", updatedBy).Int("entries", len(updates)).Msg("Lesson durations updated")
	return lessonsettings.Parse(merged)
}

// RemoveLessonDuration drops one duration
func (s *SettingsService) RemoveLessonDuration(ctx context.Context, duration int, updatedBy int64) ([]lessonsettings.DurationBuffer, error) {
	var out []byte
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.currentForUpdate(ctx)
		if err != nil {
			return err
		}
		var found bool
		out, found, err = lessonsettings.Remove(existing, duration)
		if err != nil {
			return err
		}
		if !found {
			return apperrors.NewResourceNotFoundError(fmt.Sprintf("lesson duration %d is not configured", duration))
		}
		return s.settings.Upsert(ctx, models.SettingLessonDurations, out, &updatedBy)
	})
	if err != nil {
		return nil, err
	}
	return lessonsettings.Parse(out)
}

func (s *SettingsService) currentForUpdate(ctx context.Context) ([]byte, error) {
	setting, err := s.settings.GetForUpdate(ctx, models.SettingLessonDurations)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return setting.Value, nil
}

// SeedDefaults stores the default durations unless durations were configured
// before
func (s *SettingsService) SeedDefaults(ctx context.Context) error {
	raw, err := lessonsettings.Merge(nil, lessonsettings.Defaults())
	if err != nil {
		return err
	}
	inserted, err := s.settings.InsertIfAbsent(ctx, models.SettingLessonDurations, raw)
	if err != nil {
		return err
	}
	if inserted {
		s.logger.Info().Msg("Default lesson durations seeded")
	}
	return nil
}
