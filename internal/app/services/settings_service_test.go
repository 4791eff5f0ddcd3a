package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/lessonsettings"
)

func TestLessonDurationsEmpty(t *testing.T) {
	svc := NewSettingsService(newFakeSettings(), &fakeTx{}, zerolog.Nop())
	list, err := svc.LessonDurations(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestMergeAndRemoveLessonDurations(t *testing.T) {
	store := newFakeSettings()
	svc := NewSettingsService(store, &fakeTx{}, zerolog.Nop())
	ctx := context.Background()

	list, err := svc.MergeLessonDurations(ctx, []lessonsettings.DurationBuffer{
		{Duration: 60, BufferMinutes: 10},
		{Duration: 30, BufferMinutes: 5},
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, []lessonsettings.DurationBuffer{{Duration: 30, BufferMinutes: 5}, {Duration: 60, BufferMinutes: 10}}, list)

	list, err = svc.MergeLessonDurations(ctx, []lessonsettings.DurationBuffer{{Duration: 60, BufferMinutes: 15}}, 1)
	require.NoError(t, err)
	assert.Equal(t, 15, lessonsettings.BufferFor(list, 60))
	assert.Len(t, list, 2)

	list, err = svc.RemoveLessonDuration(ctx, 30, 1)
	require.NoError(t, err)
	assert.Equal(t, []lessonsettings.DurationBuffer{{Duration: 60, BufferMinutes: 15}}, list)

	_, err = svc.RemoveLessonDuration(ctx, 30, 1)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestMergeLessonDurationsValidates(t *testing.T) {
	svc := NewSettingsService(newFakeSettings(), &fakeTx{}, zerolog.Nop())
	_, err := svc.MergeLessonDurations(context.Background(), []lessonsettings.DurationBuffer{{Duration: 60, BufferMinutes: 500}}, 1)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestMergeLessonDurationsRejectsCorruptBlob(t *testing.T) {
	store := newFakeSettings()
	store.values[models.SettingLessonDurations] = []byte(`{"not":"a list"}`)
	svc := NewSettingsService(store, &fakeTx{}, zerolog.Nop())

	_, err := svc.MergeLessonDurations(context.Background(), []lessonsettings.DurationBuffer{{Duration: 60}}, 1)
	assert.ErrorIs(t, err, lessonsettings.ErrMalformedSettings)
}

func TestSeedDefaultsKeepsExisting(t *testing.T) {
	store := newFakeSettings()
	svc := NewSettingsService(store, &fakeTx{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.SeedDefaults(ctx))
	list, err := svc.LessonDurations(ctx)
	require.NoError(t, err)
	assert.Equal(t, lessonsettings.Defaults(), list)

	_, err = svc.RemoveLessonDuration(ctx, 45, 1)
	require.NoError(t, err)
	require.NoError(t, svc.SeedDefaults(ctx))
	list, err = svc.LessonDurations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
