package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/lessonsettings"
)

var lessonDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return lessonDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

type reservationFixture struct {
	svc          *ReservationService
	users        *fakeUsers
	students     *fakeStudents
	reservations *fakeReservations
	settings     *fakeSettings
	events       *recorder
	teacher      *models.Teacher
	student      *models.Student
	admin        appauth.Actor
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	users := newFakeUsers()
	students := newFakeStudents(users)
	settings := newFakeSettings()
	raw, err := lessonsettings.Merge(nil, lessonsettings.Defaults())
	require.NoError(t, err)
	settings.values[models.SettingLessonDurations] = raw

	f := &reservationFixture{
		users:        users,
		students:     students,
		reservations: newFakeReservations(),
		settings:     settings,
		events:       &recorder{},
		admin:        appauth.Actor{UserID: 1000, Role: models.RoleAdmin},
	}
	authz := appauth.NewAuthorizationService(students, users, newFakeMemos())
	settingsSvc := NewSettingsService(settings, &fakeTx{}, zerolog.Nop())
	f.svc = NewReservationService(f.reservations, users, students, settingsSvc, &fakeTx{}, authz, f.events, zerolog.Nop())
	f.teacher = users.addTeacher("Sora")
	f.student = students.addStudent("2503140109", "mina@example.com", nil)
	return f
}

func (f *reservationFixture) book(t *testing.T, start time.Time, minutes int) (*models.Reservation, error) {
	t.Helper()
	return f.svc.Create(context.Background(), f.admin, &dto.CreateReservationRequest{
		StudentID:       f.student.ID,
		TeacherID:       f.teacher.ID,
		StartTime:       start,
		DurationMinutes: minutes,
	})
}

func TestCreateReservationConflicts(t *testing.T) {
	// existing lesson 10:00-11:00 with a 10 minute buffer blocks until 11:10
	tests := []struct {
		name     string
		start    time.Time
		minutes  int
		conflict bool
	}{
		{name: "same slot", start: at(10, 0), minutes: 60, conflict: true},
		{name: "starts inside lesson", start: at(10, 30), minutes: 30, conflict: true},
		{name: "starts inside buffer", start: at(11, 5), minutes: 30, conflict: true},
		{name: "starts when buffer ends", start: at(11, 10), minutes: 30},
		{name: "own buffer runs into lesson", start: at(9, 30), minutes: 30, conflict: true},
		{name: "own buffer ends before lesson", start: at(9, 15), minutes: 30},
		{name: "longer buffer runs into lesson", start: at(9, 15), minutes: 45, conflict: true},
		{name: "well before", start: at(8, 0), minutes: 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newReservationFixture(t)
			_, err := f.book(t, at(10, 0), 60)
			require.NoError(t, err)

			_, err = f.book(t, tt.start, tt.minutes)
			if tt.conflict {
				assert.ErrorIs(t, err, apperrors.ErrReservationConflict)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCreateReservationSetsEndAndBuffer(t *testing.T) {
	f := newReservationFixture(t)
	res, err := f.book(t, at(14, 0), 45)
	require.NoError(t, err)
	assert.Equal(t, at(14, 45), res.EndTime)
	assert.Equal(t, 10, res.BufferMinutes)
	assert.Equal(t, models.ReservationScheduled, res.Status)
	assert.Equal(t, f.admin.UserID, res.CreatedBy)

	require.Len(t, f.events.events, 1)
	payload, err := events.PayloadAs[events.ReservationPayload](f.events.events[0])
	require.NoError(t, err)
	assert.Equal(t, "mina@example.com", payload.StudentEmail)
}

func TestCreateReservationRejectsUnknownDuration(t *testing.T) {
	f := newReservationFixture(t)
	_, err := f.book(t, at(14, 0), 50)
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedDuration)
}

func TestCancelledLessonFreesSlot(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	res, err := f.book(t, at(10, 0), 60)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.admin, res.ID, models.ReservationCancelled)
	require.NoError(t, err)
	assert.Contains(t, f.events.types(), events.ReservationCancelled)

	_, err = f.book(t, at(10, 0), 60)
	assert.NoError(t, err)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	res, err := f.book(t, at(10, 0), 60)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.admin, res.ID, models.ReservationCompleted)
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, f.admin, res.ID, models.ReservationCancelled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusChange)
}

func TestUpdateStatusLosesToConcurrentChange(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	res, err := f.book(t, at(10, 0), 60)
	require.NoError(t, err)

	// another request completes the lesson after this one read it
	f.reservations.beforeStatusUpdate = func(r *models.Reservation) {
		r.Status = models.ReservationCompleted
	}

	_, err = f.svc.UpdateStatus(ctx, f.admin, res.ID, models.ReservationCancelled)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusChange)
	assert.NotContains(t, f.events.types(), events.ReservationCancelled)

	stored, err := f.reservations.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationCompleted, stored.Status)
}

func TestTeacherCanOnlyBookOwnTime(t *testing.T) {
	f := newReservationFixture(t)
	other := f.users.addTeacher("Minho")
	sora := appauth.Actor{UserID: f.teacher.UserID, Role: models.RoleTeacher}

	_, err := f.svc.Create(context.Background(), sora, &dto.CreateReservationRequest{
		StudentID: f.student.ID, TeacherID: other.ID, StartTime: at(10, 0), DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	_, err = f.svc.Create(context.Background(), sora, &dto.CreateReservationRequest{
		StudentID: f.student.ID, TeacherID: f.teacher.ID, StartTime: at(10, 0), DurationMinutes: 60,
	})
	assert.NoError(t, err)
}

func TestRescheduleExcludesItself(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	res, err := f.book(t, at(10, 0), 60)
	require.NoError(t, err)
	_, err = f.book(t, at(12, 0), 60)
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(ctx, f.admin, res.ID, &dto.RescheduleRequest{StartTime: at(10, 30)})
	require.NoError(t, err)
	assert.Equal(t, at(11, 30), moved.EndTime)

	_, err = f.svc.Reschedule(ctx, f.admin, res.ID, &dto.RescheduleRequest{StartTime: at(11, 30)})
	assert.ErrorIs(t, err, apperrors.ErrReservationConflict)
}

func TestListReservationsScopedToStudent(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	other := f.students.addStudent("2503140209", "other@example.com", nil)
	_, err := f.book(t, at(10, 0), 60)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.admin, &dto.CreateReservationRequest{
		StudentID: other.ID, TeacherID: f.teacher.ID, StartTime: at(14, 0), DurationMinutes: 60,
	})
	require.NoError(t, err)

	actor := appauth.Actor{UserID: f.student.UserID, Role: models.RoleStudent}
	page, err := f.svc.List(ctx, actor, dto.ReservationFilter{StudentIDs: []int64{other.ID}}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), page.Pagination.TotalItems)

	page, err = f.svc.List(ctx, actor, dto.ReservationFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Pagination.TotalItems)
}
