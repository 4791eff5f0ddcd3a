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
	"github.com/yigit/lingoschool/internal/pkg/auth"
	"github.com/yigit/lingoschool/internal/pkg/dberrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
	"github.com/yigit/lingoschool/internal/pkg/offline"
	"github.com/yigit/lingoschool/internal/pkg/studentid"
)

var registeredAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

type studentFixture struct {
	svc      *StudentService
	users    *fakeUsers
	students *fakeStudents
	tx       *fakeTx
	queue    *offline.Queue
	events   *recorder
}

func newStudentFixture(t *testing.T) *studentFixture {
	t.Helper()
	users := newFakeUsers()
	students := newFakeStudents(users)
	queue, err := offline.NewQueue(t.TempDir())
	require.NoError(t, err)

	f := &studentFixture{
		users:    users,
		students: students,
		tx:       &fakeTx{},
		queue:    queue,
		events:   &recorder{},
	}
	authz := appauth.NewAuthorizationService(students, users, newFakeMemos())
	f.svc = NewStudentService(users, students, f.tx, studentid.NewGenerator(students, dberrors.IsUnavailable),
		queue, authz, f.events, nil, zerolog.Nop())
	f.svc.now = func() time.Time { return registeredAt }
	return f
}

func registerRequest(email string) *dto.RegisterStudentRequest {
	return &dto.RegisterStudentRequest{
		Email:     email,
		Password:  "secret-pass-1",
		FirstName: "Mina",
		LastName:  "Kim",
		Level:     "A2",
	}
}

func TestRegisterIssuesStudentID(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	first, queued, err := f.svc.Register(ctx, registerRequest(" Mina.Kim@Example.com "))
	require.NoError(t, err)
	assert.Nil(t, queued)
	assert.Equal(t, "2503140109", first.StudentID)
	assert.Equal(t, "mina.kim@example.com", first.Email)
	assert.Equal(t, models.StudentActive, first.Status)

	second, _, err := f.svc.Register(ctx, registerRequest("jisoo@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "2503140209", second.StudentID)

	user, err := f.users.GetByID(ctx, first.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.RoleType)
	assert.True(t, auth.CheckPassword(user.Password, "secret-pass-1"))
	assert.Equal(t, []string{events.StudentRegistered, events.StudentRegistered}, f.events.types())
}

func TestRegisterWithoutPasswordIsNotLoginable(t *testing.T) {
	f := newStudentFixture(t)
	req := registerRequest("nopass@example.com")
	req.Password = ""

	resp, _, err := f.svc.Register(context.Background(), req)
	require.NoError(t, err)
	user, err := f.users.GetByID(context.Background(), resp.UserID)
	require.NoError(t, err)
	assert.NotEmpty(t, user.Password)
	assert.False(t, auth.CheckPassword(user.Password, ""))
}

func TestRegisterRetriesOnDuplicateStudentID(t *testing.T) {
	tests := []struct {
		name       string
		duplicates int
		wantErr    bool
	}{
		{name: "succeeds on third attempt", duplicates: 2},
		{name: "gives up after three attempts", duplicates: 3, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStudentFixture(t)
			f.students.dupFailures = tt.duplicates
			req := registerRequest("race@example.com")

			resp, _, err := f.svc.Register(context.Background(), req)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrStudentIDAlreadyExists)
				assert.Equal(t, maxStudentIDAttempts, f.tx.calls)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "2503140109", resp.StudentID)
			assert.Equal(t, tt.duplicates+1, f.tx.calls)
		})
	}
}

func TestRegisterLinksParent(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	req := registerRequest("kid@example.com")
	req.ParentEmail = "Parent@Example.com"
	req.ParentName = "Hana Kim"
	first, _, err := f.svc.Register(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, first.ParentUserID)
	assert.Equal(t, "parent@example.com", first.ParentEmail)

	parent, err := f.users.GetByEmail(ctx, "parent@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleParent, parent.RoleType)
	assert.Equal(t, "Hana", parent.FirstName)
	assert.Equal(t, "Kim", parent.LastName)

	sibling := registerRequest("kid2@example.com")
	sibling.ParentEmail = "parent@example.com"
	second, _, err := f.svc.Register(ctx, sibling)
	require.NoError(t, err)
	assert.Equal(t, *first.ParentUserID, *second.ParentUserID)

	mine, err := f.svc.MyStudents(ctx, appauth.Actor{UserID: parent.ID, Role: models.RoleParent})
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestRegisterRejectsNonParentAccount(t *testing.T) {
	f := newStudentFixture(t)
	f.users.addTeacher("Sora")

	req := registerRequest("kid@example.com")
	req.ParentEmail = "sora@lingoschool.app"
	_, _, err := f.svc.Register(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestRegisterQueuesWhenDatabaseIsDown(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *studentFixture)
	}{
		{name: "student ID lookup fails", setup: func(f *studentFixture) { f.students.lookupErr = errDBDown }},
		{name: "transaction cannot begin", setup: func(f *studentFixture) { f.tx.err = errDBDown }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStudentFixture(t)
			tt.setup(f)

			resp, queued, err := f.svc.Register(context.Background(), registerRequest("offline@example.com"))
			require.NoError(t, err)
			assert.Nil(t, resp)
			require.NotNil(t, queued)
			assert.True(t, queued.Queued)
			assert.True(t, studentid.IsOffline(queued.OfflineID))
			assert.Equal(t, "250314-", queued.OfflineID[:7])

			entries, err := f.queue.List()
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.NotContains(t, string(entries[0].Payload), "secret-pass-1")

			pending, err := f.svc.ListOffline(context.Background())
			require.NoError(t, err)
			require.Len(t, pending, 1)
			assert.Equal(t, "offline@example.com", pending[0].Request.Email)
			assert.Empty(t, pending[0].Request.Password)
		})
	}
}

func TestImportOffline(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()

	f.students.lookupErr = errDBDown
	_, a, err := f.svc.Register(ctx, registerRequest("a@example.com"))
	require.NoError(t, err)
	_, b, err := f.svc.Register(ctx, registerRequest("b@example.com"))
	require.NoError(t, err)

	// b's email gets taken while the registration sits in the queue
	require.NoError(t, f.users.Create(ctx, &models.User{Email: "b@example.com", RoleType: models.RoleParent}))
	f.students.lookupErr = nil

	result, err := f.svc.ImportOffline(ctx)
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, a.OfflineID, result.Imported[0].OfflineID)
	assert.Equal(t, "2503140109", result.Imported[0].StudentID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, b.OfflineID, result.Failed[0].OfflineID)

	entries, err := f.queue.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, b.OfflineID, entries[0].OfflineID)

	user, err := f.users.GetByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword(user.Password, "secret-pass-1"))
}

func TestImportOfflineStopsWhileDatabaseIsDown(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	f.students.lookupErr = errDBDown
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, _, err := f.svc.Register(ctx, registerRequest(email))
		require.NoError(t, err)
	}

	result, err := f.svc.ImportOffline(ctx)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Len(t, result.Failed, 2)

	entries, err := f.queue.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestListStudentsScopedToParent(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	parent := &models.User{Email: "p@example.com", RoleType: models.RoleParent}
	require.NoError(t, f.users.Create(ctx, parent))
	f.students.addStudent("2503140109", "one@example.com", &parent.ID)
	f.students.addStudent("2503140209", "two@example.com", nil)

	page, err := f.svc.ListStudents(ctx, appauth.Actor{UserID: parent.ID, Role: models.RoleParent}, dto.StudentFilter{}, 1, 10)
	require.NoError(t, err)
	items := page.Items.([]dto.StudentResponse)
	require.Len(t, items, 1)
	assert.Equal(t, "2503140109", items[0].StudentID)

	all, err := f.svc.ListStudents(ctx, appauth.Actor{UserID: 99, Role: models.RoleStaff}, dto.StudentFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Pagination.TotalItems)
}

func TestGetStudentDeniesOtherStudents(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	mine := f.students.addStudent("2503140109", "me@example.com", nil)
	other := f.students.addStudent("2503140209", "other@example.com", nil)
	actor := appauth.Actor{UserID: mine.UserID, Role: models.RoleStudent}

	got, err := f.svc.GetStudent(ctx, actor, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "me@example.com", got.Email)

	_, err = f.svc.GetStudent(ctx, actor, other.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestUpdateStudent(t *testing.T) {
	f := newStudentFixture(t)
	ctx := context.Background()
	st := f.students.addStudent("2503140109", "me@example.com", nil)

	level := "B1"
	status := models.StudentPaused
	phone := "+82-10-0000-0000"
	resp, err := f.svc.UpdateStudent(ctx, st.ID, &dto.UpdateStudentRequest{Level: &level, Status: &status, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "B1", resp.Level)
	assert.Equal(t, models.StudentPaused, resp.Status)

	user, err := f.users.GetByID(ctx, st.UserID)
	require.NoError(t, err)
	require.NotNil(t, user.Phone)
	assert.Equal(t, phone, *user.Phone)
}

// scriptedOfflineIDs hands out offline IDs in order
type scriptedOfflineIDs struct {
	StudentIDGenerator
	ids []string
}

func (g *scriptedOfflineIDs) Offline(time.Time) (string, error) {
	id := g.ids[0]
	g.ids = g.ids[1:]
	return id, nil
}

func TestRegisterDrawsNewOfflineIDWhenQueued(t *testing.T) {
	f := newStudentFixture(t)
	f.tx.err = errDBDown
	f.svc.ids = &scriptedOfflineIDs{ids: []string{"250314-1111", "250314-1111", "250314-2222"}}

	_, first, err := f.svc.Register(context.Background(), registerRequest("first@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "250314-1111", first.OfflineID)

	_, second, err := f.svc.Register(context.Background(), registerRequest("second@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "250314-2222", second.OfflineID)

	entries, err := f.queue.List()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRegisterGivesUpAfterRepeatedOfflineIDCollisions(t *testing.T) {
	f := newStudentFixture(t)
	f.tx.err = errDBDown
	ids := []string{"250314-1111"}
	for i := 0; i < maxOfflineIDAttempts; i++ {
		ids = append(ids, "250314-1111")
	}
	f.svc.ids = &scriptedOfflineIDs{ids: ids}

	_, _, err := f.svc.Register(context.Background(), registerRequest("first@example.com"))
	require.NoError(t, err)

	_, queued, err := f.svc.Register(context.Background(), registerRequest("second@example.com"))
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.Nil(t, queued)

	entries, err := f.queue.List()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
