package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
)

// errDBDown looks like a dropped Postgres connection
var errDBDown = &pgconn.PgError{Code: "08006", Message: "connection failure"}

type fakeTx struct {
	err   error
	calls int
}

func (f *fakeTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return fn(ctx)
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeUsers struct {
	nextID   int64
	users    map[int64]*models.User
	teachers map[int64]*models.Teacher
	staff    map[int64]*models.Staff
	admins   map[int64]*models.Admin
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:    map[int64]*models.User{},
		teachers: map[int64]*models.Teacher{},
		staff:    map[int64]*models.Staff{},
		admins:   map[int64]*models.Admin{},
	}
}

func (f *fakeUsers) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	u.ID = f.id()
	u.CreatedAt = time.Now()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return apperrors.ErrUserNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, userID int64, hash string) error {
	u, ok := f.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, userID int64) error {
	now := time.Now()
	if u, ok := f.users[userID]; ok {
		u.LastLoginAt = &now
	}
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	if _, ok := f.users[id]; !ok {
		return apperrors.ErrUserNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) List(_ context.Context, filter dto.UserFilter, offset uint64, limit int) ([]*models.User, int64, error) {
	var all []*models.User
	for _, u := range f.users {
		if filter.RoleType != "" && u.RoleType != filter.RoleType {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (f *fakeUsers) CreateTeacher(_ context.Context, t *models.Teacher) error {
	t.ID = f.id()
	cp := *t
	f.teachers[t.ID] = &cp
	return nil
}

func (f *fakeUsers) GetTeacherByID(_ context.Context, id int64) (*models.Teacher, error) {
	t, ok := f.teachers[id]
	if !ok {
		return nil, apperrors.ErrTeacherNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeUsers) GetTeacherByUserID(_ context.Context, userID int64) (*models.Teacher, error) {
	for _, t := range f.teachers {
		if t.UserID == userID {
			cp := *t
			return &cp, nil
		}
	}
	return nil, apperrors.ErrTeacherNotFound
}

func (f *fakeUsers) UpdateTeacher(_ context.Context, t *models.Teacher) error {
	cp := *t
	f.teachers[t.ID] = &cp
	return nil
}

func (f *fakeUsers) ListTeachers(_ context.Context, activeOnly bool) ([]*models.Teacher, error) {
	out := []*models.Teacher{}
	for _, t := range f.teachers {
		if activeOnly && !t.IsActive {
			continue
		}
		cp := *t
		cp.User = f.users[t.UserID]
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) LockTeacher(ctx context.Context, teacherID int64) (*models.Teacher, error) {
	return f.GetTeacherByID(ctx, teacherID)
}

func (f *fakeUsers) CreateStaff(_ context.Context, st *models.Staff) error {
	st.ID = f.id()
	cp := *st
	f.staff[st.ID] = &cp
	return nil
}

func (f *fakeUsers) GetStaffByUserID(_ context.Context, userID int64) (*models.Staff, error) {
	for _, st := range f.staff {
		if st.UserID == userID {
			cp := *st
			return &cp, nil
		}
	}
	return nil, apperrors.ErrStaffNotFound
}

func (f *fakeUsers) UpdateStaff(_ context.Context, st *models.Staff) error {
	cp := *st
	f.staff[st.ID] = &cp
	return nil
}

func (f *fakeUsers) CreateAdmin(_ context.Context, a *models.Admin) error {
	a.ID = f.id()
	cp := *a
	f.admins[a.ID] = &cp
	return nil
}

func (f *fakeUsers) GetAdminByUserID(_ context.Context, userID int64) (*models.Admin, error) {
	for _, a := range f.admins {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperrors.ErrResourceNotFound
}

// addTeacher creates an active TEACHER user with a profile
func (f *fakeUsers) addTeacher(name string) *models.Teacher {
	u := &models.User{Email: strings.ToLower(name) + "@lingoschool.app", FirstName: name, RoleType: models.RoleTeacher, IsActive: true}
	_ = f.Create(context.Background(), u)
	t := &models.Teacher{UserID: u.ID, IsActive: true, Languages: []string{"Korean"}}
	_ = f.CreateTeacher(context.Background(), t)
	return t
}

type fakeTokens struct {
	tokens  map[string]int64
	revoked map[string]bool
	// beforeRevoke runs between the lookup and the revoke of a rotation
	beforeRevoke func(token string)
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]int64{}, revoked: map[string]bool{}}
}

func (f *fakeTokens) CreateToken(_ context.Context, token string, userID int64, _ time.Time) error {
	f.tokens[token] = userID
	return nil
}

func (f *fakeTokens) GetUserIDByToken(_ context.Context, token string) (int64, error) {
	id, ok := f.tokens[token]
	if !ok {
		return 0, apperrors.ErrTokenNotFound
	}
	if f.revoked[token] {
		return 0, apperrors.ErrTokenRevoked
	}
	return id, nil
}

func (f *fakeTokens) RevokeToken(_ context.Context, token string) error {
	if f.beforeRevoke != nil {
		f.beforeRevoke(token)
	}
	if _, ok := f.tokens[token]; !ok || f.revoked[token] {
		return apperrors.ErrTokenRevoked
	}
	f.revoked[token] = true
	return nil
}

func (f *fakeTokens) RevokeAllUserTokens(_ context.Context, userID int64) error {
	for tok, id := range f.tokens {
		if id == userID {
			f.revoked[tok] = true
		}
	}
	return nil
}

func (f *fakeTokens) active(userID int64) int {
	n := 0
	for tok, id := range f.tokens {
		if id == userID && !f.revoked[tok] {
			n++
		}
	}
	return n
}

type fakeStudents struct {
	users    *fakeUsers
	nextID   int64
	students map[int64]*models.Student
	// dupFailures makes the next Create calls fail as if another
	// registration took the student ID first
	dupFailures int
	lookupErr   error
}

func newFakeStudents(users *fakeUsers) *fakeStudents {
	return &fakeStudents{users: users, students: map[int64]*models.Student{}}
}

func (f *fakeStudents) Create(_ context.Context, st *models.Student) error {
	if f.dupFailures > 0 {
		f.dupFailures--
		// the transaction rolls back, taking the new user row with it
		delete(f.users.users, st.UserID)
		return apperrors.ErrStudentIDAlreadyExists
	}
	for _, existing := range f.students {
		if existing.StudentID == st.StudentID {
			return apperrors.ErrStudentIDAlreadyExists
		}
	}
	f.nextID++
	st.ID = f.nextID
	st.EnrolledAt = time.Now()
	cp := *st
	cp.User, cp.Parent = nil, nil
	f.students[st.ID] = &cp
	return nil
}

func (f *fakeStudents) LastWithPrefix(_ context.Context, prefix string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	last := ""
	for _, st := range f.students {
		if strings.HasPrefix(st.StudentID, prefix) && len(st.StudentID) == 10 && st.StudentID > last {
			last = st.StudentID
		}
	}
	return last, nil
}

func (f *fakeStudents) hydrate(st *models.Student) *models.Student {
	cp := *st
	cp.User = f.users.users[st.UserID]
	if st.ParentUserID != nil {
		cp.Parent = f.users.users[*st.ParentUserID]
	}
	return &cp
}

func (f *fakeStudents) GetByID(_ context.Context, id int64) (*models.Student, error) {
	st, ok := f.students[id]
	if !ok {
		return nil, apperrors.ErrStudentNotFound
	}
	return f.hydrate(st), nil
}

func (f *fakeStudents) GetByUserID(_ context.Context, userID int64) (*models.Student, error) {
	for _, st := range f.students {
		if st.UserID == userID {
			return f.hydrate(st), nil
		}
	}
	return nil, apperrors.ErrStudentNotFound
}

func (f *fakeStudents) IDsForUser(_ context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	for _, st := range f.students {
		if st.UserID == userID || (st.ParentUserID != nil && *st.ParentUserID == userID) {
			ids = append(ids, st.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (f *fakeStudents) List(_ context.Context, filter dto.StudentFilter, offset uint64, limit int) ([]*models.Student, int64, error) {
	var all []*models.Student
	for _, st := range f.students {
		if filter.UserID != nil && st.UserID != *filter.UserID {
			continue
		}
		if filter.ParentUserID != nil && (st.ParentUserID == nil || *st.ParentUserID != *filter.ParentUserID) {
			continue
		}
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		all = append(all, f.hydrate(st))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (f *fakeStudents) Update(_ context.Context, st *models.Student) error {
	if _, ok := f.students[st.ID]; !ok {
		return apperrors.ErrStudentNotFound
	}
	cp := *st
	cp.User, cp.Parent = nil, nil
	f.students[st.ID] = &cp
	return nil
}

func (f *fakeStudents) Delete(_ context.Context, id int64) error {
	if _, ok := f.students[id]; !ok {
		return apperrors.ErrStudentNotFound
	}
	delete(f.students, id)
	return nil
}

// addStudent enrolls a student directly, bypassing the service
func (f *fakeStudents) addStudent(number, email string, parentUserID *int64) *models.Student {
	u := &models.User{Email: email, FirstName: "Student", LastName: number, RoleType: models.RoleStudent, IsActive: true}
	_ = f.users.Create(context.Background(), u)
	st := &models.Student{UserID: u.ID, StudentID: number, ParentUserID: parentUserID, Status: models.StudentActive}
	_ = f.Create(context.Background(), st)
	return st
}

type fakeSettings struct {
	values map[string][]byte
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: map[string][]byte{}}
}

func (f *fakeSettings) Get(_ context.Context, key string) (*models.SystemSetting, error) {
	v, ok := f.values[key]
	if !ok {
		return nil, apperrors.ErrResourceNotFound
	}
	return &models.SystemSetting{Key: key, Value: v}, nil
}

func (f *fakeSettings) GetForUpdate(ctx context.Context, key string) (*models.SystemSetting, error) {
	return f.Get(ctx, key)
}

func (f *fakeSettings) Upsert(_ context.Context, key string, value []byte, _ *int64) error {
	f.values[key] = value
	return nil
}

func (f *fakeSettings) InsertIfAbsent(_ context.Context, key string, value []byte) (bool, error) {
	if _, ok := f.values[key]; ok {
		return false, nil
	}
	f.values[key] = value
	return true, nil
}

type fakeReservations struct {
	nextID int64
	items  map[int64]*models.Reservation
	// beforeStatusUpdate runs between the service's read and its write
	beforeStatusUpdate func(res *models.Reservation)
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{items: map[int64]*models.Reservation{}}
}

func (f *fakeReservations) Create(_ context.Context, res *models.Reservation) error {
	f.nextID++
	res.ID = f.nextID
	cp := *res
	f.items[res.ID] = &cp
	return nil
}

func (f *fakeReservations) GetByID(_ context.Context, id int64) (*models.Reservation, error) {
	res, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrReservationNotFound
	}
	cp := *res
	return &cp, nil
}

func (f *fakeReservations) ScheduledNear(_ context.Context, teacherID int64, start, blockedUntil time.Time, excludeID int64) ([]*models.Reservation, error) {
	out := []*models.Reservation{}
	for _, res := range f.items {
		if res.TeacherID != teacherID || res.Status != models.ReservationScheduled || res.ID == excludeID {
			continue
		}
		if res.StartTime.Before(blockedUntil) && res.StartTime.After(start.Add(-12*time.Hour)) {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReservations) List(_ context.Context, filter dto.ReservationFilter, offset uint64, limit int) ([]*models.Reservation, int64, error) {
	var all []*models.Reservation
	for _, res := range f.items {
		if filter.StudentIDs != nil && !containsID(filter.StudentIDs, res.StudentID) {
			continue
		}
		if filter.TeacherID != nil && res.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		all = append(all, res)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (f *fakeReservations) UpdateStatus(_ context.Context, id int64, status models.ReservationStatus) (bool, error) {
	res, ok := f.items[id]
	if !ok {
		return false, nil
	}
	if f.beforeStatusUpdate != nil {
		f.beforeStatusUpdate(res)
	}
	if res.Status != models.ReservationScheduled {
		return false, nil
	}
	res.Status = status
	return true, nil
}

func (f *fakeReservations) UpdateSchedule(_ context.Context, res *models.Reservation) error {
	if _, ok := f.items[res.ID]; !ok {
		return apperrors.ErrReservationNotFound
	}
	cp := *res
	f.items[res.ID] = &cp
	return nil
}

func (f *fakeReservations) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return apperrors.ErrReservationNotFound
	}
	delete(f.items, id)
	return nil
}

type fakePayments struct {
	nextID       int64
	items        map[int64]*models.Payment
	reservations *fakeReservations
}

func newFakePayments(reservations *fakeReservations) *fakePayments {
	return &fakePayments{items: map[int64]*models.Payment{}, reservations: reservations}
}

func (f *fakePayments) Create(_ context.Context, p *models.Payment) error {
	f.nextID++
	p.ID = f.nextID
	cp := *p
	f.items[p.ID] = &cp
	return nil
}

func (f *fakePayments) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	p, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrPaymentNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePayments) List(_ context.Context, filter dto.PaymentFilter, offset uint64, limit int) ([]*models.Payment, int64, error) {
	var all []*models.Payment
	for _, p := range f.items {
		if filter.StudentIDs != nil && !containsID(filter.StudentIDs, p.StudentID) {
			continue
		}
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return page(all, offset, limit), int64(len(all)), nil
}

func (f *fakePayments) MarkRefunded(_ context.Context, id int64, at time.Time) (bool, error) {
	p, ok := f.items[id]
	if !ok || p.Status != models.PaymentPaid {
		return false, nil
	}
	p.Status = models.PaymentRefunded
	p.RefundedAt = &at
	return true, nil
}

func (f *fakePayments) Balance(_ context.Context, studentID int64) (*models.StudentBalance, error) {
	b := &models.StudentBalance{StudentID: studentID}
	for _, p := range f.items {
		if p.StudentID == studentID && p.Status == models.PaymentPaid {
			b.LessonsPurchased += p.LessonsPurchased
		}
	}
	for _, r := range f.reservations.items {
		if r.StudentID == studentID && (r.Status == models.ReservationCompleted || r.Status == models.ReservationNoShow) {
			b.LessonsConsumed++
		}
	}
	b.LessonsRemaining = b.LessonsPurchased - b.LessonsConsumed
	return b, nil
}

type fakeAgreements struct {
	nextID int64
	items  map[int64]*models.Agreement
}

func newFakeAgreements() *fakeAgreements {
	return &fakeAgreements{items: map[int64]*models.Agreement{}}
}

func (f *fakeAgreements) Create(_ context.Context, a *models.Agreement) error {
	f.nextID++
	a.ID = f.nextID
	cp := *a
	f.items[a.ID] = &cp
	return nil
}

func (f *fakeAgreements) GetByID(_ context.Context, id int64) (*models.Agreement, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrAgreementNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAgreements) ListByStudent(_ context.Context, studentID int64) ([]*models.Agreement, error) {
	out := []*models.Agreement{}
	for _, a := range f.items {
		if a.StudentID == studentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAgreements) SetPDFPath(_ context.Context, id int64, path string) error {
	a, ok := f.items[id]
	if !ok {
		return apperrors.ErrAgreementNotFound
	}
	a.PDFPath = &path
	return nil
}

type fakeMemos struct {
	nextID int64
	items  map[int64]*models.StudentMemo
}

func newFakeMemos() *fakeMemos {
	return &fakeMemos{items: map[int64]*models.StudentMemo{}}
}

func (f *fakeMemos) Create(_ context.Context, m *models.StudentMemo) error {
	f.nextID++
	m.ID = f.nextID
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeMemos) GetByID(_ context.Context, id int64) (*models.StudentMemo, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, apperrors.ErrMemoNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMemos) ListByStudent(_ context.Context, studentID int64, visibleOnly bool) ([]*models.StudentMemo, error) {
	out := []*models.StudentMemo{}
	for _, m := range f.items {
		if m.StudentID != studentID || (visibleOnly && !m.VisibleToStudent) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeMemos) Update(_ context.Context, m *models.StudentMemo) error {
	if _, ok := f.items[m.ID]; !ok {
		return apperrors.ErrMemoNotFound
	}
	cp := *m
	f.items[m.ID] = &cp
	return nil
}

func (f *fakeMemos) Delete(_ context.Context, id int64) error {
	if _, ok := f.items[id]; !ok {
		return apperrors.ErrMemoNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeInquiries struct {
	contacts []*models.ContactInquiry
	trials   []*models.TrialLessonRequest
}

func (f *fakeInquiries) CreateContact(_ context.Context, in *models.ContactInquiry) error {
	in.ID = int64(len(f.contacts) + 1)
	f.contacts = append(f.contacts, in)
	return nil
}

func (f *fakeInquiries) ListContacts(_ context.Context, status models.InquiryStatus, offset uint64, limit int) ([]*models.ContactInquiry, int64, error) {
	var all []*models.ContactInquiry
	for _, c := range f.contacts {
		if status == "" || c.Status == status {
			all = append(all, c)
		}
	}
	return page(all, offset, limit), int64(len(all)), nil
}

func (f *fakeInquiries) UpdateContactStatus(_ context.Context, id int64, status models.InquiryStatus) error {
	if id < 1 || int(id) > len(f.contacts) {
		return apperrors.ErrInquiryNotFound
	}
	f.contacts[id-1].Status = status
	return nil
}

func (f *fakeInquiries) CreateTrial(_ context.Context, t *models.TrialLessonRequest) error {
	t.ID = int64(len(f.trials) + 1)
	f.trials = append(f.trials, t)
	return nil
}

func (f *fakeInquiries) ListTrials(_ context.Context, status models.TrialStatus, offset uint64, limit int) ([]*models.TrialLessonRequest, int64, error) {
	var all []*models.TrialLessonRequest
	for _, t := range f.trials {
		if status == "" || t.Status == status {
			all = append(all, t)
		}
	}
	return page(all, offset, limit), int64(len(all)), nil
}

func (f *fakeInquiries) UpdateTrialStatus(_ context.Context, id int64, status models.TrialStatus) error {
	if id < 1 || int(id) > len(f.trials) {
		return apperrors.ErrTrialRequestNotFound
	}
	f.trials[id-1].Status = status
	return nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func page[T any](all []T, offset uint64, limit int) []T {
	if int(offset) >= len(all) {
		return []T{}
	}
	end := int(offset) + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
