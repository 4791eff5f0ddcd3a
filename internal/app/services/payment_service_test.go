package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appauth "github.com/yigit/lingoschool/internal/app/auth"
	"github.com/yigit/lingoschool/internal/app/models"
	"github.com/yigit/lingoschool/internal/app/models/dto"
	"github.com/yigit/lingoschool/internal/pkg/apperrors"
	"github.com/yigit/lingoschool/internal/pkg/events"
)

func newPaymentFixture() (*PaymentService, *fakeStudents, *fakeReservations, *recorder) {
	users := newFakeUsers()
	students := newFakeStudents(users)
	reservations := newFakeReservations()
	rec := &recorder{}
	authz := appauth.NewAuthorizationService(students, users, newFakeMemos())
	svc := NewPaymentService(newFakePayments(reservations), students, authz, rec, "krw", zerolog.Nop())
	return svc, students, reservations, rec
}

func TestRecordPaymentDefaultsCurrency(t *testing.T) {
	svc, students, _, rec := newPaymentFixture()
	st := students.addStudent("2503140109", "mina@example.com", nil)

	p, err := svc.Record(context.Background(), 1, &dto.RecordPaymentRequest{
		StudentID: st.ID, Amount: 150000, Method: models.PaymentCard, LessonsPurchased: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, "KRW", p.Currency)
	assert.Equal(t, models.PaymentPaid, p.Status)
	assert.False(t, p.PaidAt.IsZero())
	assert.Equal(t, []string{events.PaymentRecorded}, rec.types())
}

func TestRecordPaymentUnknownStudent(t *testing.T) {
	svc, _, _, _ := newPaymentFixture()
	_, err := svc.Record(context.Background(), 1, &dto.RecordPaymentRequest{StudentID: 9, Amount: 1, Method: models.PaymentCash})
	assert.ErrorIs(t, err, apperrors.ErrStudentNotFound)
}

func TestRefundOnlyOnce(t *testing.T) {
	svc, students, _, _ := newPaymentFixture()
	ctx := context.Background()
	st := students.addStudent("2503140109", "mina@example.com", nil)
	p, err := svc.Record(ctx, 1, &dto.RecordPaymentRequest{StudentID: st.ID, Amount: 1000, Currency: "usd", Method: models.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, "USD", p.Currency)

	refunded, err := svc.Refund(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, refunded.Status)
	assert.NotNil(t, refunded.RefundedAt)

	_, err = svc.Refund(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusChange)
}

func TestRefundPublishesRefundEvent(t *testing.T) {
	svc, students, _, rec := newPaymentFixture()
	ctx := context.Background()
	st := students.addStudent("2503140109", "mina@example.com", nil)
	p, err := svc.Record(ctx, 1, &dto.RecordPaymentRequest{StudentID: st.ID, Amount: 150000, Method: models.PaymentCard, LessonsPurchased: 8})
	require.NoError(t, err)

	_, err = svc.Refund(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{events.PaymentRecorded, events.PaymentRefunded}, rec.types())

	payload, err := events.PayloadAs[events.PaymentPayload](rec.events[1])
	require.NoError(t, err)
	assert.Equal(t, string(models.PaymentRefunded), payload.Status)
	assert.Equal(t, "mina@example.com", payload.StudentEmail)
	assert.Equal(t, 8, payload.LessonsPurchased)
}

func TestBalance(t *testing.T) {
	svc, students, reservations, _ := newPaymentFixture()
	ctx := context.Background()
	st := students.addStudent("2503140109", "mina@example.com", nil)
	admin := appauth.Actor{UserID: 1, Role: models.RoleAdmin}

	_, err := svc.Record(ctx, 1, &dto.RecordPaymentRequest{StudentID: st.ID, Amount: 1000, Method: models.PaymentCash, LessonsPurchased: 8})
	require.NoError(t, err)
	refund, err := svc.Record(ctx, 1, &dto.RecordPaymentRequest{StudentID: st.ID, Amount: 500, Method: models.PaymentCash, LessonsPurchased: 4})
	require.NoError(t, err)
	_, err = svc.Refund(ctx, refund.ID)
	require.NoError(t, err)

	for _, status := range []models.ReservationStatus{models.ReservationCompleted, models.ReservationNoShow, models.ReservationCancelled} {
		require.NoError(t, reservations.Create(ctx, &models.Reservation{StudentID: st.ID, Status: status}))
	}

	b, err := svc.Balance(ctx, admin, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, b.LessonsPurchased)
	assert.Equal(t, 2, b.LessonsConsumed)
	assert.Equal(t, 6, b.LessonsRemaining)

	other := students.addStudent("2503140209", "other@example.com", nil)
	_, err = svc.Balance(ctx, appauth.Actor{UserID: other.UserID, Role: models.RoleStudent}, st.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}
