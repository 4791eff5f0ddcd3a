package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/lingoschool/internal/pkg/email"
)

type recordingPublisher struct {
	got []Event
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, ev Event) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestNewAndDecode(t *testing.T) {
	ev, err := New(ContactReceived, ContactPayload{InquiryID: 3, Name: "Ann", Email: "ann@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.WithinDuration(t, time.Now(), ev.OccurredAt, time.Minute)

	body, err := json.Marshal(ev)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	p, err := PayloadAs[ContactPayload](decoded)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.InquiryID)

	_, err = Decode([]byte("nope"))
	assert.ErrorIs(t, err, ErrMalformedEvent)
	_, err = Decode([]byte(`{"id":"x"}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestMultiPublisherSwallowsErrors(t *testing.T) {
	failing := &recordingPublisher{err: errors.New("broker down")}
	ok := &recordingPublisher{}
	m := NewMultiPublisher(failing, nil, ok)

	ev, err := New(PaymentRecorded, PaymentPayload{PaymentID: 1})
	require.NoError(t, err)

	assert.NoError(t, m.Publish(context.Background(), ev))
	assert.Len(t, failing.got, 1)
	assert.Len(t, ok.got, 1)
}

func TestEmitNilPublisher(t *testing.T) {
	assert.NotPanics(t, func() { Emit(context.Background(), nil, TrialRequested, TrialPayload{}) })
}

func TestEmailDispatcher(t *testing.T) {
	sender := email.NewLogSender(zerolog.Nop())
	d := NewEmailDispatcher(sender, email.Composer{School: "Lingo School"})
	ctx := context.Background()

	ev, err := New(TrialRequested, TrialPayload{RequestID: 1, Name: "Ann", Email: "ann@example.com", Language: "Korean"})
	require.NoError(t, err)
	require.NoError(t, d.Handle(ctx, ev))

	ev, err = New(ReservationCreated, ReservationPayload{StudentEmail: "bo@example.com", StudentName: "Bo", StartTime: time.Now(), DurationMinutes: 60})
	require.NoError(t, err)
	require.NoError(t, d.Handle(ctx, ev))

	// no recipient, nothing to send
	ev, err = New(PaymentRecorded, PaymentPayload{PaymentID: 1})
	require.NoError(t, err)
	require.NoError(t, d.Handle(ctx, ev))

	ev, err = New(PaymentRecorded, PaymentPayload{PaymentID: 2, StudentEmail: "bo@example.com", StudentName: "Bo", Amount: 150000, Currency: "KRW", LessonsPurchased: 8})
	require.NoError(t, err)
	require.NoError(t, d.Handle(ctx, ev))

	ev, err = New(PaymentRefunded, PaymentPayload{PaymentID: 2, StudentEmail: "bo@example.com", StudentName: "Bo", Amount: 150000, Currency: "KRW"})
	require.NoError(t, err)
	require.NoError(t, d.Handle(ctx, ev))

	sent := sender.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, "ann@example.com", sent[0].ToEmail)
	assert.Equal(t, "Lesson booked", sent[1].Subject)
	assert.Equal(t, "Payment receipt", sent[2].Subject)
	assert.Contains(t, sent[2].Text, "150000 KRW")
	assert.Equal(t, "Payment refunded", sent[3].Subject)

	bad := Event{ID: "x", Type: ContactReceived, Payload: json.RawMessage(`"not an object"`)}
	assert.ErrorIs(t, d.Handle(ctx, bad), ErrMalformedEvent)
}
