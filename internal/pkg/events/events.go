// Package events carries domain notifications from the API to the staff
// dashboard, the message broker and the email notifier.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// Event types double as routing keys
const (
	StudentRegistered    = "student.registered"
	ReservationCreated   = "reservation.created"
	ReservationCancelled = "reservation.cancelled"
	PaymentRecorded      = "payment.recorded"
	PaymentRefunded      = "payment.refunded"
	AgreementSigned      = "agreement.signed"
	ContactReceived      = "contact.received"
	TrialRequested       = "trial.requested"
)

// ErrMalformedEvent marks events whose payload cannot be decoded
var ErrMalformedEvent = errors.New("malformed event")

// Event is the envelope published for every domain change
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// New wraps payload in an envelope with a fresh ID
func New(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Decode parses a broker message body into an Event
func Decode(body []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	return ev, nil
}

// PayloadAs decodes the event payload into T
func PayloadAs[T any](ev Event) (T, error) {
	var t T
	if err := json.Unmarshal(ev.Payload, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("%w: %s payload: %v", ErrMalformedEvent, ev.Type, err)
	}
	return t, nil
}

// Publisher delivers events to one destination
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// MultiPublisher fans an event out to every publisher. Failures are logged
// and never returned; a broken broker must not fail the request that caused
// the event.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher skips nil publishers
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish implements Publisher
func (m *MultiPublisher) Publish(ctx context.Context, ev Event) error {
	for _, p := range m.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			logger.FromContext(ctx).Error().Err(err).
				Str("eventId", ev.ID).
				Str("eventType", ev.Type).
				Msgf("Failed to publish event via %T", p)
		}
	}
	return nil
}

// Emit builds and publishes an event, logging instead of failing
func Emit(ctx context.Context, p Publisher, eventType string, payload interface{}) {
	if p == nil {
		return
	}
	ev, err := New(eventType, payload)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("eventType", eventType).Msg("Failed to build event")
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		logger.FromContext(ctx).Error().Err(err).Str("eventType", eventType).Msg("Failed to publish event")
	}
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) error { return nil }
