package events

import (
	"context"

	"github.com/yigit/lingoschool/internal/pkg/email"
	"github.com/yigit/lingoschool/internal/pkg/logger"
)

// EmailDispatcher turns events into emails. It runs inside the notifier
// worker, or inside the API process when no broker is configured.
type EmailDispatcher struct {
	sender   email.Sender
	composer email.Composer
}

// NewEmailDispatcher creates a dispatcher
func NewEmailDispatcher(sender email.Sender, composer email.Composer) *EmailDispatcher {
	return &EmailDispatcher{sender: sender, composer: composer}
}

// Publish implements Publisher by handling the event immediately
func (d *EmailDispatcher) Publish(ctx context.Context, ev Event) error {
	return d.Handle(ctx, ev)
}

// Handle sends the email belonging to ev. Event types without an email are
// ignored. Undecodable payloads return ErrMalformedEvent.
func (d *EmailDispatcher) Handle(ctx context.Context, ev Event) error {
	var (
		msg email.Message
		err error
	)

	switch ev.Type {
	case StudentRegistered:
		p, perr := PayloadAs[StudentRegisteredPayload](ev)
		if perr != nil {
			return perr
		}
		if p.Email == "" {
			return nil
		}
		msg, err = d.composer.Welcome(p.Email, p.Name, p.StudentNumber)

	case ReservationCreated, ReservationCancelled:
		p, perr := PayloadAs[ReservationPayload](ev)
		if perr != nil {
			return perr
		}
		if p.StudentEmail == "" {
			return nil
		}
		if ev.Type == ReservationCreated {
			msg, err = d.composer.LessonBooked(p.StudentEmail, p.StudentName, p.StartTime, p.DurationMinutes)
		} else {
			msg, err = d.composer.LessonCancelled(p.StudentEmail, p.StudentName, p.StartTime)
		}

	case PaymentRecorded, PaymentRefunded:
		p, perr := PayloadAs[PaymentPayload](ev)
		if perr != nil {
			return perr
		}
		if p.StudentEmail == "" {
			return nil
		}
		if ev.Type == PaymentRecorded {
			msg, err = d.composer.PaymentReceipt(p.StudentEmail, p.StudentName, p.Amount, p.Currency, p.LessonsPurchased)
		} else {
			msg, err = d.composer.PaymentRefunded(p.StudentEmail, p.StudentName, p.Amount, p.Currency)
		}

	case ContactReceived:
		p, perr := PayloadAs[ContactPayload](ev)
		if perr != nil {
			return perr
		}
		msg, err = d.composer.ContactReceived(p.Email, p.Name)

	case TrialRequested:
		p, perr := PayloadAs[TrialPayload](ev)
		if perr != nil {
			return perr
		}
		msg, err = d.composer.TrialRequested(p.Email, p.Name, p.Language)

	default:
		logger.FromContext(ctx).Debug().Str("eventType", ev.Type).Msg("No email for event")
		return nil
	}

	if err != nil {
		return err
	}
	return d.sender.Send(ctx, msg)
}
