package email

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// LogSender writes messages to the log instead of delivering them. It keeps
// the sent messages so development tooling and tests can inspect them.
type LogSender struct {
	logger zerolog.Logger

	mu   sync.Mutex
	sent []Message
}

// NewLogSender creates a log-only sender
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	s.logger.Info().
		Str("to", msg.ToEmail).
		Str("subject", msg.Subject).
		Msg("Email not delivered (log provider)")

	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()
	return nil
}

// Sent returns a copy of the messages handled so far
func (s *LogSender) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.sent))
	copy(out, s.sent)
	return out
}
