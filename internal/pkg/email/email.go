package email

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Providers
const (
	ProviderSMTP     = "smtp"
	ProviderSendGrid = "sendgrid"
	ProviderLog      = "log"
)

// Message is one outgoing email
type Message struct {
	ToEmail string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers email messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures the email provider
type Config struct {
	Provider       string
	SMTP           SMTPConfig
	SendGridAPIKey string
	FromName       string
	FromEmail      string
	SubjectPrefix  string
}

// NewSender builds the configured provider. SMTP without credentials and
// SendGrid without a key fall back to logging the message.
func NewSender(cfg Config, logger zerolog.Logger) Sender {
	switch strings.ToLower(cfg.Provider) {
	case ProviderSMTP:
		if cfg.SMTP.Username == "" || cfg.SMTP.Password == "" {
			logger.Warn().Msg("SMTP credentials not configured, emails will only be logged")
			return NewLogSender(logger)
		}
		cfg.SMTP.FromName = cfg.FromName
		cfg.SMTP.FromEmail = cfg.FromEmail
		return NewSMTPSender(cfg.SMTP, cfg.SubjectPrefix, logger)
	case ProviderSendGrid:
		if cfg.SendGridAPIKey == "" {
			logger.Warn().Msg("SendGrid API key not configured, emails will only be logged")
			return NewLogSender(logger)
		}
		return NewSendGridSender(cfg.SendGridAPIKey, cfg.FromName, cfg.FromEmail, cfg.SubjectPrefix, logger)
	default:
		return NewLogSender(logger)
	}
}

func validate(msg Message) error {
	if msg.ToEmail == "" {
		return fmt.Errorf("email has no recipient")
	}
	if msg.HTML == "" && msg.Text == "" {
		return fmt.Errorf("email to %s has no content", msg.ToEmail)
	}
	return nil
}
