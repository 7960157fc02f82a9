package email

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Sender provides a testable abstraction over SES delivery.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// LogSender logs instead of sending. Used in development and when email is
// disabled in config.
type LogSender struct{}

func (LogSender) Send(_ context.Context, recipient, subject, _ string) error {
	log.Info().
		Str("recipient", recipient).
		Str("subject", subject).
		Msg("Email delivery disabled, logging instead")
	return nil
}
