package account

import (
	"context"
	"log/slog"
)

// Mailer delivers transactional mail (activation links, password change
// confirmations). The service treats delivery as best-effort: a failed send
// is logged, never turned into a failed command.
type Mailer interface {
	Send(ctx context.Context, to, subject, text string) error
}

// LogMailer writes mail to the log instead of sending it. Default for
// dev/test environments.
type LogMailer struct {
	Log *slog.Logger
}

func (m LogMailer) Send(_ context.Context, to, subject, text string) error {
	m.Log.Info("mail",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.String("text", text),
	)
	return nil
}

var _ Mailer = LogMailer{}
