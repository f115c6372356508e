// Package mailgun delivers transactional mail through the Mailgun API.
package mailgun

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mg "github.com/mailgun/mailgun-go/v4"

	"github.com/RHeactorJS/rheactor-server/core/account"
)

const sendTimeout = 10 * time.Second

type Config struct {
	Domain string
	APIKey string
	Sender string       // Sender is the From address, e.g. "RHeactor <noreply@example.com>"
	Log    *slog.Logger // Log for diagnostics (optional)
}

// Mailer implements account.Mailer on Mailgun.
type Mailer struct {
	log    *slog.Logger
	client *mg.MailgunImpl
	sender string
}

func New(cfg Config) *Mailer {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Mailer{
		log:    log.With(slog.String("mailer", "mailgun"), slog.String("domain", cfg.Domain)),
		client: mg.NewMailgun(cfg.Domain, cfg.APIKey),
		sender: cfg.Sender,
	}
}

func (m *Mailer) Send(ctx context.Context, to, subject, text string) error {
	msg := m.client.NewMessage(m.sender, subject, text, to)

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, id, err := m.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}

	m.log.Debug("mail sent", slog.String("to", to), slog.String("message_id", id))
	return nil
}

var _ account.Mailer = (*Mailer)(nil)
