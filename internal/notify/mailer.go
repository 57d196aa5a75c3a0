// Package notify delivers abuse alert and digest emails to the admin
// distribution list over SMTP.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"go.uber.org/zap"
)

const (
	mailMaxElapsedTime  = 20 * time.Second
	mailInitialInterval = 500 * time.Millisecond
	mailMaxRetries      = 3
)

// SMTPMailer sends HTML mail through a configured SMTP relay with bounded
// retries. Delivery is best-effort; callers decide whether failures matter.
type SMTPMailer struct {
	cfg    *config.SMTP
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *zap.Logger
}

// NewSMTPMailer creates a new SMTP mailer.
func NewSMTPMailer(cfg *config.SMTP, logger *zap.Logger) *SMTPMailer {
	return &SMTPMailer{
		cfg:    cfg,
		send:   smtp.SendMail,
		logger: logger.Named("mailer"),
	}
}

// Send delivers one HTML message to one recipient, retrying transient
// failures with exponential backoff.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	msg := strings.Join([]string{
		"From: " + m.cfg.From,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		htmlBody,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(mailMaxElapsedTime),
		backoff.WithInitialInterval(mailInitialInterval),
	), mailMaxRetries)

	err := backoff.Retry(func() error {
		return m.send(addr, auth, m.cfg.From, []string{to}, []byte(msg))
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	m.logger.Debug("Mail sent", zap.String("to", to), zap.String("subject", subject))

	return nil
}
