package notify

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"

	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testMailer(send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error) *SMTPMailer {
	mailer := NewSMTPMailer(&config.SMTP{
		Host: "smtp.example.com",
		Port: 587,
		User: "voteguard",
		From: "noreply@promptcraft.dev",
	}, zap.NewNop())
	mailer.send = send

	return mailer
}

func TestSendBuildsHTMLMessage(t *testing.T) {
	t.Parallel()

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
	)

	mailer := testMailer(func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)

		return nil
	})

	err := mailer.Send(context.Background(), "admin@promptcraft.dev", "test subject", "<p>hello</p>")
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"admin@promptcraft.dev"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: test subject")
	assert.Contains(t, gotMsg, "Content-Type: text/html")
	assert.True(t, strings.HasSuffix(gotMsg, "<p>hello</p>"))
}

func TestSendRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	mailer := testMailer(func(string, smtp.Auth, string, []string, []byte) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset by peer")
		}

		return nil
	})

	err := mailer.Send(context.Background(), "admin@promptcraft.dev", "s", "b")
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestSendGivesUpAfterMaxRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	mailer := testMailer(func(string, smtp.Auth, string, []string, []byte) error {
		attempts++
		return errors.New("relay unavailable")
	})

	err := mailer.Send(context.Background(), "admin@promptcraft.dev", "s", "b")
	require.Error(t, err)
	assert.Equal(t, 4, attempts) // initial attempt plus three retries
}
