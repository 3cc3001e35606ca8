// Package mailer provides outbound email delivery for OTP codes.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/velano/storefront/internal/domain/otp"
)

// Config holds SMTP connection settings. An empty Host selects the
// log-only dispatcher.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

var _ otp.Dispatcher = (*SMTP)(nil)

// SMTP delivers email over an authenticated SMTP connection.
type SMTP struct {
	cfg Config
}

// NewSMTP creates an SMTP dispatcher with the given settings.
func NewSMTP(cfg Config) *SMTP {
	return &SMTP{cfg: cfg}
}

// Send delivers one HTML email. Errors are transient from the caller's
// perspective; the OTP service does not retry them.
func (m *SMTP) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg.String())); err != nil {
		return errors.Wrap(err, "smtp send")
	}
	return nil
}

var _ otp.Dispatcher = (*Log)(nil)

// Log is a dispatcher that only logs, for development and tests.
type Log struct {
	lg *zap.Logger
}

// NewLog creates a log-only dispatcher.
func NewLog(lg *zap.Logger) *Log {
	return &Log{lg: lg}
}

// Send logs the email instead of delivering it.
func (m *Log) Send(_ context.Context, to, subject, _ string) error {
	m.lg.Info("email suppressed (log-only mailer)",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
