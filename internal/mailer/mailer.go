// Package mailer delivers transactional mail. SMTP is the only transport;
// when no SMTP host is configured the gateway falls back to logging the
// reset link so local setups stay usable.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// Config carries SMTP settings. An empty Host disables delivery.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c Config) enabled() bool { return c.Host != "" }

type SMTP struct {
	cfg    Config
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	logger *slog.Logger
}

func NewSMTP(cfg Config, logger *slog.Logger) *SMTP {
	return &SMTP{cfg: cfg, send: smtp.SendMail, logger: logger}
}

// SendPasswordReset mails the reset link to the given address. Returns an
// error when SMTP is unconfigured so callers can decide how loudly to fail.
func (m *SMTP) SendPasswordReset(ctx context.Context, to, resetLink string) error {
	if !m.cfg.enabled() {
		return fmt.Errorf("smtp not configured")
	}

	msg := buildMessage(m.cfg.From, to, "Password Reset Request", passwordResetBody(resetLink))
	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	if err := m.send(addr, auth, m.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("send password reset mail: %w", err)
	}
	m.logger.InfoContext(ctx, "password reset mail sent", "to", to)
	return nil
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

func passwordResetBody(resetLink string) string {
	return fmt.Sprintf(`<p>You requested a password reset.</p>
<p><a href=%q>Reset your password</a></p>
<p>This link expires in 1 hour. If you did not request a reset, you can ignore this email.</p>`, resetLink)
}
