// Package mail sends notification emails over SMTP. Email is strictly
// best-effort: a misconfigured or unreachable relay degrades to a logged
// skip and never surfaces to the caller's request path.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"time"

	"github.com/pscheid92/taskhub/internal/metrics"
	"github.com/pscheid92/taskhub/internal/platform/retry"
)

type Mailer struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func New(host string, port int, username, password, from string) *Mailer {
	m := &Mailer{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
	if !m.configured() {
		slog.Warn("SMTP credentials not configured, notification emails will be skipped")
	}
	return m
}

func (m *Mailer) configured() bool {
	return m.host != "" && m.username != "" && m.password != ""
}

// Send delivers a single HTML email. Without SMTP credentials the send is
// skipped and reported as such, not failed.
func (m *Mailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if !m.configured() {
		slog.Warn("Skipping notification email, SMTP not configured", "to", to, "subject", subject)
		metrics.EmailsSent.WithLabelValues("skipped").Inc()
		return nil
	}

	msg := buildMessage(m.from, to, subject, htmlBody)
	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.username, m.password, m.host)

	policy := retry.Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Email send failed, retrying",
				"to", to, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	err := retry.DoVoid(ctx, policy, alwaysTransient, func() error {
		return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
	})
	if err != nil {
		metrics.EmailsSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.EmailsSent.WithLabelValues("sent").Inc()
	slog.Info("Notification email sent", "to", to, "subject", subject)
	return nil
}

// alwaysTransient treats every SMTP failure as retryable; the attempt cap
// bounds the damage.
func alwaysTransient(error) retry.Action { return retry.Retry }

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
