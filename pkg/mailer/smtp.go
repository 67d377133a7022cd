// Package mailer sends plain-text email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Config holds the SMTP server and sender.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers messages through one SMTP server, upgrading to TLS
// when the server offers STARTTLS.
type SMTPMailer struct {
	addr    string
	auth    smtp.Auth
	from    string
	send    sendFunc
	backoff retry.Backoff
	now     func() time.Time
}

// New creates an SMTPMailer. Authentication is skipped when no username is set.
func New(cfg Config) *SMTPMailer {
	m := &SMTPMailer{
		addr:    net.JoinHostPort(cfg.Host, cfg.Port),
		from:    cfg.From,
		send:    smtp.SendMail,
		backoff: retry.WithMaxRetries(2, retry.NewExponential(time.Second)),
		now:     time.Now,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

// Send delivers a plain-text message to one recipient, retrying transient failures.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	msg := m.compose(to, subject, body)
	return retry.Do(ctx, m.backoff, func(ctx context.Context) error {
		if err := m.send(m.addr, m.auth, m.from, []string{to}, msg); err != nil {
			if isPermanent(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (m *SMTPMailer) compose(to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", sanitizeHeader(subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

// isPermanent reports SMTP 5xx replies.
func isPermanent(err error) bool {
	var reply *textproto.Error
	return errors.As(err, &reply) && reply.Code >= 500
}
