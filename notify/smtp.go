package notify

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"net/url"
	"strings"

	"github.com/authgate/authgate"
	"github.com/cenkalti/backoff/v5"
)

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	// Addr is host:port of the relay.
	Addr     string
	Username string
	Password string
	From     string
	// ResetURL is the page that receives the reset token as ?token=.
	ResetURL string
	// ProductName appears in subjects.
	ProductName string
}

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer sends welcome and reset-password emails through an SMTP relay.
type SMTPMailer struct {
	config   SMTPConfig
	auth     smtp.Auth
	sendMail sendMailFunc
}

// NewSMTPMailer validates cfg and returns a mailer. PLAIN auth is used when
// a username is set.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	if cfg.Addr == "" || cfg.From == "" {
		return nil, errors.New("smtp: addr and from are required")
	}
	if cfg.ProductName == "" {
		cfg.ProductName = "authgate"
	}
	m := &SMTPMailer{config: cfg, sendMail: smtp.SendMail}
	if cfg.Username != "" {
		host := cfg.Addr
		if i := strings.LastIndex(host, ":"); i >= 0 {
			host = host[:i]
		}
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	return m, nil
}

// Send implements Sender.
func (m *SMTPMailer) Send(ctx context.Context, n authgate.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	subject, body, err := m.render(n)
	if err != nil {
		return backoff.Permanent(err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", n.To)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	msg.WriteString(body)

	if err := m.sendMail(m.config.Addr, m.auth, m.config.From, []string{n.To}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send %s: %w", n.Kind, err)
	}
	return nil
}

func (m *SMTPMailer) render(n authgate.Notification) (string, string, error) {
	if n.To == "" || strings.ContainsAny(n.To, "\r\n") {
		return "", "", fmt.Errorf("smtp: invalid recipient")
	}
	switch n.Kind {
	case authgate.NotifyWelcomeEmail:
		return "Welcome to " + m.config.ProductName,
			"Your account has been created.\r\n", nil
	case authgate.NotifyResetPassword:
		if n.Token == "" {
			return "", "", errors.New("smtp: reset-password job without token")
		}
		link := m.config.ResetURL + "?token=" + url.QueryEscape(n.Token)
		return "Reset your " + m.config.ProductName + " password",
			"Use the link below to choose a new password. It expires in 15 minutes.\r\n\r\n" + link + "\r\n\r\n" +
				"If you did not request this, ignore this email.\r\n", nil
	default:
		return "", "", fmt.Errorf("smtp: unsupported kind %q", n.Kind)
	}
}
