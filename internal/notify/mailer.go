package notify

import (
	"gopkg.in/gomail.v2"

	"hospital-booking-server/internal/config"
)

// SMTPMailer sends email through the configured SMTP transport.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer from the SMTP configuration. Callers
// should check cfg.Enabled() first and leave the channel nil when no
// transport is configured.
func NewSMTPMailer(cfg config.MailerConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.DefaultFrom,
	}
}

// SendEmail sends a plain-text email.
func (m *SMTPMailer) SendEmail(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return m.dialer.DialAndSend(msg)
}
