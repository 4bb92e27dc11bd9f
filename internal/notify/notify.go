// Package notify delivers email and SMS notifications on a best-effort
// basis. Failures are logged and swallowed: a notification problem must
// never fail the operation that triggered it.
package notify

import (
	"github.com/sirupsen/logrus"
)

// Mailer sends a plain-text email.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSSender sends a text message to a phone number.
type SMSSender interface {
	SendSMS(to, message string) error
}

// Service fans a message out to the configured external channels.
type Service struct {
	mailer Mailer
	sms    SMSSender
	log    *logrus.Logger
}

// NewService creates a notification service. Either channel may be nil when
// the corresponding provider is not configured.
func NewService(mailer Mailer, sms SMSSender, log *logrus.Logger) *Service {
	if log == nil {
		log = logrus.New()
	}
	return &Service{mailer: mailer, sms: sms, log: log}
}

// SendEmail dispatches an email. Returns whether delivery was attempted and
// succeeded; callers are free to ignore the result.
func (s *Service) SendEmail(to, subject, body string) bool {
	if s.mailer == nil {
		s.log.WithField("to", to).Debug("notify: email transport not configured, skipping")
		return false
	}
	if err := s.mailer.SendEmail(to, subject, body); err != nil {
		s.log.WithError(err).WithField("to", to).Error("notify: email delivery failed")
		return false
	}
	return true
}

// SendSMS dispatches a text message, best-effort.
func (s *Service) SendSMS(to, message string) bool {
	if s.sms == nil {
		s.log.WithField("to", to).Debug("notify: sms provider not configured, skipping")
		return false
	}
	if to == "" {
		return false
	}
	if err := s.sms.SendSMS(to, message); err != nil {
		s.log.WithError(err).WithField("to", to).Error("notify: sms delivery failed")
		return false
	}
	return true
}
