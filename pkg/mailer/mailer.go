// Package mailer sends transactional email over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/sociuslabs/socius/backend/pkg/apperrors"
	"github.com/sociuslabs/socius/backend/pkg/config"
)

// Mailer delivers plain-text email to a single recipient.
type Mailer interface {
	Send(to, subject, body string) error
}

// SMTPMailer implements Mailer against a standard SMTP relay.
type SMTPMailer struct {
	host     string
	port     string
	username string
	password string
	fromName string
	fromAddr string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPEmail,
		password: cfg.SMTPPassword,
		fromName: cfg.FromName,
		fromAddr: cfg.FromEmail,
	}
}

func (m *SMTPMailer) Send(to, subject, body string) error {
	if m.host == "" {
		return apperrors.Delivery("mail transport is not configured", nil)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.fromName, m.fromAddr, to, subject, body,
	))

	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	addr := m.host + ":" + m.port
	if err := smtp.SendMail(addr, auth, m.fromAddr, []string{to}, msg); err != nil {
		return apperrors.Delivery("email could not be sent", err)
	}
	return nil
}
