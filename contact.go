package main

import (
	"errors"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// ContactMessage is a validated contact form submission.
type ContactMessage struct {
	Name    string `form:"fullName" binding:"required,max=200"`
	Email   string `form:"email" binding:"required,email,max=320"`
	Message string `form:"message" binding:"required,max=5000"`
}

// Mailer delivers contact messages.
type Mailer interface {
	Send(msg ContactMessage) error
}

var errSMTPNotConfigured = errors.New("SMTP credentials not configured")

type smtpMailer struct {
	cfg SMTPConfig
}

func newSMTPMailer(cfg SMTPConfig, owner string) *smtpMailer {
	if cfg.To == "" {
		cfg.To = owner
	}
	return &smtpMailer{cfg: cfg}
}

func (m *smtpMailer) Send(msg ContactMessage) error {
	if m.cfg.User == "" || m.cfg.Pass == "" {
		return errSMTPNotConfigured
	}

	auth := smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	err := smtp.SendMail(m.cfg.Host+":"+m.cfg.Port, auth, m.cfg.User, []string{m.cfg.To}, composeContactEmail(msg, m.cfg.User, m.cfg.To))
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	log.Printf("Contact email sent from %s (%s)", msg.Name, msg.Email)
	return nil
}

// headerSafe drops CR and LF so submitted values cannot add headers.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(s)
}

func composeContactEmail(msg ContactMessage, from, to string) []byte {
	body := fmt.Sprintf(`New contact form submission from your portfolio:

Name: %s
Email: %s
Message:
%s

---
Sent from your portfolio contact form
`, msg.Name, msg.Email, msg.Message)

	return []byte("To: " + to + "\r\n" +
		"Subject: Portfolio Contact: " + headerSafe(msg.Name) + "\r\n" +
		"From: " + from + "\r\n" +
		"Reply-To: " + headerSafe(msg.Email) + "\r\n" +
		"\r\n" +
		body + "\r\n")
}
