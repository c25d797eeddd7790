package ticket

import (
	"context"
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers HTML email over plain SMTP.  Credentials come
// from configuration; the From address is used both as the envelope
// sender and the From header.
type SMTPMailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// Send implements Mailer.  The message is a single-part HTML body
// with the minimal headers mail clients need to render it.
func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := m.Host + ":" + m.Port
	var auth smtp.Auth
	if m.Username != "" {
		auth = smtp.PlainAuth("", m.Username, m.Password, m.Host)
	}
	return smtp.SendMail(addr, auth, m.From, []string{to}, []byte(msg.String()))
}

// LogMailer is the fallback used when no SMTP host is configured.
// It records the delivery in the process log instead of sending, so
// local development does not need a mail server.
type LogMailer struct{}

// Send implements Mailer by logging the would-be delivery.
func (LogMailer) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("mailer: delivery skipped (no SMTP configured) to=%s subject=%q", to, subject)
	return nil
}
