package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/smtp"
	"strings"

	"identityd/internal/config"
)

// Sender delivers a single message. Implementations perform no retry
// logic of their own; retries belong to the queue processor.
type Sender interface {
	Send(ctx context.Context, to, from, subject, htmlBody, textBody string) error
}

// SMTPSender is a thin SMTP client supporting plain and implicit-TLS
// endpoints.
type SMTPSender struct {
	cfg config.EmailConfig
}

func NewSMTPSender(cfg config.EmailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, to, from, subject, htmlBody, textBody string) error {
	if !s.cfg.Enabled() {
		return fmt.Errorf("email is not configured")
	}

	body := htmlBody
	contentType := "text/html"
	if strings.TrimSpace(body) == "" {
		body = textBody
		contentType = "text/plain"
	}
	if from == "" {
		from = s.cfg.From
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", from))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", to))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: %s; charset=\"UTF-8\"\r\n\r\n", contentType))
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	if s.cfg.Secure {
		tlsCfg := &tls.Config{
			ServerName: s.cfg.Host,
		}
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return err
		}
		client, err := smtp.NewClient(conn, s.cfg.Host)
		if err != nil {
			return err
		}
		defer client.Quit()

		if s.cfg.Username != "" {
			auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
			if err := client.Auth(auth); err != nil {
				return err
			}
		}

		if err := client.Mail(from); err != nil {
			return err
		}
		if err := client.Rcpt(to); err != nil {
			return err
		}

		w, err := client.Data()
		if err != nil {
			return err
		}
		if _, err := w.Write([]byte(msg.String())); err != nil {
			return err
		}
		return w.Close()
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	return smtp.SendMail(addr, auth, from, []string{to}, []byte(msg.String()))
}
