package notify

import (
	"bidbot/utils"
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// LogSender writes messages to the application log instead of delivering them
type LogSender struct{}

// Send logs the message without its body, which may carry a password
func (LogSender) Send(_ context.Context, msg Message) error {
	utils.Info("Notification", map[string]any{
		"kind":    msg.Kind,
		"to":      msg.To,
		"subject": msg.Subject,
	})
	return nil
}

// SMTPConfig addresses the outgoing mail relay
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSender delivers messages through an SMTP relay
type SMTPSender struct {
	addr string
	from string
	auth smtp.Auth
	// sendMail is swapped in tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender for cfg. Authentication is used only when a
// username is configured.
func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	s := &SMTPSender{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		from:     cfg.From,
		sendMail: smtp.SendMail,
	}
	if cfg.Username != "" {
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return s
}

// Send delivers msg. The context is checked before dialing; net/smtp has no
// context support of its own.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.To == "" || strings.ContainsAny(msg.To, "\r\n") {
		return fmt.Errorf("smtp: invalid recipient %q", msg.To)
	}

	if err := s.sendMail(s.addr, s.auth, s.from, []string{msg.To}, formatMessage(s.from, msg)); err != nil {
		return fmt.Errorf("smtp: send to %s: %w", msg.To, err)
	}
	return nil
}

func formatMessage(from string, msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + strings.NewReplacer("\r", "", "\n", " ").Replace(msg.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return []byte(b.String())
}
