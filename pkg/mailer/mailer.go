package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/SaifAzz/kiosk/pkg/config"
	"github.com/SaifAzz/kiosk/pkg/logger"
)

// Message is a plain-text email ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers messages to members.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through a configured SMTP relay.
type SMTPSender struct {
	cfg  config.SMTPConfig
	logg *logger.Logger
}

// NewSMTPSender builds a sender from config. It fails fast when no relay host
// is configured so callers can fall back to the noop sender.
func NewSMTPSender(cfg config.SMTPConfig, logg *logger.Logger) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host is required")
	}
	return &SMTPSender{cfg: cfg, logg: logg}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("recipient is required")
	}

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	raw := buildMessage(s.cfg.From, msg)
	if err := smtp.SendMail(s.cfg.Addr(), auth, s.cfg.From, []string{msg.To}, raw); err != nil {
		return fmt.Errorf("sending mail to %s: %w", msg.To, err)
	}

	if s.logg != nil {
		fields := map[string]any{"to": msg.To, "subject": msg.Subject}
		s.logg.Info(s.logg.WithFields(ctx, fields), "email delivered")
	}
	return nil
}

func buildMessage(from string, msg Message) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

// NoopSender drops messages. Used in dev when no SMTP relay is configured.
type NoopSender struct {
	logg *logger.Logger
}

// NewNoopSender builds a sender that only logs.
func NewNoopSender(logg *logger.Logger) *NoopSender {
	return &NoopSender{logg: logg}
}

func (s *NoopSender) Send(ctx context.Context, msg Message) error {
	if s.logg != nil {
		fields := map[string]any{"to": msg.To, "subject": msg.Subject}
		s.logg.Info(s.logg.WithFields(ctx, fields), "email suppressed (no smtp relay configured)")
	}
	return nil
}
