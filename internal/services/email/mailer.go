// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/volunteerhub/internal/config"
	"github.com/wneessen/go-mail"
)

// Message is a plain-text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns an SMTP mailer, or a logging mailer when no SMTP host
// is configured.
func NewMailer(cfg *config.SMTPConfig) (Mailer, error) {
	if !cfg.Enabled() {
		slog.Warn("smtp_disabled", "hint", "emails are written to the log")
		return LogMailer{}, nil
	}
	return NewSMTPMailer(cfg)
}

// SMTPMailer sends messages through an SMTP server using go-mail.
type SMTPMailer struct {
	cfg *config.SMTPConfig
}

// NewSMTPMailer creates a mailer for cfg.
func NewSMTPMailer(cfg *config.SMTPConfig) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	mm, err := m.build(msg)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(m.cfg.Host, m.options()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, mm); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func (m *SMTPMailer) build(msg Message) (*mail.Msg, error) {
	mm := mail.NewMsg()

	if m.cfg.FromName != "" {
		if err := mm.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := mm.From(m.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := mm.To(msg.To); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	mm.Subject(msg.Subject)
	mm.SetBodyString(mail.TypeTextPlain, msg.Body)
	return mm, nil
}

func (m *SMTPMailer) options() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}

	// Implicit TLS on 465, STARTTLS elsewhere
	if m.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if m.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	return opts
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

// Send logs msg.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	slog.InfoContext(ctx, "email_logged", "to", msg.To, "subject", msg.Subject, "body", msg.Body)
	return nil
}
