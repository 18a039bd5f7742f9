// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email sends password reset and magic link mails over SMTP.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gwozai/DailyNotes/internal/config"
	"github.com/gwozai/DailyNotes/internal/i18n"
	"github.com/wneessen/go-mail"
)

// Service is the notifier for outbound auth emails. It is constructed
// once at startup and never mutated afterwards. When SMTP is not fully
// configured, all send operations are no-ops that report failure.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
	enabled bool
}

// NewService creates a new email service. The service is enabled only if
// SMTP host, user and password are all configured.
func NewService(cfg *config.SMTPConfig, baseURL string) *Service {
	s := &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		enabled: cfg.Enabled(),
	}

	if s.enabled {
		slog.Info("email service configured",
			"host", cfg.Host,
			"port", cfg.Port,
			"from", cfg.From(),
			"tls", cfg.UseTLS,
		)
	} else {
		slog.Warn("email service not configured; set SMTP_HOST, SMTP_USER and SMTP_PASSWORD to enable email features")
	}

	return s
}

// Enabled reports whether the service can send email.
func (s *Service) Enabled() bool {
	return s.enabled
}

// Send delivers a multipart message with a mandatory HTML part and an
// optional plain text part. Transport failures are logged and reported as
// false, never raised to the caller.
func (s *Service) Send(ctx context.Context, to, subject, htmlBody, textBody string) bool {
	if !s.enabled {
		slog.Warn("email service not configured, skipping email send")
		return false
	}

	msg, err := s.compose(to, subject, htmlBody, textBody)
	if err != nil {
		slog.Error("failed to compose email", "to", to, "error", err)
		return false
	}

	client, err := s.newClient()
	if err != nil {
		slog.Error("failed to create mail client", "error", err)
		return false
	}

	slog.Info("sending email", "to", to, "subject", subject)

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		slog.Error("failed to send email", "to", to, "error", err)
		return false
	}

	return true
}

// SendPasswordReset sends a password reset email for the given raw token.
func (s *Service) SendPasswordReset(ctx context.Context, to, token string) bool {
	resetURL := fmt.Sprintf("%s/auth/reset-password?token=%s", s.baseURL, token)

	htmlBody, textBody, err := renderPasswordReset(resetURL)
	if err != nil {
		slog.Error("failed to render password reset email", "error", err)
		return false
	}

	return s.Send(ctx, to, i18n.T(ctx, "password_reset_subject"), htmlBody, textBody)
}

// SendMagicLink sends a magic link login email for the given raw token.
func (s *Service) SendMagicLink(ctx context.Context, to, token string) bool {
	loginURL := fmt.Sprintf("%s/auth/verify-magic-link?token=%s", s.baseURL, token)

	htmlBody, textBody, err := renderMagicLink(loginURL)
	if err != nil {
		slog.Error("failed to render magic link email", "error", err)
		return false
	}

	return s.Send(ctx, to, i18n.T(ctx, "magic_link_subject"), htmlBody, textBody)
}

func (s *Service) compose(to, subject, htmlBody, textBody string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From()); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From()); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)

	// Plain text part first so the HTML alternative is preferred
	if textBody != "" {
		msg.SetBodyString(mail.TypeTextPlain, textBody)
		msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	} else {
		msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	}

	return msg, nil
}

func (s *Service) newClient() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	if s.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	opts = append(opts,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.User),
		mail.WithPassword(s.cfg.Password),
	)

	return mail.NewClient(s.cfg.Host, opts...)
}
