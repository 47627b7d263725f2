package impl

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"expense-auth/internal/observability/middleware"
	"expense-auth/internal/service"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPEmailService delivers invitation mail over plain SMTP with optional
// PLAIN auth.
type SMTPEmailService struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPEmailService(cfg SMTPConfig) *SMTPEmailService {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPEmailService{cfg: cfg, send: smtp.SendMail}
}

func (s *SMTPEmailService) SendInvitation(ctx context.Context, inv service.Invitation) error {
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	msg := invitationMessage(s.cfg.From, inv)
	if err := s.send(addr, auth, s.cfg.From, []string{inv.To}, msg); err != nil {
		slog.Error("invitation email failed",
			"to", inv.To,
			"error", err,
			"request_id", middleware.RequestIDFromContext(ctx),
		)
		return err
	}
	slog.Info("invitation email sent", "to", inv.To, "request_id", middleware.RequestIDFromContext(ctx))
	return nil
}

// LogEmailService only logs; used when SMTP is not configured.
type LogEmailService struct{}

func (LogEmailService) SendInvitation(ctx context.Context, inv service.Invitation) error {
	slog.Info("invitation email (log only)",
		"to", inv.To,
		"role", inv.Role,
		"resent", inv.Resent,
		"expires_at", inv.ExpiresAt,
		"request_id", middleware.RequestIDFromContext(ctx),
	)
	return nil
}

func invitationMessage(from string, inv service.Invitation) []byte {
	name := inv.Name
	if name == "" {
		name = inv.To
	}
	subject := "You're invited to Expense Tracker"
	if inv.Role == "admin" {
		subject = "You're invited to administer Expense Tracker"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", inv.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Hello %s,\r\n\r\n", name)
	fmt.Fprintf(&b, "You have been invited as %s. Set your password here:\r\n%s\r\n\r\n", inv.Role, inv.Link)
	fmt.Fprintf(&b, "This link expires on %s.\r\n", inv.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
	return []byte(b.String())
}
