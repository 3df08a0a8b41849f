package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/gomail.v2"
)

type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	From     string
}

func (c EmailConfig) Configured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.From != ""
}

// EmailNotifier sends messages over SMTP.
type EmailNotifier struct {
	cfg    EmailConfig
	logger *slog.Logger
}

func NewEmailNotifier(cfg EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{cfg: cfg, logger: logger}
}

func (n *EmailNotifier) Send(ctx context.Context, msg Message) error {
	if !n.cfg.Configured() {
		n.logger.Warn("email config missing, skip notification", slog.String("subject", msg.Subject))
		return nil
	}
	if strings.TrimSpace(msg.To) == "" {
		n.logger.Warn("email recipient empty, skip notification", slog.String("subject", msg.Subject))
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	n.logger.Info("email sent", slog.String("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}
