package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/church-api/internal/config"
	"github.com/jwalitptl/church-api/pkg/logger"
)

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	dialer dialer
	from   string
	logger *logger.Logger
}

// NewSMTPService returns a sender backed by gomail. With no SMTP host
// configured every send is skipped.
func NewSMTPService(cfg config.EmailConfig, log *logger.Logger) Service {
	s := &smtpService{from: cfg.From, logger: log}
	if cfg.SMTPHost != "" {
		s.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	}
	return s
}

func (s *smtpService) Send(ctx context.Context, msg Message) (Result, error) {
	if s.dialer == nil {
		s.logger.Debug("email not configured, skipping", "to", msg.To, "subject", msg.Subject)
		return ResultSkipped, nil
	}
	if msg.To == "" {
		return "", fmt.Errorf("email recipient is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	if msg.Text != "" {
		m.SetBody("text/plain", msg.Text)
		if msg.HTML != "" {
			m.AddAlternative("text/html", msg.HTML)
		}
	} else {
		m.SetBody("text/html", msg.HTML)
	}

	if err := s.dialer.DialAndSend(m); err != nil {
		return "", fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}
	return ResultSent, nil
}
