package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/carebridge/notification-engine/internal/domain"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPProvider delivers email over SMTP. It backs the email channel when
// no HTTP email API key is configured.
type SMTPProvider struct {
	dialer *gomail.Dialer
	cfg    SMTPConfig
}

func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	return &SMTPProvider{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		cfg:    cfg,
	}
}

func (p *SMTPProvider) Channel() domain.Channel { return domain.ChannelEmail }

func (p *SMTPProvider) IsConfigured() bool {
	return p != nil && strings.TrimSpace(p.cfg.Host) != "" && strings.TrimSpace(p.cfg.From) != ""
}

func (p *SMTPProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if p == nil || p.dialer == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &ProviderError{Message: "recipient address is required"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	subject := ""
	if msg.Subject != nil {
		subject = *msg.Subject
	}

	m := gomail.NewMessage()
	m.SetHeader("From", p.cfg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", wrapEmailBody(subject, msg.Body))

	// gomail has no context support, so the dial and exchange run in a
	// goroutine and the attempt is abandoned when the context expires. The
	// in-flight connection is not interruptible; it is left to finish or
	// fail on its own.
	done := make(chan error, 1)
	go func() {
		done <- p.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return nil, &ProviderError{
			Message:   "smtp send abandoned",
			Transient: true,
			Cause:     ctx.Err(),
		}
	case err := <-done:
		if err != nil {
			return nil, &ProviderError{
				Message:   "smtp send failed",
				Transient: true,
				Cause:     err,
			}
		}
	}

	return &SendResult{}, nil
}
