package mailer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

var ErrNoRecipient = errors.New("mailer: no recipient")

type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
	log    *zap.Logger
}

func NewSMTPSender(host string, port int, username, password, from string, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		dialer: gomail.NewDialer(host, port, username, password),
		from:   from,
		log:    log.Named("mailer"),
	}
}

// Send dials per message. The dial itself has no deadline, so ctx bounds how
// long the caller waits for it.
func (s *SMTPSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	if to == "" {
		return ErrNoRecipient
	}
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", htmlBody)

	done := make(chan error, 1)
	go func() {
		done <- s.dialer.DialAndSend(m)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("send email: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email: %w", err)
		}
	}
	s.log.Debug("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// NoopSender is used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) Send(context.Context, string, string, string) error {
	return nil
}

// Mailer renders a template and hands it to a Sender.
type Mailer struct {
	sender Sender
}

func New(sender Sender) *Mailer {
	if sender == nil {
		sender = NoopSender{}
	}
	return &Mailer{sender: sender}
}

func (m *Mailer) SendTemplate(ctx context.Context, to string, t Template, p Params) error {
	if to == "" {
		return ErrNoRecipient
	}
	subject, body, err := Render(t, p)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, to, subject, body)
}
