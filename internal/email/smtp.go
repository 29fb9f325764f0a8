package email

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

const smtpsPort = 465

// SMTPClient отправка через SMTP сервер
type SMTPClient struct {
	client *mail.Client
	send   func(ctx context.Context, msg *mail.Msg) error
}

var _ Sender = (*SMTPClient)(nil)

// NewSMTPClient создает SMTP клиент. Порт 465 использует неявный TLS, остальные STARTTLS.
func NewSMTPClient(host string, port int, user, password string, timeout time.Duration) (*SMTPClient, error) {
	opts := []mail.Option{mail.WithPort(port)}
	if port == smtpsPort {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if timeout > 0 {
		opts = append(opts, mail.WithTimeout(timeout))
	}
	if user != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(user),
			mail.WithPassword(password),
		)
	}

	client, err := mail.NewClient(host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp client: %w", err)
	}

	c := &SMTPClient{client: client}
	c.send = func(ctx context.Context, msg *mail.Msg) error {
		return c.client.DialAndSendWithContext(ctx, msg)
	}
	return c, nil
}

// Send отправляет письмо
func (c *SMTPClient) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	m, err := buildMessage(msg)
	if err != nil {
		return err
	}
	if err := c.send(ctx, m); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	return nil
}

// buildMessage собирает письмо; тело кодируется quoted-printable
func buildMessage(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.FromFormat(msg.From.Name, msg.From.Email); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.ReplyTo != nil {
		if err := m.ReplyToFormat(msg.ReplyTo.Name, msg.ReplyTo.Email); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetMessageID()
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	return m, nil
}
