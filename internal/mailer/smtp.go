package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	mail "github.com/wneessen/go-mail"

	"github.com/mmeshcher/e5watcher/internal/model"
)

// SMTPConfig задаёт параметры SMTP-доставки.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// SMTPMailer доставляет письма по SMTP с повтором при временных ошибках.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer создаёт SMTP-отправитель с указанными параметрами.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

// Send доставляет письмо получателю. Ошибка одного получателя не влияет
// на остальных: вызывающая сторона продолжает обход списка.
func (m *SMTPMailer) Send(ctx context.Context, rcpt model.Recipient, msg Message) error {
	message := mail.NewMsg()
	if err := message.From(m.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := message.To(rcpt.DeliveryEmail); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	message.Subject(msg.Subject)
	message.SetBodyString(mail.TypeTextPlain, msg.Body)

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(time.Second))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.DialAndSendWithContext(ctx, message); err != nil {
			return retry.RetryableError(fmt.Errorf("send mail to %s: %w", rcpt.DeliveryEmail, err))
		}
		return nil
	})
}
