package lib

import (
	"context"
	"time"

	"vpass/src/config"

	log "github.com/sirupsen/logrus"
	"github.com/wneessen/go-mail"
)

type SMTPTransport struct {
	client   *mail.Client
	from     string
	fromName string
}

func NewSMTPTransport(cfg config.SMTPConfig, timeout time.Duration) (*SMTPTransport, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(timeout),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		log.Printf("Could not initialize smtp client: %s", err.Error())
		return nil, err
	}
	return &SMTPTransport{client: c, from: cfg.From, fromName: cfg.FromName}, nil
}

func (s *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return s.client.DialAndSendWithContext(ctx, msg)
}
