// Package mailer picks the notification transport for the configured MAILER.
package mailer

import (
	"context"
	"fmt"

	"vpass/src/config"
	"vpass/src/lib"
	awslib "vpass/src/lib/aws"
	"vpass/src/notify"

	log "github.com/sirupsen/logrus"
)

const (
	MailerLog  = "log"
	MailerSMTP = "smtp"
	MailerSES  = "ses"
)

func New(ctx context.Context, cfg *config.Config) (notify.Transport, error) {
	switch cfg.Mailer {
	case "", MailerLog:
		log.Println("[mailer] using log transport, no mail will leave this process")
		return notify.LogTransport{}, nil
	case MailerSMTP:
		t, err := lib.NewSMTPTransport(cfg.SMTP, cfg.SendTimeout)
		if err != nil {
			return nil, err
		}
		return t, nil
	case MailerSES:
		awsCfg, err := awslib.LoadConfig(ctx, cfg.AWSRoleArn)
		if err != nil {
			return nil, err
		}
		return awslib.NewSESTransport(awsCfg, cfg.SMTP.From), nil
	default:
		return nil, fmt.Errorf("unknown mailer %q", cfg.Mailer)
	}
}
