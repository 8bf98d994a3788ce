package notify

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Transport delivers one mail. Implementations should honour ctx.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogTransport only logs. Used when MAILER=log.
type LogTransport struct{}

func (LogTransport) Send(_ context.Context, to, subject, body string) error {
	log.WithFields(log.Fields{"to": to, "bytes": len(body)}).Infof("[Mailer] %s", subject)
	return nil
}

// Deduper remembers which (event, role, recipient) requests were already
// delivered so a redelivered event does not repeat a mail. role keeps two
// different mails of one event to the same address apart.
type Deduper interface {
	Claim(ctx context.Context, eventID, role, recipient string) (bool, error)
	Release(ctx context.Context, eventID, role, recipient string) error
}
