// Package notify turns lifecycle events into mails and records every
// attempt in the audit log.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpass/src/events"
	"vpass/src/models"
	"vpass/src/store"
	"vpass/src/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultSendTimeout = 10 * time.Second

type Dispatcher struct {
	audit       store.AuditLog
	transport   Transport
	deduper     Deduper
	sendTimeout time.Duration
	now         func() time.Time
	tracer      trace.Tracer
}

type Option func(*Dispatcher)

func WithDeduper(d Deduper) Option {
	return func(disp *Dispatcher) { disp.deduper = d }
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(disp *Dispatcher) {
		if timeout > 0 {
			disp.sendTimeout = timeout
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) { disp.now = now }
}

func NewDispatcher(audit store.AuditLog, transport Transport, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		audit:       audit,
		transport:   transport,
		sendTimeout: defaultSendTimeout,
		now:         time.Now,
		tracer:      otel.Tracer("vpass/notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle delivers every mail env calls for. It returns an error only when an
// attempt could not be recorded, so the broker redelivers; transport failures
// end up in the audit log instead.
func (d *Dispatcher) Handle(ctx context.Context, env events.Envelope) error {
	ev, err := env.Decode()
	if err != nil {
		log.Errorf("[Dispatcher] dropping %s: %s", env.ID, err.Error())
		return nil
	}
	msgs, err := compose(ev, d.now().Year())
	if err != nil {
		log.Errorf("[Dispatcher] dropping %s: %s", env.ID, err.Error())
		return nil
	}
	log.Printf("[Dispatcher] %s %s: %d recipient(s)", env.Type, env.ID, len(msgs))

	var errs []error
	for _, msg := range msgs {
		if msg.to == "" {
			log.Warnf("[Dispatcher] %s %s: recipient address is empty, skipping %q", env.Type, env.ID, msg.subject)
			continue
		}
		if err := d.deliver(ctx, env.ID, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, eventID string, msg message) (err error) {
	ctx, span := d.tracer.Start(ctx, "notify.deliver", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("mail.subject", msg.subject),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
		span.End()
	}()

	if d.deduper != nil {
		claimed, err := d.deduper.Claim(ctx, eventID, msg.role, msg.to)
		if err != nil {
			log.Warnf("[Dispatcher] dedupe check failed, sending anyway: %s", err.Error())
		} else if !claimed {
			log.Printf("[Dispatcher] %s already delivered to %s (%s), skipping", eventID, msg.to, msg.role)
			return nil
		}
	}

	entry := &models.EmailAuditLog{
		CorrelationID:    uuid.New(),
		AssociatedPassID: msg.passID,
		EventID:          eventID,
		RecipientAddress: msg.to,
		Subject:          msg.subject,
		Body:             msg.body,
		Status:           types.EMAIL_PENDING,
		CreatedAt:        d.now().UTC(),
	}
	if err := d.audit.Append(ctx, entry); err != nil {
		d.release(ctx, eventID, msg)
		return fmt.Errorf("audit append for %s: %w", msg.to, err)
	}
	span.SetAttributes(attribute.String("mail.correlation_id", entry.CorrelationID.String()))

	status := types.EMAIL_SENT
	var reason *string
	if sendErr := d.send(ctx, msg); sendErr != nil {
		status = types.EMAIL_FAILED
		r := sendErr.Error()
		reason = &r
		d.release(ctx, eventID, msg)
		log.Errorf("[Dispatcher] %s to %s failed: %s", entry.CorrelationID, msg.to, r)
	}

	// resolve the row even when the consumer is shutting down
	if err := d.audit.UpdateStatus(context.WithoutCancel(ctx), entry.CorrelationID, status, reason, d.now().UTC()); err != nil {
		log.Errorf("[Dispatcher] %s left %s: %s", entry.CorrelationID, types.EMAIL_PENDING, err.Error())
	}
	return nil
}

// send runs the transport under the send timeout. A panicking or hung
// transport counts as a failed delivery.
func (d *Dispatcher) send(ctx context.Context, msg message) error {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%w: transport panic: %v", types.ErrDeliveryFailed, r)
			}
		}()
		if err := d.transport.Send(ctx, msg.to, msg.subject, msg.body); err != nil {
			done <- fmt.Errorf("%w: %w", types.ErrDeliveryFailed, err)
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", types.ErrDeliveryFailed, ctx.Err())
	}
}

func (d *Dispatcher) release(ctx context.Context, eventID string, msg message) {
	if d.deduper == nil {
		return
	}
	if err := d.deduper.Release(context.WithoutCancel(ctx), eventID, msg.role, msg.to); err != nil {
		log.Warnf("[Dispatcher] could not release %s/%s/%s: %s", eventID, msg.role, msg.to, err.Error())
	}
}
