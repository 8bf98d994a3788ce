package events

import (
	"context"
	"fmt"
	"time"

	"vpass/src/models"
	"vpass/src/store"
	"vpass/src/types"

	log "github.com/sirupsen/logrus"
)

// Channel is the producing side of a durable broker.
type Channel interface {
	Publish(ctx context.Context, topic, routingKey string, body []byte) error
}

// Handler processes one delivery. Returning nil acknowledges it; any error
// leaves it for redelivery.
type Handler func(ctx context.Context, env Envelope) error

// Subscriber is the consuming side. Subscribe blocks until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context, queue string, handler Handler) error
}

// Publisher is what the lifecycle engine and the account service emit through.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type ChannelPublisher struct {
	channel Channel
	outbox  store.Outbox
	now     func() time.Time
}

// NewPublisher wraps channel. outbox may be nil, in which case refused
// envelopes are only logged.
func NewPublisher(channel Channel, outbox store.Outbox) *ChannelPublisher {
	return &ChannelPublisher{channel: channel, outbox: outbox, now: time.Now}
}

func (p *ChannelPublisher) Publish(ctx context.Context, e Event) error {
	route, ok := Routes[e.Type()]
	if !ok {
		return fmt.Errorf("no route for %s", e.Type())
	}
	env, err := NewEnvelope(e, p.now())
	if err != nil {
		return err
	}
	body, err := Encode(env)
	if err != nil {
		return err
	}
	if err := p.channel.Publish(ctx, route.Topic, route.RoutingKey, body); err != nil {
		log.Printf("[Publisher] %s %s refused: %s", env.Type, env.ID, err.Error())
		p.park(ctx, env, route, body, err)
		return fmt.Errorf("%s %s: %w: %w", env.Type, env.ID, types.ErrPublishFailed, err)
	}
	log.Printf("[Publisher] %s %s -> %s", env.Type, env.ID, route.RoutingKey)
	return nil
}

func (p *ChannelPublisher) park(ctx context.Context, env Envelope, route Route, body []byte, cause error) {
	if p.outbox == nil {
		return
	}
	reason := cause.Error()
	job := &models.JobTask{
		Name:       string(env.Type) + ":" + env.ID,
		Topic:      route.Topic,
		RoutingKey: route.RoutingKey,
		Payload:    body,
		Status:     types.JOB_PENDING,
		LastError:  &reason,
		RunsAt:     p.now(),
	}
	// the request context may already be cancelled
	if err := p.outbox.Park(context.WithoutCancel(ctx), job); err != nil {
		log.Errorf("[Publisher] could not park %s: %s", env.ID, err.Error())
	}
}
