package events

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// MemoryBroker is an in-process Channel and Subscriber. Each queue is a
// buffered channel; failed deliveries are put back at the tail.
type MemoryBroker struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	size   int
}

func NewMemoryBroker(size int) *MemoryBroker {
	if size <= 0 {
		size = 256
	}
	b := &MemoryBroker{queues: make(map[string]chan []byte), size: size}
	for _, q := range Queues() {
		b.queue(q)
	}
	return b
}

func (b *MemoryBroker) queue(name string) chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[name]
	if !ok {
		q = make(chan []byte, b.size)
		b.queues[name] = q
	}
	return q
}

func (b *MemoryBroker) Publish(ctx context.Context, _ string, routingKey string, body []byte) error {
	name, ok := QueueFor(routingKey)
	if !ok {
		return fmt.Errorf("no queue bound to %s", routingKey)
	}
	select {
	case b.queue(name) <- body:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue %s is full", name)
	}
}

func (b *MemoryBroker) Subscribe(ctx context.Context, queue string, handler Handler) error {
	q := b.queue(queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case body := <-q:
			env, err := DecodeEnvelope(body)
			if err != nil {
				log.Errorf("[MemoryBroker] dropping undecodable message on %s: %s", queue, err.Error())
				continue
			}
			if err := handler(ctx, env); err != nil {
				log.Warnf("[MemoryBroker] %s on %s not acknowledged: %s", env.ID, queue, err.Error())
				select {
				case q <- body:
				default:
					log.Errorf("[MemoryBroker] queue %s full, lost %s", queue, env.ID)
				}
			}
		}
	}
}

// Drain hands every message currently queued on queue to handler once and
// returns how many were acknowledged.
func (b *MemoryBroker) Drain(ctx context.Context, queue string, handler Handler) int {
	q := b.queue(queue)
	acked := 0
	for n := len(q); n > 0; n-- {
		var body []byte
		select {
		case body = <-q:
		default:
			return acked
		}
		env, err := DecodeEnvelope(body)
		if err != nil {
			log.Errorf("[MemoryBroker] dropping undecodable message on %s: %s", queue, err.Error())
			continue
		}
		if err := handler(ctx, env); err != nil {
			select {
			case q <- body:
			default:
				log.Errorf("[MemoryBroker] queue %s full, lost %s", queue, env.ID)
			}
			continue
		}
		acked++
	}
	return acked
}

func (b *MemoryBroker) Len(queue string) int {
	return len(b.queue(queue))
}
