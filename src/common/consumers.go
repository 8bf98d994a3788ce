package common

import (
	"context"
	"errors"
	"sync"
	"time"

	"vpass/src/events"

	log "github.com/sirupsen/logrus"
)

const maxRestartBackoff = time.Minute

// Consume keeps sub attached to queue until ctx ends. A subscription that
// returns early is restarted after a doubling pause.
func Consume(ctx context.Context, sub events.Subscriber, queue string, handler events.Handler, backoff time.Duration) {
	wait := backoff
	for {
		err := sub.Subscribe(ctx, queue, handler)
		if ctx.Err() != nil {
			log.Printf("[consumer] %s: stopped", queue)
			return
		}
		if err == nil {
			err = errors.New("subscription ended")
		}
		log.Warnf("[consumer] %s: %s, restarting in %s", queue, err.Error(), wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		wait = min(wait*2, maxRestartBackoff)
	}
}

// StartConsumers attaches perQueue consumers to every bound queue. The
// returned group is done once ctx is cancelled and all of them returned.
func StartConsumers(ctx context.Context, sub events.Subscriber, handler events.Handler, perQueue int) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, queue := range events.Queues() {
		for range max(perQueue, 1) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				Consume(ctx, sub, queue, handler, time.Second)
			}()
		}
	}
	return &wg
}
