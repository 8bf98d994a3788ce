package events

import (
	"context"
	"time"

	"vpass/src/store"

	log "github.com/sirupsen/logrus"
)

// Republisher drains the outbox back into the channel.
type Republisher struct {
	channel     Channel
	outbox      store.Outbox
	batch       int
	maxAttempts int
	backoff     time.Duration
	now         func() time.Time
}

func NewRepublisher(channel Channel, outbox store.Outbox) *Republisher {
	return &Republisher{
		channel:     channel,
		outbox:      outbox,
		batch:       50,
		maxAttempts: 10,
		backoff:     time.Minute,
		now:         time.Now,
	}
}

// Run makes one pass over due jobs and returns how many were delivered.
func (r *Republisher) Run(ctx context.Context) (int, error) {
	now := r.now()
	jobs, err := r.outbox.Pending(ctx, now, r.batch)
	if err != nil {
		log.Printf("[Republisher] Error loading pending jobs: %s", err.Error())
		return 0, err
	}
	sent := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		if err := r.channel.Publish(ctx, job.Topic, job.RoutingKey, job.Payload); err != nil {
			retryAt := now.Add(r.backoff * time.Duration(job.Attempts+1))
			if job.Attempts+1 >= r.maxAttempts {
				retryAt = time.Time{}
				log.Errorf("[Republisher] giving up on %s after %d attempts", job.Name, job.Attempts+1)
			}
			if err := r.outbox.MarkFailed(ctx, job.ID, err.Error(), retryAt); err != nil {
				log.Printf("[Republisher] Error updating job %s: %s", job.ID, err.Error())
			}
			continue
		}
		if err := r.outbox.MarkDone(ctx, job.ID); err != nil {
			log.Printf("[Republisher] Error updating job %s: %s", job.ID, err.Error())
		}
		sent++
	}
	if len(jobs) > 0 {
		log.Printf("[Republisher] %d/%d parked events republished", sent, len(jobs))
	}
	return sent, nil
}
