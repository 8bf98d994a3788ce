package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vpass/src/models"
	"vpass/src/types"

	"github.com/google/uuid"
)

type Outbox struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]models.JobTask
}

func NewOutbox() *Outbox {
	return &Outbox{jobs: make(map[uuid.UUID]models.JobTask)}
}

func (o *Outbox) Park(_ context.Context, job *models.JobTask) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.JOB_PENDING
	}
	o.jobs[job.ID] = *job
	return nil
}

func (o *Outbox) Pending(_ context.Context, now time.Time, limit int) ([]models.JobTask, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []models.JobTask
	for _, j := range o.jobs {
		if j.Status == types.JOB_PENDING && !j.RunsAt.After(now) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].RunsAt.Before(out[k].RunsAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *Outbox) MarkDone(_ context.Context, id uuid.UUID) error {
	return o.update(id, func(j *models.JobTask) {
		j.Status = types.JOB_DONE
		j.Attempts++
	})
}

func (o *Outbox) MarkFailed(_ context.Context, id uuid.UUID, reason string, retryAt time.Time) error {
	return o.update(id, func(j *models.JobTask) {
		j.Attempts++
		j.LastError = &reason
		if retryAt.IsZero() {
			j.Status = types.JOB_FAILED
			return
		}
		j.RunsAt = retryAt
	})
}

func (o *Outbox) update(id uuid.UUID, fn func(*models.JobTask)) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	j, ok := o.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, types.ErrNotFound)
	}
	fn(&j)
	o.jobs[id] = j
	return nil
}

func (o *Outbox) Get(id uuid.UUID) (models.JobTask, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	j, ok := o.jobs[id]
	return j, ok
}
