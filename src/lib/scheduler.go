package lib

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the periodic jobs. Jobs never overlap with themselves.
type Scheduler struct {
	inner  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler() (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("Error initializing Scheduler: %s", err.Error())
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{inner: sched, ctx: ctx, cancel: cancel}, nil
}

// Every registers task to run each interval. The context handed to task is
// cancelled on Shutdown.
func (s *Scheduler) Every(name string, interval time.Duration, task func(ctx context.Context)) (string, error) {
	j, err := s.inner.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { task(s.ctx) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		log.Printf("Error creating job %s: %s", name, err.Error())
		return "", err
	}
	log.Printf("[Scheduler] %s every %s (%s)", name, interval, j.ID().String())
	return j.ID().String(), nil
}

func (s *Scheduler) Jobs() []string {
	names := []string{}
	for _, j := range s.inner.Jobs() {
		names = append(names, j.Name())
	}
	return names
}

func (s *Scheduler) Start() {
	log.Printf("Jobs in queue: %d", len(s.inner.Jobs()))
	s.inner.Start()
}

func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.inner.Shutdown()
}
