package boot

import (
	"context"
	"fmt"
	"time"

	"vpass/src/config"
	"vpass/src/db"
	"vpass/src/events"
	"vpass/src/lib"
	awslib "vpass/src/lib/aws"
	"vpass/src/lifecycle"
	"vpass/src/models"
	"vpass/src/store"
	"vpass/src/store/gormstore"
	"vpass/src/store/memory"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	SweepJobName     = "expire-overdue-passes"
	RepublishJobName = "republish-parked-events"
)

func InitDb(cfg config.DatabaseConfig) *gorm.DB {
	db := db.GetDb(cfg)

	err := db.AutoMigrate(
		&models.Tenant{},
		&models.User{},
		&models.Pass{},
		&models.EmailAuditLog{},
		&models.TrailLog{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

type Stores struct {
	Passes store.PassStore
	Audit  store.AuditLog
	Users  store.UserDirectory
	Trail  store.TrailStore
	Outbox store.Outbox
}

// InitStores opens postgres unless STORE=memory.
func InitStores(cfg *config.Config) Stores {
	if cfg.Store == "memory" {
		log.Println("[boot] using in-memory stores, nothing survives a restart")
		return Stores{
			Passes: memory.NewPassStore(),
			Audit:  memory.NewAuditLog(),
			Users:  memory.NewDirectory(),
			Trail:  memory.NewTrailStore(),
			Outbox: memory.NewOutbox(),
		}
	}
	db := InitDb(cfg.Database)
	return Stores{
		Passes: gormstore.NewPassStore(db),
		Audit:  gormstore.NewAuditLog(db),
		Users:  gormstore.NewUserDirectory(db),
		Trail:  gormstore.NewTrailStore(db),
		Outbox: gormstore.NewJobStore(db),
	}
}

type Broker struct {
	Channel    events.Channel
	Subscriber events.Subscriber
	closers    []func()
}

func (b *Broker) Close() {
	for _, c := range b.closers {
		c()
	}
}

// InitBroker connects the channel and subscriber named by BROKER.
func InitBroker(ctx context.Context, cfg *config.Config) (*Broker, error) {
	switch cfg.Broker {
	case "", "memory":
		mb := events.NewMemoryBroker(0)
		return &Broker{Channel: mb, Subscriber: mb}, nil
	case "kafka":
		if err := lib.KafkaCreateTopics(ctx, cfg.KafkaBroker, events.Queues()...); err != nil {
			log.Warnf("[boot] Could not create topics: %s", err.Error())
		}
		ch, err := lib.NewKafkaChannel(cfg.KafkaBroker, "vpass-api")
		if err != nil {
			return nil, err
		}
		return &Broker{
			Channel:    ch,
			Subscriber: lib.NewKafkaSubscriber(cfg.KafkaBroker, cfg.KafkaGroupID),
			closers:    []func(){ch.Close},
		}, nil
	case "aws":
		awsCfg, err := awslib.LoadConfig(ctx, cfg.AWSRoleArn)
		if err != nil {
			return nil, err
		}
		return &Broker{
			Channel:    awslib.NewSNSChannel(awsCfg, cfg.SNSTopicArnPrefix),
			Subscriber: awslib.NewSQSSubscriber(awsCfg, cfg.SQSQueuePrefix),
		}, nil
	default:
		return nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}

// InitScheduler registers the expiry sweep and the outbox republisher. The
// caller starts it.
func InitScheduler(cfg *config.Config, engine *lifecycle.Engine, republisher *events.Republisher) (*lib.Scheduler, error) {
	sched, err := lib.NewScheduler()
	if err != nil {
		return nil, err
	}
	if _, err := sched.Every(SweepJobName, cfg.SweepInterval, func(ctx context.Context) {
		if _, err := engine.ExpireOverdue(ctx, time.Now()); err != nil {
			log.Printf("[Scheduler] Error while expiring passes: %s", err.Error())
		}
	}); err != nil {
		return nil, err
	}
	if _, err := sched.Every(RepublishJobName, cfg.RepublishInterval, func(ctx context.Context) {
		RecoverParkedEvents(ctx, republisher)
	}); err != nil {
		return nil, err
	}
	return sched, nil
}

// RecoverParkedEvents pushes due outbox jobs back to the broker.
func RecoverParkedEvents(ctx context.Context, republisher *events.Republisher) {
	n, err := republisher.Run(ctx)
	if err != nil {
		log.Printf("Error while republishing parked events: %s", err.Error())
		return
	}
	if n > 0 {
		log.Printf("Republished %d parked events", n)
	}
}
