package boot

import (
	"context"
	"testing"
	"time"

	"vpass/src/config"
	"vpass/src/events"
	"vpass/src/guard"
	"vpass/src/lifecycle"
	"vpass/src/models"
	"vpass/src/store/memory"
	"vpass/src/types"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStoresMemory(t *testing.T) {
	s := InitStores(&config.Config{Store: "memory"})
	assert.IsType(t, &memory.PassStore{}, s.Passes)
	assert.IsType(t, &memory.AuditLog{}, s.Audit)
	assert.IsType(t, &memory.Directory{}, s.Users)
	assert.IsType(t, &memory.TrailStore{}, s.Trail)
	assert.IsType(t, &memory.Outbox{}, s.Outbox)
}

func TestInitBrokerMemory(t *testing.T) {
	b, err := InitBroker(context.Background(), &config.Config{Broker: "memory"})
	require.NoError(t, err)
	defer b.Close()
	assert.IsType(t, &events.MemoryBroker{}, b.Channel)
	assert.Same(t, b.Channel, b.Subscriber)

	_, err = InitBroker(context.Background(), &config.Config{Broker: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestInitSchedulerRegistersJobs(t *testing.T) {
	broker := events.NewMemoryBroker(0)
	outbox := memory.NewOutbox()
	engine := lifecycle.New(memory.NewPassStore(), memory.NewDirectory(), events.NewPublisher(broker, outbox), guard.NewClaimsGuard())

	sched, err := InitScheduler(&config.Config{SweepInterval: time.Minute, RepublishInterval: time.Minute}, engine, events.NewRepublisher(broker, outbox))
	require.NoError(t, err)
	defer sched.Shutdown()
	assert.ElementsMatch(t, []string{SweepJobName, RepublishJobName}, sched.Jobs())
}

func TestRecoverParkedEvents(t *testing.T) {
	broker := events.NewMemoryBroker(0)
	outbox := memory.NewOutbox()
	env, err := events.NewEnvelope(events.UserCreated{UserID: 1, Email: "a@acme.test"}, time.Now())
	require.NoError(t, err)
	body, err := events.Encode(env)
	require.NoError(t, err)
	route := events.Routes[events.TypeUserCreated]
	job := &models.JobTask{
		ID:         uuid.New(),
		Topic:      route.Topic,
		RoutingKey: route.RoutingKey,
		Payload:    body,
		Status:     types.JOB_PENDING,
		RunsAt:     time.Now().Add(-time.Second),
	}
	require.NoError(t, outbox.Park(context.Background(), job))

	RecoverParkedEvents(context.Background(), events.NewRepublisher(broker, outbox))

	parked, _ := outbox.Get(job.ID)
	assert.Equal(t, types.JOB_DONE, parked.Status)
	queue, _ := events.QueueFor(route.RoutingKey)
	assert.Equal(t, 1, broker.Len(queue))
}
