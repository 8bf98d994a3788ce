package lib

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vpass/src/events"

	"github.com/confluentinc/confluent-kafka-go/kafka"
	log "github.com/sirupsen/logrus"
)

// KafkaChannel publishes each envelope to the Kafka topic named after the
// queue its routing key is bound to. The routing key travels as the message
// key and the exchange as a header.
type KafkaChannel struct {
	producer *kafka.Producer
}

func NewKafkaChannel(broker, clientID string) (*KafkaChannel, error) {
	log.Println("Initializing kafka Producer...")
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  broker,
		"client.id":          clientID,
		"acks":               "all",
		"enable.idempotence": true,
	})
	if err != nil {
		log.Printf("Error on producer: %s", err.Error())
		return nil, err
	}
	return &KafkaChannel{producer: p}, nil
}

// Publish waits for the broker acknowledgement, not for consumers.
func (k *KafkaChannel) Publish(ctx context.Context, topic, routingKey string, body []byte) error {
	queue, ok := events.QueueFor(routingKey)
	if !ok {
		return fmt.Errorf("no queue bound to %s", routingKey)
	}
	delivery := make(chan kafka.Event, 1)
	err := k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &queue, Partition: kafka.PartitionAny},
		Key:            []byte(routingKey),
		Value:          body,
		Headers:        []kafka.Header{{Key: "exchange", Value: []byte(topic)}},
	}, delivery)
	if err != nil {
		return err
	}
	select {
	case ev := <-delivery:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected delivery report %v", ev)
		}
		return m.TopicPartition.Error
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (k *KafkaChannel) Close() {
	if remaining := k.producer.Flush(5000); remaining > 0 {
		log.Warnf("[Kafka] %d messages not flushed on close", remaining)
	}
	k.producer.Close()
}

// KafkaSubscriber commits an offset only after the handler accepted the
// message. A rejected message is re-read after a short pause.
type KafkaSubscriber struct {
	broker  string
	groupID string
	backoff time.Duration
}

func NewKafkaSubscriber(broker, groupID string) *KafkaSubscriber {
	return &KafkaSubscriber{broker: broker, groupID: groupID, backoff: time.Second}
}

func (k *KafkaSubscriber) Subscribe(ctx context.Context, queue string, handler events.Handler) error {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.broker,
		"group.id":           k.groupID,
		"auto.offset.reset":  "smallest",
		"enable.auto.commit": false,
		"retry.backoff.ms":   100,
	})
	if err != nil {
		log.Printf("Error on consumer: %s", err.Error())
		return err
	}
	defer consumer.Close()

	if err := consumer.SubscribeTopics([]string{queue}, nil); err != nil {
		log.Printf("Error subscribing to %s: %s", queue, err.Error())
		return err
	}
	log.Printf("[Kafka] %s: waiting for messages...", queue)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch e := consumer.Poll(100).(type) {
		case *kafka.Message:
			env, err := events.DecodeEnvelope(e.Value)
			if err != nil {
				log.Errorf("[Kafka] %s: dropping undecodable message at %v: %s", queue, e.TopicPartition, err.Error())
				_, _ = consumer.CommitMessage(e)
				continue
			}
			if err := handler(ctx, env); err != nil {
				log.Warnf("[Kafka] %s: %s not acknowledged: %s", queue, env.ID, err.Error())
				if err := consumer.Seek(e.TopicPartition, 1000); err != nil {
					log.Errorf("[Kafka] %s: seek failed: %s", queue, err.Error())
				}
				select {
				case <-time.After(k.backoff):
				case <-ctx.Done():
					return ctx.Err()
				}
				continue
			}
			if _, err := consumer.CommitMessage(e); err != nil {
				log.Errorf("[Kafka] %s: commit failed: %s", queue, err.Error())
			}
		case kafka.Error:
			log.Errorf("[Kafka] %s: %v", queue, e)
			if e.IsFatal() {
				return errors.New(e.String())
			}
		}
	}
}

// KafkaCreateTopics makes sure every queue has a topic.
func KafkaCreateTopics(ctx context.Context, broker string, topics ...string) error {
	a, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": broker,
	})
	if err != nil {
		log.Printf("Error on AdminClient: %s", err.Error())
		return err
	}
	defer a.Close()

	specs := []kafka.TopicSpecification{}
	for _, topic := range topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     10,
			ReplicationFactor: 1,
		})
	}
	results, err := a.CreateTopics(ctx, specs)
	if err != nil {
		log.Printf("Error creating topics: %s", err.Error())
		return err
	}
	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("topic %s: %w", r.Topic, r.Error)
		}
	}
	return nil
}
