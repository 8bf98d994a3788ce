package aws

import (
	"context"

	"vpass/src/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

type sqsAPI interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSSubscriber long-polls a queue and deletes a message only after the
// handler accepted it; anything else reappears after the visibility timeout.
type SQSSubscriber struct {
	client      sqsAPI
	queuePrefix string
	waitSeconds int32
}

func NewSQSSubscriber(cfg aws.Config, queuePrefix string) *SQSSubscriber {
	return &SQSSubscriber{client: sqs.NewFromConfig(cfg), queuePrefix: queuePrefix, waitSeconds: 20}
}

func (s *SQSSubscriber) Subscribe(ctx context.Context, queue string, handler events.Handler) error {
	qname := s.queuePrefix + queue
	qurl, err := s.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{
		QueueName: aws.String(qname),
	})
	if err != nil {
		log.Printf("Failed to retrieve queue URL for %s: %s", qname, err.Error())
		return err
	}
	log.Printf("[SQS] %s: Listening for messages...", qname)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            qurl.QueueUrl,
			WaitTimeSeconds:     s.waitSeconds,
			MaxNumberOfMessages: 10,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[SQS] Error receiving messages: %s", err.Error())
			return err
		}
		for _, m := range output.Messages {
			s.process(ctx, qname, qurl.QueueUrl, m, handler)
		}
	}
}

func (s *SQSSubscriber) process(ctx context.Context, qname string, qurl *string, m sqstypes.Message, handler events.Handler) {
	env, err := events.DecodeEnvelope([]byte(unwrapSNS(aws.ToString(m.Body))))
	if err != nil {
		log.Errorf("[SQS] %s: dropping undecodable message %s: %s", qname, aws.ToString(m.MessageId), err.Error())
		s.delete(ctx, qname, qurl, m)
		return
	}
	if err := handler(ctx, env); err != nil {
		log.Warnf("[SQS] %s: %s not acknowledged: %s", qname, env.ID, err.Error())
		return
	}
	s.delete(ctx, qname, qurl, m)
}

func (s *SQSSubscriber) delete(ctx context.Context, qname string, qurl *string, m sqstypes.Message) {
	if _, err := s.client.DeleteMessage(context.WithoutCancel(ctx), &sqs.DeleteMessageInput{
		QueueUrl:      qurl,
		ReceiptHandle: m.ReceiptHandle,
	}); err != nil {
		log.Printf("[SQS] %s: Error deleting message: %s", qname, err.Error())
	}
}

// unwrapSNS returns the inner message when the queue does not use raw
// message delivery.
func unwrapSNS(body string) string {
	if gjson.Get(body, "Type").String() == "Notification" {
		return gjson.Get(body, "Message").String()
	}
	return body
}
