package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSChannel publishes to one SNS topic per exchange. Queues subscribe with a
// filter policy on the routing_key attribute.
type SNSChannel struct {
	client      snsAPI
	topicPrefix string
}

func NewSNSChannel(cfg aws.Config, topicArnPrefix string) *SNSChannel {
	return &SNSChannel{client: sns.NewFromConfig(cfg), topicPrefix: topicArnPrefix}
}

func (s *SNSChannel) TopicArn(topic string) string {
	return s.topicPrefix + topic
}

func (s *SNSChannel) Publish(ctx context.Context, topic, routingKey string, body []byte) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.TopicArn(topic)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]snstypes.MessageAttributeValue{
			"routing_key": {
				DataType:    aws.String("String"),
				StringValue: aws.String(routingKey),
			},
		},
	})
	return err
}
