// Package aws adapts SNS, SQS and SES to the broker and mail contracts.
package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	log "github.com/sirupsen/logrus"
)

// LoadConfig loads the default SDK config and, when roleArn is set, swaps in
// credentials from assuming that role.
func LoadConfig(ctx context.Context, roleArn string) (aws.Config, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		log.Printf("Error loading default config: %s", err.Error())
		return cfg, err
	}
	if roleArn == "" {
		return cfg, nil
	}
	output, err := sts.NewFromConfig(cfg).AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String("vpass-api"),
	})
	if err != nil {
		log.Printf("Error configuring STS client: %s", err.Error())
		return cfg, err
	}
	creds := output.Credentials
	return config.LoadDefaultConfig(ctx, config.WithCredentialsProvider(
		credentials.NewStaticCredentialsProvider(*creds.AccessKeyId, *creds.SecretAccessKey, *creds.SessionToken),
	))
}
