package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

const localRegion = "local"

// SESClient is the subset of the SES v2 API used for delivery.
type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// EmailConfig configures the SES notifier.
type EmailConfig struct {
	Region    string
	AccessKey string
	SecretKey string
	Sender    string
}

// EmailNotifier delivers notifications over Amazon SES.
type EmailNotifier struct {
	client SESClient
	sender string
	logger *slog.Logger
}

// NewEmailNotifier wraps an SES client.
func NewEmailNotifier(client SESClient, sender string, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{client: client, sender: sender, logger: logger}
}

// NewSESClient builds an SES v2 client with static credentials. Region
// "local" targets a localstack endpoint.
func NewSESClient(ctx context.Context, conf EmailConfig) (*sesv2.Client, error) {
	region := conf.Region
	if region == localRegion {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(conf.AccessKey, conf.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return sesv2.NewFromConfig(cfg, func(o *sesv2.Options) {
		if conf.Region == localRegion {
			o.BaseEndpoint = aws.String("http://localhost:4566")
		}
	}), nil
}

// Send delivers message as an HTML email.
func (n *EmailNotifier) Send(ctx context.Context, message Message) error {
	if message.Destination == "" {
		return errors.New("email destination is required")
	}
	in := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.sender),
		Destination:      &types.Destination{ToAddresses: []string{message.Destination}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(message.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(message.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if message.Kind != "" {
		in.EmailTags = []types.MessageTag{{Name: aws.String("kind"), Value: aws.String(message.Kind)}}
	}
	if _, err := n.client.SendEmail(ctx, in); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if n.logger != nil {
		n.logger.InfoContext(ctx, "email sent", "kind", message.Kind)
	}
	return nil
}
