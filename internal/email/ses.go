package email

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

const sendTimeout = 10 * time.Second

// SESClient delivers league notices (registration confirmations, mention
// alerts, game reminders) through AWS SESv2. All notices are plain text.
type SESClient struct {
	client *sesv2.Client
	from   string
}

// NewSESClient builds a client from static credentials. The from address
// must be verified in SES or every send will bounce.
func NewSESClient(accessKeyID, secretAccessKey, region, from string) (*SESClient, error) {
	if accessKeyID == "" || secretAccessKey == "" || region == "" {
		return nil, fmt.Errorf("aws credentials and region are required for email delivery")
	}
	if from == "" {
		return nil, fmt.Errorf("a verified from address is required for email delivery")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("configure aws client: %w", err)
	}

	return &SESClient{
		client: sesv2.NewFromConfig(awsCfg),
		from:   from,
	}, nil
}

// Send delivers one plain-text notice to a single recipient.
func (c *SESClient) Send(ctx context.Context, recipient, subject, body string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("email client is not configured")
	}
	if recipient == "" {
		return fmt.Errorf("notice has no recipient")
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if _, err := c.client.SendEmail(ctx, c.buildInput(recipient, subject, body)); err != nil {
		log.Error().
			Err(err).
			Str("recipient", recipient).
			Str("subject", subject).
			Msg("Notice delivery failed")
		return fmt.Errorf("deliver notice to %s: %w", recipient, err)
	}
	return nil
}

func (c *SESClient) buildInput(recipient, subject, body string) *sesv2.SendEmailInput {
	return &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(c.from),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	}
}
