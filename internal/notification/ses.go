package notification

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// sesAPI is the subset of the SES client the transport uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport delivers messages through AWS SES.
type SESTransport struct {
	client           sesAPI
	configurationSet string
}

// NewSESTransport creates an SES transport. Static credentials are used when
// both keys are set; otherwise the SDK's default chain applies.
func NewSESTransport(cfg SESConfig) *SESTransport {
	awsCfg := aws.Config{Region: cfg.Region}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		)
	}
	return &SESTransport{
		client:           ses.NewFromConfig(awsCfg),
		configurationSet: cfg.ConfigurationSet,
	}
}

// Name returns the transport identifier.
func (t *SESTransport) Name() string { return "ses" }

// Send delivers msg with a single SendEmail call. SES accepts or rejects a
// message as a whole, so a failure marks every recipient failed.
func (t *SESTransport) Send(ctx context.Context, msg *Message) (SendResult, error) {
	input := &ses.SendEmailInput{
		Source: aws.String((&mail.Address{Name: msg.From.Name, Address: msg.From.Email}).String()),
		Destination: &types.Destination{
			ToAddresses:  msg.To,
			BccAddresses: msg.Bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(msg.Subject),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data:    aws.String(msg.Body),
					Charset: aws.String("UTF-8"),
				},
			},
		},
		Tags: []types.MessageTag{
			{Name: aws.String("message_id"), Value: aws.String(msg.ID)},
			{Name: aws.String("kind"), Value: aws.String(string(msg.Kind))},
		},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}
	if msg.ReturnPath != "" {
		input.ReturnPath = aws.String(msg.ReturnPath)
	}
	if t.configurationSet != "" {
		input.ConfigurationSetName = aws.String(t.configurationSet)
	}

	if _, err := t.client.SendEmail(ctx, input); err != nil {
		err = fmt.Errorf("failed to send email via SES: %w", err)
		return failedResult(msg, err), err
	}
	return SendResult{Delivered: len(msg.Recipients())}, nil
}
