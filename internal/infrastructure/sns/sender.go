package sns

import (
	"context"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/plateping/api/internal/config"
)

// SMSSender delivers one-time codes to phone numbers.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type sender struct {
	client *sns.Client
}

// NewSender builds an AWS SNS backed SMS sender.
func NewSender(cfg *config.Config) (SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *sender) SendSMS(ctx context.Context, to, message string) error {
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &to,
		Message:     &message,
	})
	return err
}

// LogSender writes the SMS to the log instead of delivering it. Used in
// development and test environments where SNS is not configured.
type LogSender struct{}

func (LogSender) SendSMS(_ context.Context, to, message string) error {
	slog.Info("simulated SMS", "to", to, "message", message)
	return nil
}
