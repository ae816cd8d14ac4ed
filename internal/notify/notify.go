// Package notify publishes agent escalations to an SNS topic so an external
// agent desk can pick up the conversation out of band.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/him9495-payu/kaira/internal/config"
)

// SNSService is the part of the SNS API the notifier uses.
type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Notifier publishes escalation messages to a configured topic. A nil
// *Notifier is valid and drops everything, so callers without a topic need
// no branching.
type Notifier struct {
	client   SNSService
	log      *slog.Logger
	topicARN string
}

// NewNotifier creates an SNS-backed notifier from configuration.
func NewNotifier(ctx context.Context, cfg config.NotifyConfig, log *slog.Logger) (*Notifier, error) {
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("notify topic ARN is required")
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Notifier{
		client:   sns.NewFromConfig(awsCfg),
		log:      log.With("component", "notify"),
		topicARN: cfg.TopicARN,
	}, nil
}

// escalationMessage is the published JSON body.
type escalationMessage struct {
	Phone    string    `json:"phone"`
	Channel  string    `json:"channel"`
	Question string    `json:"question,omitempty"`
	Language string    `json:"language"`
	At       time.Time `json:"at"`
}

// PublishEscalation sends one agent-handoff message. Safe on a nil receiver.
func (n *Notifier) PublishEscalation(ctx context.Context, phone, channel, question, language string, at time.Time) error {
	if n == nil {
		return nil
	}

	body, err := json.Marshal(escalationMessage{
		Phone:    phone,
		Channel:  channel,
		Question: question,
		Language: language,
		At:       at.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal escalation message: %w", err)
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String("Agent handoff requested"),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("failed to publish escalation: %w", err)
	}

	n.log.InfoContext(ctx, "Escalation published", "phone", phone, "channel", channel)
	return nil
}
