// Package queue provides the SQS producer that announces rain verdicts to
// downstream consumers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqsTypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// SQSSender abstracts the SQS SendMessage operation for testability.
// Production code uses the *sqs.Client from aws-sdk-go-v2.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message attribute names set on every verdict.
const (
	attrWillRain  = "will_rain"
	attrRequestID = "request_id"
)

// PublishRecorder counts successfully published verdicts.
type PublishRecorder interface {
	RecordVerdictPublished(willRain bool)
}

// VerdictPublisher sends a RainVerdictMessage to the verdict queue for every
// successful rain check.
type VerdictPublisher struct {
	client   SQSSender
	queueURL string
	logger   *slog.Logger
	recorder PublishRecorder
	newID    func() string
}

// PublisherOption configures a VerdictPublisher.
type PublisherOption func(*VerdictPublisher)

// WithPublishRecorder reports every successful send to r.
func WithPublishRecorder(r PublishRecorder) PublisherOption {
	return func(p *VerdictPublisher) {
		p.recorder = r
	}
}

// NewVerdictPublisher creates a VerdictPublisher for queueURL.
func NewVerdictPublisher(client SQSSender, queueURL string, logger *slog.Logger, opts ...PublisherOption) *VerdictPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &VerdictPublisher{
		client:   client,
		queueURL: queueURL,
		logger:   logger,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PublishVerdict assigns a MessageID when the caller did not, serializes the
// message and sends it. The will_rain attribute lets subscribers filter
// without parsing the body.
func (p *VerdictPublisher) PublishVerdict(ctx context.Context, msg types.RainVerdictMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = p.newID()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("queue: failed to marshal RainVerdictMessage: %w", err)
	}

	attrs := map[string]sqsTypes.MessageAttributeValue{
		attrWillRain: {
			DataType:    aws.String("String"),
			StringValue: aws.String(strconv.FormatBool(msg.WillRain)),
		},
	}
	if msg.RequestID != "" {
		attrs[attrRequestID] = sqsTypes.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(msg.RequestID),
		}
	}

	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:          aws.String(p.queueURL),
		MessageBody:       aws.String(string(body)),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("queue: failed to send RainVerdictMessage to %s: %w", p.queueURL, err)
	}

	if p.recorder != nil {
		p.recorder.RecordVerdictPublished(msg.WillRain)
	}

	p.logger.InfoContext(ctx, "rain verdict published",
		"queue_url", p.queueURL,
		"message_id", msg.MessageID,
		"will_rain", msg.WillRain,
		"rainy_slots", msg.RainySlotCount,
	)
	return nil
}
