package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// --- Mock SQS Client ---

// mockSQSSender captures SendMessage calls for test assertions.
type mockSQSSender struct {
	calls []*sqs.SendMessageInput
	err   error
}

func (m *mockSQSSender) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.calls = append(m.calls, params)
	if m.err != nil {
		return nil, m.err
	}
	return &sqs.SendMessageOutput{}, nil
}

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789/rain-verdicts"

func newTestPublisher(mock *mockSQSSender) *VerdictPublisher {
	p := NewVerdictPublisher(mock, testQueueURL, slog.New(slog.NewTextHandler(io.Discard, nil)))
	p.newID = func() string { return "msg-fixed" }
	return p
}

func sampleVerdict() types.RainVerdictMessage {
	return types.RainVerdictMessage{
		RequestID:          "req-1",
		Query:              "Jakarta",
		Resolved:           "Jakarta ID",
		Lat:                -6.2,
		Lon:                106.8,
		TimezoneOffsetSec:  25200,
		TomorrowStart:      1741626000,
		WillRain:           true,
		HighestProbability: 0.4,
		RainySlotCount:     2,
		CheckedAt:          1741575600,
	}
}

func TestPublishVerdict_SendsToQueue(t *testing.T) {
	mock := &mockSQSSender{}

	if err := newTestPublisher(mock).PublishVerdict(context.Background(), sampleVerdict()); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}

	if len(mock.calls) != 1 {
		t.Fatalf("expected 1 SQS call, got %d", len(mock.calls))
	}
	if got := *mock.calls[0].QueueUrl; got != testQueueURL {
		t.Errorf("QueueUrl = %q, want %q", got, testQueueURL)
	}
}

func TestPublishVerdict_BodyIsSnakeCaseJSON(t *testing.T) {
	mock := &mockSQSSender{}

	if err := newTestPublisher(mock).PublishVerdict(context.Background(), sampleVerdict()); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}

	var decoded types.RainVerdictMessage
	body := *mock.calls[0].MessageBody
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	if decoded.MessageID != "msg-fixed" {
		t.Errorf("MessageID = %q, want generated id", decoded.MessageID)
	}
	if !decoded.WillRain || decoded.RainySlotCount != 2 || decoded.TomorrowStart != 1741626000 {
		t.Errorf("unexpected decoded message %+v", decoded)
	}
	for _, key := range []string{`"will_rain":true`, `"timezone_offset_sec":25200`, `"highest_probability":0.4`} {
		if !strings.Contains(body, key) {
			t.Errorf("body missing %s: %s", key, body)
		}
	}
}

func TestPublishVerdict_KeepsCallerMessageID(t *testing.T) {
	mock := &mockSQSSender{}
	msg := sampleVerdict()
	msg.MessageID = "caller-id"

	if err := newTestPublisher(mock).PublishVerdict(context.Background(), msg); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}

	if !strings.Contains(*mock.calls[0].MessageBody, `"message_id":"caller-id"`) {
		t.Errorf("expected caller id to be preserved: %s", *mock.calls[0].MessageBody)
	}
}

func TestPublishVerdict_Attributes(t *testing.T) {
	mock := &mockSQSSender{}
	msg := sampleVerdict()
	msg.WillRain = false

	if err := newTestPublisher(mock).PublishVerdict(context.Background(), msg); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}

	attrs := mock.calls[0].MessageAttributes
	wr, ok := attrs[attrWillRain]
	if !ok || *wr.StringValue != "false" || *wr.DataType != "String" {
		t.Errorf("will_rain attribute = %+v", wr)
	}
	if rid := attrs[attrRequestID]; rid.StringValue == nil || *rid.StringValue != "req-1" {
		t.Errorf("request_id attribute = %+v", rid)
	}
}

func TestPublishVerdict_OmitsEmptyRequestID(t *testing.T) {
	mock := &mockSQSSender{}
	msg := sampleVerdict()
	msg.RequestID = ""

	if err := newTestPublisher(mock).PublishVerdict(context.Background(), msg); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}
	if _, ok := mock.calls[0].MessageAttributes[attrRequestID]; ok {
		t.Error("request_id attribute should be omitted when empty")
	}
}

func TestPublishVerdict_SQSError(t *testing.T) {
	sqsErr := errors.New("AccessDenied")
	mock := &mockSQSSender{err: sqsErr}

	err := newTestPublisher(mock).PublishVerdict(context.Background(), sampleVerdict())

	if !errors.Is(err, sqsErr) {
		t.Fatalf("expected wrapped SQS error, got %v", err)
	}
	if !strings.Contains(err.Error(), testQueueURL) {
		t.Errorf("error should name the queue: %v", err)
	}
}

func TestNewVerdictPublisher_DefaultID(t *testing.T) {
	mock := &mockSQSSender{}
	p := NewVerdictPublisher(mock, testQueueURL, nil)

	if err := p.PublishVerdict(context.Background(), sampleVerdict()); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}

	var decoded types.RainVerdictMessage
	_ = json.Unmarshal([]byte(*mock.calls[0].MessageBody), &decoded)
	if len(decoded.MessageID) != 36 {
		t.Errorf("expected a UUID message id, got %q", decoded.MessageID)
	}
}

type mockPublishRecorder struct {
	verdicts []bool
}

func (m *mockPublishRecorder) RecordVerdictPublished(willRain bool) {
	m.verdicts = append(m.verdicts, willRain)
}

func TestPublishVerdict_RecordsOnlySuccess(t *testing.T) {
	rec := &mockPublishRecorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := NewVerdictPublisher(&mockSQSSender{}, testQueueURL, logger, WithPublishRecorder(rec))
	if err := ok.PublishVerdict(context.Background(), sampleVerdict()); err != nil {
		t.Fatalf("PublishVerdict returned error: %v", err)
	}

	failing := NewVerdictPublisher(&mockSQSSender{err: errors.New("throttled")}, testQueueURL, logger, WithPublishRecorder(rec))
	_ = failing.PublishVerdict(context.Background(), sampleVerdict())

	if len(rec.verdicts) != 1 || !rec.verdicts[0] {
		t.Errorf("expected exactly one recorded verdict, got %v", rec.verdicts)
	}
}
