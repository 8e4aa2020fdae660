// Package metrics emits service telemetry to AWS CloudWatch.
//
// Metrics emitted:
//   - APILatency, APIRequestCount: Dims {Endpoint, Method, StatusCode}
//   - UpstreamFailure: Dims {Provider, ErrorCode}
//   - VerdictPublished: Dims {WillRain}
//
// Datums are buffered and sent in batches; a batch is flushed when it
// reaches the batch size, on every Run tick, and on Flush.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

const (
	// maxDatumsPerCall is the PutMetricData per-request datum limit.
	maxDatumsPerCall = 1000

	defaultBatchSize = 200

	// sendTimeout bounds size-triggered sends, which have no caller context.
	sendTimeout = 5 * time.Second
)

// CloudWatchCollector buffers metric datums and publishes them to one
// CloudWatch namespace. It is safe for concurrent use.
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	batchSize int
	now       func() time.Time

	mu  sync.Mutex
	buf []cwtypes.MetricDatum
}

// Option configures a CloudWatchCollector.
type Option func(*CloudWatchCollector)

// WithBatchSize sets the buffered datum count that triggers a send.
func WithBatchSize(n int) Option {
	return func(c *CloudWatchCollector) {
		if n > 0 && n <= maxDatumsPerCall {
			c.batchSize = n
		}
	}
}

// WithClock overrides the datum timestamp source.
func WithClock(now func() time.Time) Option {
	return func(c *CloudWatchCollector) {
		c.now = now
	}
}

// NewCloudWatchCollector creates a collector publishing to namespace. An
// empty namespace selects types.MetricNamespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger, opts ...Option) *CloudWatchCollector {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &CloudWatchCollector{
		client:    client,
		namespace: namespace,
		logger:    logger,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordRequest records latency in milliseconds and a request count.
func (c *CloudWatchCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimMethod, method),
		dimension(types.DimStatusCode, status),
	}
	c.add(
		c.datum(types.MetricAPILatency, float64(duration.Milliseconds()), cwtypes.StandardUnitMilliseconds, dims),
		c.datum(types.MetricAPIRequestCount, 1, cwtypes.StandardUnitCount, dims),
	)
}

// RecordUpstreamFailure counts a failed upstream call by provider and code.
func (c *CloudWatchCollector) RecordUpstreamFailure(provider string, code types.ErrorCode) {
	c.add(c.datum(types.MetricUpstreamFailure, 1, cwtypes.StandardUnitCount, []cwtypes.Dimension{
		dimension(types.DimProvider, provider),
		dimension(types.DimErrorCode, string(code)),
	}))
}

// RecordVerdictPublished counts a verdict sent to the verdict queue.
func (c *CloudWatchCollector) RecordVerdictPublished(willRain bool) {
	c.add(c.datum(types.MetricVerdictPublished, 1, cwtypes.StandardUnitCount, []cwtypes.Dimension{
		dimension(types.DimWillRain, strconv.FormatBool(willRain)),
	}))
}

// Flush sends every buffered datum. Datums from a failed send are dropped.
func (c *CloudWatchCollector) Flush(ctx context.Context) error {
	c.mu.Lock()
	pending := c.buf
	c.buf = nil
	c.mu.Unlock()

	var errs []error
	for len(pending) > 0 {
		n := min(len(pending), maxDatumsPerCall)
		if err := c.send(ctx, pending[:n]); err != nil {
			errs = append(errs, err)
		}
		pending = pending[n:]
	}
	return errors.Join(errs...)
}

// Run flushes every interval until ctx is done, then performs a final flush
// bounded by sendTimeout.
func (c *CloudWatchCollector) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.Flush(ctx)
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
			_ = c.Flush(final)
			cancel()
			return
		}
	}
}

// Pending reports the number of buffered datums.
func (c *CloudWatchCollector) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf)
}

func (c *CloudWatchCollector) add(datums ...cwtypes.MetricDatum) {
	c.mu.Lock()
	c.buf = append(c.buf, datums...)
	if len(c.buf) < c.batchSize {
		c.mu.Unlock()
		return
	}
	batch := c.buf
	c.buf = nil
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	_ = c.send(ctx, batch)
}

func (c *CloudWatchCollector) send(ctx context.Context, batch []cwtypes.MetricDatum) error {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: batch,
	})
	if err != nil {
		c.logger.Error("failed to publish metrics",
			"error", err.Error(),
			"namespace", c.namespace,
			"datums", len(batch),
		)
	}
	return err
}

func (c *CloudWatchCollector) datum(name string, value float64, unit cwtypes.StandardUnit, dims []cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(c.now().UTC()),
		Dimensions: dims,
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
