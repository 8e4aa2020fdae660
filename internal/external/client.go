// Package external is the boundary between the rain-check domain and
// third-party HTTP APIs. All outbound calls go through BaseClient, which
// applies the same resilience rules everywhere: an in-flight bound, circuit
// breaking, optional retries with backoff, trace propagation and mapping of
// transport failures to types.AppError.
package external

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/semaphore"

	"github.com/Zidanesyah/willItRain/internal/types"
)

// maxErrorBodyBytes bounds how much of an upstream error body is kept for
// logs and error details.
const maxErrorBodyBytes = 512

// RetryPolicy configures the retry behavior for the BaseClient.
type RetryPolicy struct {
	MaxRetries int
	MinWait    time.Duration
	MaxWait    time.Duration
}

// DefaultRetryPolicy performs no retries: a failed call fails the query.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 0,
		MinWait:    250 * time.Millisecond,
		MaxWait:    2 * time.Second,
	}
}

// FailureRecorder receives one event per upstream call that ended in an
// error after all attempts.
type FailureRecorder interface {
	RecordUpstreamFailure(provider string, code types.ErrorCode)
}

// BaseClient wraps an *http.Client and a circuit breaker. Provider clients
// hold a BaseClient to inherit its behavior.
type BaseClient struct {
	name        string
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker[*http.Response]
	retryPolicy RetryPolicy
	userAgent   string
	inFlight    *semaphore.Weighted
	failures    FailureRecorder
	sleepFn     func(time.Duration) // for testability; defaults to time.Sleep
}

// BaseClientOption is a functional option for configuring a BaseClient.
type BaseClientOption func(*BaseClient)

// WithSleepFunc overrides the sleep function used between retries.
// This is intended for testing to avoid real delays.
func WithSleepFunc(fn func(time.Duration)) BaseClientOption {
	return func(c *BaseClient) {
		c.sleepFn = fn
	}
}

// WithMaxInFlight caps concurrent outbound calls. Callers over the cap wait
// for a slot or for their context to end.
func WithMaxInFlight(n int64) BaseClientOption {
	return func(c *BaseClient) {
		if n > 0 {
			c.inFlight = semaphore.NewWeighted(n)
		}
	}
}

// WithFailureRecorder reports failed calls, typically to metrics.
func WithFailureRecorder(r FailureRecorder) BaseClientOption {
	return func(c *BaseClient) {
		c.failures = r
	}
}

// WithBreaker replaces the default circuit breaker. Used by tests to trip
// the breaker quickly.
func WithBreaker(cb *gobreaker.CircuitBreaker[*http.Response]) BaseClientOption {
	return func(c *BaseClient) {
		c.breaker = cb
	}
}

// NewBaseClient creates a BaseClient. name labels the breaker and the
// Provider dimension of failure metrics.
func NewBaseClient(
	httpClient *http.Client,
	name string,
	retryPolicy RetryPolicy,
	userAgent string,
	opts ...BaseClientOption,
) *BaseClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	bc := &BaseClient{
		name:        name,
		client:      httpClient,
		breaker:     newBreaker(name),
		retryPolicy: retryPolicy,
		userAgent:   userAgent,
		sleepFn:     time.Sleep,
	}

	for _, opt := range opts {
		opt(bc)
	}

	return bc
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		// A caller giving up is not a sign of upstream trouble.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
}

// Name returns the provider name this client was built for.
func (c *BaseClient) Name() string {
	return c.name
}

// BreakerState exposes the circuit breaker state for readiness checks.
func (c *BaseClient) BreakerState() gobreaker.State {
	return c.breaker.State()
}

// Do executes the HTTP request with:
//  1. In-flight bound (semaphore)
//  2. Trace ID and User-Agent injection
//  3. Circuit breaker wrapping
//  4. Retry on 429/5xx when the policy allows it (respecting Retry-After)
//  5. Error mapping to types.AppError
//
// Responses other than 429/5xx are returned as-is and the caller closes the
// body. Everything else comes back as a types.AppError with an upstream code
// and, when a response was received, upstream_status and upstream_body
// details.
func (c *BaseClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if c.inFlight != nil {
		if err := c.inFlight.Acquire(ctx, 1); err != nil {
			return nil, c.fail(c.mapError(nil, nil, err))
		}
		defer c.inFlight.Release(1)
	}

	if traceID := types.GetRequestID(ctx); traceID != "" {
		req.Header.Set("X-B3-TraceId", traceID)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	// Snapshot the request body so it can be replayed on retries.
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalUnexpected,
				"failed to read request body for retry support",
				err,
			)
		}
		req.Body.Close()
	}

	var lastResp *http.Response
	var lastErr error

	maxAttempts := 1 + c.retryPolicy.MaxRetries
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			req.ContentLength = int64(len(bodyBytes))
		}

		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			r, doErr := c.client.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 || r.StatusCode == http.StatusTooManyRequests {
				return r, fmt.Errorf("upstream returned %d", r.StatusCode)
			}
			return r, nil
		})

		if err == nil {
			return resp, nil
		}

		lastErr = err
		if resp != nil {
			if attempt < maxAttempts-1 {
				resp.Body.Close()
			} else {
				lastResp = resp
			}
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			break
		}
		if ctx.Err() != nil || isTimeout(err) {
			break
		}

		if attempt < maxAttempts-1 {
			c.sleepFn(c.computeBackoff(attempt, resp))
		}
	}

	var body string
	if lastResp != nil {
		body = readSnippet(lastResp.Body)
		lastResp.Body.Close()
	}

	return nil, c.fail(c.mapError(lastResp, &body, lastErr))
}

func (c *BaseClient) fail(err *types.AppError) *types.AppError {
	if c.failures != nil {
		c.failures.RecordUpstreamFailure(c.name, err.Code)
	}
	return err
}

// computeBackoff determines the wait duration before the next retry attempt.
// It respects the Retry-After header if present, otherwise uses exponential
// backoff with jitter clamped to [MinWait, MaxWait].
func (c *BaseClient) computeBackoff(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
				return min(time.Duration(seconds)*time.Second, c.retryPolicy.MaxWait)
			}
			if t, err := http.ParseTime(retryAfter); err == nil {
				wait := time.Until(t)
				if wait <= 0 {
					return c.retryPolicy.MinWait
				}
				return min(wait, c.retryPolicy.MaxWait)
			}
		}
	}

	base := min(float64(c.retryPolicy.MinWait)*math.Pow(2, float64(attempt)), float64(c.retryPolicy.MaxWait))
	minWait := float64(c.retryPolicy.MinWait)
	if base <= minWait {
		return c.retryPolicy.MinWait
	}
	return time.Duration(minWait + rand.Float64()*(base-minWait))
}

// mapError translates transport-level failures into AppErrors.
func (c *BaseClient) mapError(resp *http.Response, body *string, err error) *types.AppError {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamUnavailable,
			"circuit breaker is open; upstream service unavailable",
			err,
			map[string]any{"breaker": c.breaker.State().String()},
		)
	}

	if resp != nil {
		details := map[string]any{"upstream_status": resp.StatusCode}
		if body != nil && *body != "" {
			details["upstream_body"] = *body
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return types.NewAppErrorWithDetails(
				types.ErrCodeUpstreamRateLimited,
				"upstream rate limit exceeded",
				err,
				details,
			)
		}
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamUnavailable,
			fmt.Sprintf("upstream returned %d", resp.StatusCode),
			err,
			details,
		)
	}

	if isTimeout(err) {
		return types.NewAppError(
			types.ErrCodeUpstreamTimeout,
			"upstream request timed out",
			err,
		)
	}

	// Network error, DNS failure, caller cancellation.
	return types.NewAppError(
		types.ErrCodeUpstreamUnavailable,
		"upstream request failed",
		err,
	)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	return string(b)
}
