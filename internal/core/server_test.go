package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/Zidanesyah/willItRain/internal/config"
)

// testLogger returns a logger that discards output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// bufferLogger returns a JSON logger writing into the returned buffer.
func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "local",
		Server:      config.ServerConfig{Port: "5000", RequestTimeout: 5 * time.Second},
		Security:    config.SecurityConfig{CorsAllowedOrigins: []string{"*"}},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	return srv
}

// mockMetricsCollector records every RecordRequest call.
type mockMetricsCollector struct {
	mu       sync.Mutex
	calls    []metricsCall
	flushed  int
	flushErr error
}

type metricsCall struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

func (m *mockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricsCall{method, endpoint, status, duration})
}

func (m *mockMetricsCollector) Flush(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushed++
	return m.flushErr
}

func (m *mockMetricsCollector) getCalls() []metricsCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]metricsCall, len(m.calls))
	copy(out, m.calls)
	return out
}

func TestNewServer_Success(t *testing.T) {
	srv, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if srv.Validator == nil {
		t.Error("expected Validator to be initialized")
	}
	if srv.Router() == nil {
		t.Error("expected router to be initialized")
	}
	var _ http.Handler = srv.Handler()
}

func TestNewServer_NilConfig(t *testing.T) {
	if _, err := NewServer(nil, testLogger()); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestNewServer_NilLogger(t *testing.T) {
	if _, err := NewServer(testConfig(), nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
}

func TestShutdown_FlushesMetrics(t *testing.T) {
	srv := newTestServer(t)
	collector := &mockMetricsCollector{}
	srv.Metrics = collector

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	if collector.flushed != 1 {
		t.Errorf("expected 1 flush, got %d", collector.flushed)
	}
}

func TestShutdown_FlushError(t *testing.T) {
	srv := newTestServer(t)
	srv.Metrics = &mockMetricsCollector{flushErr: errors.New("cloudwatch down")}

	if err := srv.Shutdown(context.Background()); err == nil {
		t.Fatal("expected flush error to be returned")
	}
}

func TestShutdown_NoMetrics(t *testing.T) {
	srv := newTestServer(t)
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}
