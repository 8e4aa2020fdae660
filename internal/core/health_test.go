package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// mockHealthProbe implements HealthProbe for testing.
type mockHealthProbe struct {
	name     string
	checkErr error
	// delay simulates a slow dependency; Check blocks for this duration.
	delay  time.Duration
	panics bool
	called atomic.Bool
}

func (m *mockHealthProbe) Name() string { return m.name }

func (m *mockHealthProbe) Check(ctx context.Context) error {
	m.called.Store(true)
	if m.panics {
		panic("probe exploded")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.checkErr
}

func serveReadiness(t *testing.T, probes ...HealthProbe) (*httptest.ResponseRecorder, readinessResponse) {
	t.Helper()
	srv := newTestServer(t)
	srv.HealthProbes = probes

	rec := httptest.NewRecorder()
	srv.HandleReadiness(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var resp readinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return rec, resp
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServer(t)
	rec := httptest.NewRecorder()

	srv.HandleLiveness(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestHandleReadiness_NoProbes(t *testing.T) {
	rec, resp := serveReadiness(t)

	if rec.Code != http.StatusOK || resp.Status != "healthy" {
		t.Errorf("expected 200 healthy, got %d %q", rec.Code, resp.Status)
	}
	if len(resp.Components) != 0 {
		t.Errorf("expected no components, got %v", resp.Components)
	}
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	a := &mockHealthProbe{name: "openweather"}
	b := &mockHealthProbe{name: "sqs"}

	rec, resp := serveReadiness(t, a, b)

	if rec.Code != http.StatusOK || resp.Status != "healthy" {
		t.Fatalf("expected 200 healthy, got %d %q", rec.Code, resp.Status)
	}
	for _, name := range []string{"openweather", "sqs"} {
		if resp.Components[name].Status != "healthy" {
			t.Errorf("component %s = %+v", name, resp.Components[name])
		}
	}
	if !a.called.Load() || !b.called.Load() {
		t.Error("expected every probe to be called")
	}
}

func TestHandleReadiness_OneUnhealthy(t *testing.T) {
	rec, resp := serveReadiness(t,
		&mockHealthProbe{name: "openweather", checkErr: errors.New("circuit breaker open")},
		&mockHealthProbe{name: "sqs"},
	)

	if rec.Code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
		t.Fatalf("expected 503 unhealthy, got %d %q", rec.Code, resp.Status)
	}
	ow := resp.Components["openweather"]
	if ow.Status != "unhealthy" || ow.Message != "circuit breaker open" {
		t.Errorf("openweather = %+v", ow)
	}
	if resp.Components["sqs"].Status != "healthy" {
		t.Errorf("sqs = %+v", resp.Components["sqs"])
	}
}

func TestHandleReadiness_Timeout(t *testing.T) {
	start := time.Now()
	rec, resp := serveReadiness(t, &mockHealthProbe{name: "slow", delay: 10 * time.Second})

	if elapsed := time.Since(start); elapsed > readinessTimeout+time.Second {
		t.Errorf("readiness took %v, expected to stop near %v", elapsed, readinessTimeout)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if resp.Components["slow"].Status != "unhealthy" {
		t.Errorf("slow = %+v", resp.Components["slow"])
	}
}

func TestHandleReadiness_ProbePanic(t *testing.T) {
	rec, resp := serveReadiness(t, &mockHealthProbe{name: "broken", panics: true})

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
	if resp.Components["broken"].Message != "probe panicked: probe exploded" {
		t.Errorf("broken = %+v", resp.Components["broken"])
	}
}

func TestHandleReadiness_ProbesRunConcurrently(t *testing.T) {
	probes := []HealthProbe{
		&mockHealthProbe{name: "a", delay: 300 * time.Millisecond},
		&mockHealthProbe{name: "b", delay: 300 * time.Millisecond},
		&mockHealthProbe{name: "c", delay: 300 * time.Millisecond},
	}

	start := time.Now()
	rec, _ := serveReadiness(t, probes...)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if elapsed := time.Since(start); elapsed > 800*time.Millisecond {
		t.Errorf("probes appear sequential: took %v", elapsed)
	}
}
