package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sonna-ai/sonna/internal/queue"
)

type fakeBus struct {
	healthErr error
}

func (f *fakeBus) Publish(context.Context, *queue.Event) error { return nil }
func (f *fakeBus) Consume(context.Context, int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, errors.New("not implemented")
}
func (f *fakeBus) Close() error { return nil }

func (f *fakeBus) HealthCheck(context.Context) error { return f.healthErr }

func TestHealthCheckBasic(t *testing.T) {
	t.Parallel()

	h := NewHealthChecker(nil, nil)
	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if resp.Checks != nil {
		t.Errorf("checks should be empty in basic mode, got %v", resp.Checks)
	}
}

func TestHealthCheckExtended(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		busErr     error
		wantStatus string
		wantCode   int
	}{
		{name: "all healthy", wantStatus: "healthy", wantCode: http.StatusOK},
		{name: "bus down", busErr: errors.New("connection refused"), wantStatus: "unhealthy", wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(nil, &fakeBus{healthErr: tt.busErr})
			rec := httptest.NewRecorder()
			h.HealthCheck(rec, httptest.NewRequest("GET", "/healthz?mode=extended", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", resp.Status, tt.wantStatus)
			}
		})
	}
}

func TestReadyCheckAlwaysProbes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		busErr   error
		wantCode int
	}{
		{name: "ready", wantCode: http.StatusOK},
		{name: "bus down", busErr: errors.New("connection refused"), wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(nil, &fakeBus{healthErr: tt.busErr})
			rec := httptest.NewRecorder()
			h.ReadyCheck(rec, httptest.NewRequest("GET", "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Checks == nil {
				t.Error("ready check should always include dependency checks")
			}
		})
	}
}
