package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sonna-ai/sonna/internal/database"
	"github.com/sonna-ai/sonna/internal/queue"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	db  *database.DB
	bus queue.EventBus
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *database.DB, bus queue.EventBus) *HealthChecker {
	return &HealthChecker{db: db, bus: bus}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /health and /healthz endpoints. The extended mode
// probes the database and the event bus.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") == "extended" {
		response.Status, response.Checks = h.probe(r.Context())
	}

	writeHealth(w, response)
}

// ReadyCheck handles the /ready endpoint. Unlike the liveness check it always
// probes dependencies, so a broken database or bus takes the pod out of
// rotation.
func (h *HealthChecker) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	status, checks := h.probe(r.Context())
	writeHealth(w, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	})
}

func (h *HealthChecker) probe(ctx context.Context) (string, map[string]string) {
	status := "healthy"
	checks := make(map[string]string)

	if err := h.checkDatabase(ctx); err != nil {
		status = "unhealthy"
		checks["database"] = "unhealthy: " + err.Error()
	} else {
		checks["database"] = "healthy"
	}

	if h.bus != nil {
		if err := h.bus.HealthCheck(ctx); err != nil {
			status = "unhealthy"
			checks["event_bus"] = "unhealthy: " + err.Error()
		} else {
			checks["event_bus"] = "healthy"
		}
	}

	return status, checks
}

func writeHealth(w http.ResponseWriter, response HealthResponse) {
	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// checkDatabase verifies the database connection
func (h *HealthChecker) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return h.db.PingContext(ctx)
}
