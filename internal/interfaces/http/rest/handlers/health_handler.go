package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthResponse is the body of the health endpoints.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime,omitempty"`
	Checks    map[string]string `json:"checks,omitempty"`
}

type HealthHandler struct {
	responder
	service GraphService
	started time.Time
	timeout time.Duration
}

func NewHealthHandler(service GraphService, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		responder: newResponder(logger.Named("HealthHandler"), 0),
		service:   service,
		started:   time.Now(),
		timeout:   5 * time.Second,
	}
}

// Live handles GET /health/live. It never touches a dependency.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready handles GET /health. It answers 503 when the graph store is down
// and reports a cache outage as degraded.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report := h.service.Health(ctx)
	resp := HealthResponse{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Checks:    map[string]string{"graph": report.Graph, "cache": report.Cache},
	}

	status := http.StatusOK
	switch {
	case !report.Healthy():
		resp.Status = StatusUnhealthy
		status = http.StatusServiceUnavailable
	case report.Cache != "ok":
		resp.Status = StatusDegraded
	}
	h.writeJSON(w, status, resp)
}
