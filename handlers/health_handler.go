package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/unistudious/backend/utils"
	"go.uber.org/zap"
)

const readinessTimeout = 5 * time.Second

// HealthChecker reports whether a dependency can serve traffic
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	checks map[string]HealthChecker
	logger *zap.Logger
}

// NewHealthHandler creates a HealthHandler probing the named dependencies on /readyz
func NewHealthHandler(checks map[string]HealthChecker, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// HandleHealth handles GET /healthz. The process is alive if it answers.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReadiness handles GET /readyz
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	report := HealthResponse{Status: "healthy", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name].HealthCheck(ctx); err != nil {
			h.logger.Warn("readiness check failed", zap.String("check", name), zap.Error(err))
			report.Checks[name] = "unhealthy"
			report.Status = "unhealthy"
			continue
		}
		report.Checks[name] = "healthy"
	}
	report.Timestamp = time.Now().UTC().Format(time.RFC3339)

	if report.Status == "healthy" {
		_ = utils.WriteOK(w, report)
		return
	}

	result := utils.Result{
		Success: false,
		Data:    report,
		Error: &utils.ErrorBody{
			Code:    http.StatusServiceUnavailable,
			Type:    utils.ErrorTypeInternal,
			Message: "service not ready",
		},
	}
	if err := utils.WriteJSON(w, http.StatusServiceUnavailable, result); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}
