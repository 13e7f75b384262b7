package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"go-token-auth/internal/model"
)

// ProbeHandler answers the connectivity and role-check endpoints. The role
// checks themselves happen in the authorization middleware; reaching a
// handler here means access was granted.
type ProbeHandler struct{}

func NewProbeHandler() *ProbeHandler {
	return &ProbeHandler{}
}

func (h *ProbeHandler) Test(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "hello", nil)
}

func (h *ProbeHandler) Admin(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "admin check ok", nil)
}

func (h *ProbeHandler) Manager(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "manager check ok", nil)
}

func (h *ProbeHandler) User(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, http.StatusOK, "user check ok", nil)
}

// Pinger is a dependency the health endpoint checks.
type Pinger interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok"}
	healthy := true
	for name, dep := range h.deps {
		if err := dep.Health(ctx); err != nil {
			slog.Warn("health check failed", "dependency", name, "error", err)
			status[name] = "down"
			healthy = false
			continue
		}
		status[name] = "up"
	}

	if !healthy {
		status["status"] = "degraded"
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(model.APIResponse{
			Success: false,
			Message: "degraded",
			Data:    status,
		})
		return
	}

	writeSuccess(w, http.StatusOK, "ok", status)
}
