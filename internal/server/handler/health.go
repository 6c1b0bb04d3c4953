package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const pingTimeout = 2 * time.Second

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	redis  Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a HealthHandler. redis may be nil when no Redis
// client is configured.
func NewHealthHandler(redis Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{redis: redis, logger: logger.With(slog.String("handler", "health"))}
}

// HealthCheck responds with the process status and, when configured, Redis
// reachability. A failing Redis ping reports "degraded" but still answers 200.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.Warn("redis ping failed", slog.String("error", err.Error()))
			resp["status"] = "degraded"
			resp["redis"] = "unreachable"
		} else {
			resp["redis"] = "ok"
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
