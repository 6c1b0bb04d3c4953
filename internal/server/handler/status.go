package handler

import (
	"net/http"
)

// StatusHandler serves the feed status.
type StatusHandler struct {
	status StatusFunc
}

// NewStatusHandler creates a StatusHandler.
func NewStatusHandler(status StatusFunc) *StatusHandler {
	return &StatusHandler{status: status}
}

// GetStatus responds with mode, feed source, connection state and history
// size.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}
