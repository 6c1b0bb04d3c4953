package handler

import (
	"net/http"
)

// OpportunityHandler serves the opportunity history as JSON.
type OpportunityHandler struct {
	view View
}

// NewOpportunityHandler creates an OpportunityHandler.
func NewOpportunityHandler(v View) *OpportunityHandler {
	return &OpportunityHandler{view: v}
}

// ListOpportunities returns up to limit opportunities, newest first.
// GET /api/opportunities?limit=N
func (h *OpportunityHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r, h.view.Capacity())
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}

	opps := h.view.Snapshot()
	if len(opps) > limit {
		opps = opps[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": opps,
		"count":         len(opps),
	})
}
